package order

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"campus-eats/internal/events"
	"campus-eats/internal/logger"
	"campus-eats/internal/menu"
	"campus-eats/internal/metrics"
	"campus-eats/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultLeadTime = 35 * time.Minute
	DefaultPageSize = 10
	MaxPageSize     = 100

	maxCreateAttempts     = 2
	maxTransitionAttempts = 3
)

type Service interface {
	CreateOrder(ctx context.Context, p Principal, input CreateOrderInput) (*Order, error)
	GetOrder(ctx context.Context, p Principal, orderID string) (*Order, error)
	ListMyOrders(ctx context.Context, p Principal) ([]*Order, error)
	ListOrders(ctx context.Context, p Principal, filter ListFilter) (*OrderPage, error)
	UpdateOrderStatus(ctx context.Context, p Principal, orderID string, target Status) (*Order, error)
	CancelOrder(ctx context.Context, p Principal, orderID string) (*Order, error)
	Statistics(ctx context.Context, p Principal) (*Stats, error)
}

// Catalog resolves menu items to the facts captured on an order line.
type Catalog interface {
	Resolve(ctx context.Context, itemID string) (*menu.CatalogEntry, error)
}

type IDGenerator interface {
	Next(now time.Time) (string, error)
}

type Options struct {
	LeadTime time.Duration
	Location *time.Location
	IDs      IDGenerator
	Now      func() time.Time
	Metrics  *metrics.OrderMetrics
	Events   events.Publisher
}

type service struct {
	repo     Repository
	catalog  Catalog
	ids      IDGenerator
	now      func() time.Time
	leadTime time.Duration
	location *time.Location
	metrics  *metrics.OrderMetrics
	events   events.Publisher
}

func NewService(repo Repository, catalog Catalog, opts Options) Service {
	s := &service{
		repo:     repo,
		catalog:  catalog,
		ids:      opts.IDs,
		now:      opts.Now,
		leadTime: opts.LeadTime,
		location: opts.Location,
		metrics:  opts.Metrics,
		events:   opts.Events,
	}
	if s.ids == nil {
		s.ids = utils.NewOrderIDGenerator()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.leadTime <= 0 {
		s.leadTime = DefaultLeadTime
	}
	if s.location == nil {
		s.location = time.Local
	}
	if s.events == nil {
		s.events = events.NoopPublisher{}
	}
	return s
}

func (s *service) CreateOrder(ctx context.Context, p Principal, input CreateOrderInput) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateOrder"),
		zap.String("user_id", p.UserID),
	)

	if p.UserID == "" {
		return nil, ErrAccessDenied
	}

	input, err := normalizeInput(input)
	if err != nil {
		s.metrics.Rejected("create", "validation")
		log.Info("invalid order input", zap.Error(err))
		return nil, err
	}

	items := make([]OrderItem, 0, len(input.Items))
	total := decimal.Zero

	for _, line := range input.Items {
		entry, err := s.catalog.Resolve(ctx, line.MenuItemID)
		if errors.Is(err, menu.ErrMenuItemNotFound) {
			s.metrics.Rejected("create", "item_not_found")
			return nil, fmt.Errorf("%w: %s", ErrItemNotFound, line.MenuItemID)
		}
		if err != nil {
			log.Error("catalog lookup failed", zap.String("menu_item_id", line.MenuItemID), zap.Error(err))
			return nil, storageError(err)
		}
		if !entry.IsAvailable {
			s.metrics.Rejected("create", "item_unavailable")
			return nil, fmt.Errorf("%w: %s", ErrItemUnavailable, entry.Name)
		}

		item := OrderItem{
			MenuItemID: entry.ItemID,
			Name:       entry.Name,
			Image:      entry.Image,
			Quantity:   line.Quantity,
			UnitPrice:  entry.Price,
		}
		total = total.Add(item.Subtotal())
		items = append(items, item)

		log.Debug("line priced",
			zap.String("menu_item_id", item.MenuItemID),
			zap.Int("quantity", item.Quantity),
			zap.String("unit_price", item.UnitPrice.StringFixed(2)),
		)
	}

	if total.GreaterThanOrEqual(maxOrderTotal) {
		s.metrics.Rejected("create", "validation")
		return nil, validationError("order total %s is too large", total.StringFixed(2))
	}

	now := s.now()
	o := &Order{
		UserID:                p.UserID,
		Items:                 items,
		TotalAmount:           total,
		Status:                StatusPending,
		PaymentMethod:         input.PaymentMethod,
		PaymentStatus:         PaymentPending,
		DeliveryAddress:       input.DeliveryAddress,
		SpecialInstructions:   input.SpecialInstructions,
		EstimatedDeliveryTime: now.Add(s.leadTime),
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	for attempt := 1; ; attempt++ {
		id, err := s.ids.Next(now)
		if err != nil {
			log.Error("failed to generate order id", zap.Error(err))
			return nil, err
		}
		o.ID = id

		err = s.repo.CreateOrder(ctx, o)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrIdentifierCollision) {
			return nil, err
		}

		s.metrics.IDCollision()
		log.Warn("order id collision", zap.String("order_id", id), zap.Int("attempt", attempt))
		if attempt >= maxCreateAttempts {
			return nil, fmt.Errorf("%w: generator repeated an identifier", ErrIdentifierCollision)
		}
	}

	s.metrics.OrderCreated(string(o.PaymentMethod))
	s.publish(ctx, events.OrderCreated, o, "")

	log.Info("order created",
		zap.String("order_id", o.ID),
		zap.String("total", o.TotalAmount.StringFixed(2)),
	)
	return o, nil
}

// normalizeInput trims free text fields and rejects malformed carts before
// any catalog lookup happens.
func normalizeInput(in CreateOrderInput) (CreateOrderInput, error) {
	if len(in.Items) == 0 {
		return in, validationError("order must contain at least one item")
	}

	lines := make([]LineRequest, len(in.Items))
	for i, line := range in.Items {
		line.MenuItemID = strings.TrimSpace(line.MenuItemID)
		if line.MenuItemID == "" {
			return in, validationError("item %d has no menu item", i+1)
		}
		if line.Quantity < 1 {
			return in, validationError("item %d quantity must be at least 1", i+1)
		}
		if line.Quantity > MaxLineQuantity {
			return in, validationError("item %d quantity must be at most %d", i+1, MaxLineQuantity)
		}
		lines[i] = line
	}
	in.Items = lines

	in.PaymentMethod = PaymentMethod(strings.ToLower(strings.TrimSpace(string(in.PaymentMethod))))
	if !in.PaymentMethod.Valid() {
		return in, validationError("unsupported payment method %q", in.PaymentMethod)
	}

	addr := in.DeliveryAddress
	addr.Street = strings.TrimSpace(addr.Street)
	addr.City = strings.TrimSpace(addr.City)
	addr.State = strings.TrimSpace(addr.State)
	addr.ZipCode = strings.TrimSpace(addr.ZipCode)
	if addr.Street == "" || addr.City == "" || addr.State == "" || addr.ZipCode == "" {
		return in, validationError("delivery address is incomplete")
	}
	in.DeliveryAddress = addr

	in.SpecialInstructions = strings.TrimSpace(in.SpecialInstructions)
	if utf8.RuneCountInString(in.SpecialInstructions) > MaxInstructionsLength {
		return in, validationError("special instructions exceed %d characters", MaxInstructionsLength)
	}

	return in, nil
}

func (s *service) GetOrder(ctx context.Context, p Principal, orderID string) (*Order, error) {
	o, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() && !p.Owns(o) {
		logger.FromCtx(ctx).Warn("order access denied",
			zap.String("layer", "service"),
			zap.String("order_id", orderID),
			zap.String("user_id", p.UserID),
		)
		return nil, ErrAccessDenied
	}
	return o, nil
}

func (s *service) load(ctx context.Context, orderID string) (*Order, error) {
	orderID = strings.TrimSpace(orderID)
	if !utils.IsOrderID(orderID) {
		return nil, ErrOrderNotFound
	}
	return s.repo.GetOrder(ctx, orderID)
}

func (s *service) ListMyOrders(ctx context.Context, p Principal) ([]*Order, error) {
	if p.UserID == "" {
		return nil, ErrAccessDenied
	}
	return s.repo.ListByUser(ctx, p.UserID)
}

func (s *service) ListOrders(ctx context.Context, p Principal, filter ListFilter) (*OrderPage, error) {
	if !p.IsAdmin() {
		return nil, ErrAccessDenied
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, validationError("unknown status %q", *filter.Status)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	total, err := s.repo.CountOrders(ctx, filter.Status)
	if err != nil {
		return nil, err
	}

	orders, err := s.repo.FetchOrders(ctx, filter.Status, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	items, err := s.repo.FetchOrderItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		o.Items = items[o.ID]
	}

	return &OrderPage{
		Orders:     orders,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

// UpdateOrderStatus is the administrative path. Any recognised status is
// accepted from any current status, and setting the current status again
// re-applies its side effects.
func (s *service) UpdateOrderStatus(ctx context.Context, p Principal, orderID string, target Status) (*Order, error) {
	if !p.IsAdmin() {
		s.metrics.Rejected("update_status", "access_denied")
		return nil, ErrAccessDenied
	}
	if !target.Valid() {
		return nil, validationError("unknown status %q", target)
	}

	return s.transition(ctx, "admin", orderID, func(o *Order, now time.Time) (StatusChange, error) {
		change := StatusChange{Expected: o.Status, Target: target, UpdatedAt: now}
		if target == StatusDelivered {
			completed := PaymentCompleted
			change.PaymentStatus = &completed
			change.ActualDeliveryTime = &now
		}
		return change, nil
	})
}

// CancelOrder is the self-service path, open to the order owner only.
func (s *service) CancelOrder(ctx context.Context, p Principal, orderID string) (*Order, error) {
	return s.transition(ctx, "owner", orderID, func(o *Order, now time.Time) (StatusChange, error) {
		if !p.Owns(o) {
			return StatusChange{}, ErrAccessDenied
		}
		if !o.Status.Cancellable() {
			return StatusChange{}, fmt.Errorf("%w: cannot cancel a %s order", ErrIllegalTransition, o.Status)
		}
		refunded := PaymentRefunded
		return StatusChange{
			Expected:      o.Status,
			Target:        StatusCancelled,
			PaymentStatus: &refunded,
			UpdatedAt:     now,
		}, nil
	})
}

// transition reads the order, lets decide check authorization and legality
// against that snapshot, then writes with a compare-and-set on the status.
// Losing the race re-reads and decides again.
func (s *service) transition(
	ctx context.Context,
	path string,
	orderID string,
	decide func(o *Order, now time.Time) (StatusChange, error),
) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "transition"),
		zap.String("path", path),
		zap.String("order_id", orderID),
	)

	for attempt := 1; attempt <= maxTransitionAttempts; attempt++ {
		o, err := s.load(ctx, orderID)
		if err != nil {
			return nil, err
		}

		change, err := decide(o, s.now())
		if err != nil {
			s.metrics.Rejected("transition_"+path, rejectReason(err))
			log.Info("transition rejected", zap.String("status", string(o.Status)), zap.Error(err))
			return nil, err
		}

		ok, err := s.repo.UpdateStatus(ctx, o.ID, change)
		if err != nil {
			return nil, err
		}
		if !ok {
			log.Info("order moved during transition, retrying", zap.Int("attempt", attempt))
			continue
		}

		previous := o.Status
		change.apply(o)

		s.metrics.Transition(path, string(previous), string(o.Status))
		s.publish(ctx, events.OrderStatusChanged, o, previous)

		log.Info("order status changed",
			zap.String("from", string(previous)),
			zap.String("to", string(o.Status)),
		)
		return o, nil
	}

	return nil, ErrTransitionConflict
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrAccessDenied):
		return "access_denied"
	case errors.Is(err, ErrIllegalTransition):
		return "illegal_transition"
	default:
		return "other"
	}
}

func (s *service) Statistics(ctx context.Context, p Principal) (*Stats, error) {
	if !p.IsAdmin() {
		return nil, ErrAccessDenied
	}

	now := s.now().In(s.location)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)

	return s.repo.Stats(ctx, midnight)
}

// publish never fails the calling operation; the order is already committed.
func (s *service) publish(ctx context.Context, typ events.Type, o *Order, previous Status) {
	err := s.events.Publish(ctx, events.OrderEvent{
		Type:           typ,
		OrderID:        o.ID,
		UserID:         o.UserID,
		PreviousStatus: string(previous),
		CurrentStatus:  string(o.Status),
		PaymentStatus:  string(o.PaymentStatus),
		OccurredAt:     o.UpdatedAt,
	})
	if err != nil {
		logger.FromCtx(ctx).Warn("failed to publish order event",
			zap.String("event", string(typ)),
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
	}
}
