package order

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"campus-eats/internal/events"
	"campus-eats/internal/menu"
	"campus-eats/internal/utils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

const (
	pizzaID = "6f1c1a2e-4b7d-4c1e-9a51-1c2f3b4d5e6f"
	colaID  = "0b7e3f0a-2d55-4a7e-8c1b-6e2a9f3c4d5e"
	soldOut = "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
)

func clock() func() time.Time {
	return func() time.Time { return testNow }
}

func newOrderID() string {
	id, err := utils.NewOrderIDGenerator().Next(testNow)
	if err != nil {
		panic(err)
	}
	return id
}

// stubCatalog serves menu entries from a map.
type stubCatalog struct {
	mu      sync.Mutex
	entries map[string]menu.CatalogEntry
	calls   int
	err     error
}

func newStubCatalog() *stubCatalog {
	return &stubCatalog{entries: map[string]menu.CatalogEntry{
		pizzaID: {ItemID: pizzaID, Name: "Margherita", Price: decimal.RequireFromString("12.99"), Image: "pizza.jpg", IsAvailable: true},
		colaID:  {ItemID: colaID, Name: "Cola", Price: decimal.RequireFromString("1.50"), Image: menu.DefaultImage, IsAvailable: true},
		soldOut: {ItemID: soldOut, Name: "Truffle Fries", Price: decimal.RequireFromString("7.00"), IsAvailable: false},
	}}
}

func (c *stubCatalog) Resolve(_ context.Context, itemID string) (*menu.CatalogEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	e, ok := c.entries[itemID]
	if !ok {
		return nil, menu.ErrMenuItemNotFound
	}
	return &e, nil
}

func (c *stubCatalog) setPrice(itemID, price string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[itemID]
	e.Price = decimal.RequireFromString(price)
	c.entries[itemID] = e
}

// memRepo is an in-memory Repository with the same create-if-absent and
// compare-and-set semantics as the SQL one.
type memRepo struct {
	mu     sync.Mutex
	orders map[string]*Order
}

func newMemRepo() *memRepo {
	return &memRepo{orders: map[string]*Order{}}
}

func cloneOrder(o *Order) *Order {
	c := *o
	c.Items = append([]OrderItem(nil), o.Items...)
	if o.ActualDeliveryTime != nil {
		t := *o.ActualDeliveryTime
		c.ActualDeliveryTime = &t
	}
	return &c
}

func (r *memRepo) CreateOrder(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[o.ID]; ok {
		return ErrIdentifierCollision
	}
	r.orders[o.ID] = cloneOrder(o)
	return nil
}

func (r *memRepo) GetOrder(_ context.Context, orderID string) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (r *memRepo) sorted(keep func(*Order) bool) []*Order {
	out := []*Order{}
	for _, o := range r.orders {
		if keep(o) {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r *memRepo) ListByUser(_ context.Context, userID string) ([]*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(func(o *Order) bool { return o.UserID == userID }), nil
}

func matchesStatus(status *Status) func(*Order) bool {
	return func(o *Order) bool { return status == nil || o.Status == *status }
}

func (r *memRepo) FetchOrders(_ context.Context, status *Status, limit, offset int) ([]*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.sorted(matchesStatus(status))
	if offset >= len(all) {
		return []*Order{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	page := all[offset:end]
	for _, o := range page {
		o.Items = nil
	}
	return page, nil
}

func (r *memRepo) CountOrders(_ context.Context, status *Status) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.sorted(matchesStatus(status)))), nil
}

func (r *memRepo) FetchOrderItems(_ context.Context, orderIDs []string) (map[string][]OrderItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string][]OrderItem{}
	for _, id := range orderIDs {
		if o, ok := r.orders[id]; ok {
			out[id] = append([]OrderItem(nil), o.Items...)
		}
	}
	return out, nil
}

func (r *memRepo) UpdateStatus(_ context.Context, orderID string, change StatusChange) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok || o.Status != change.Expected {
		return false, nil
	}
	change.apply(o)
	return true, nil
}

func (r *memRepo) Stats(_ context.Context, since time.Time) (*Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &Stats{TotalRevenue: decimal.Zero}
	for _, o := range r.orders {
		s.TotalOrders++
		switch o.Status {
		case StatusPending:
			s.PendingOrders++
		case StatusDelivered:
			s.DeliveredOrders++
			s.TotalRevenue = s.TotalRevenue.Add(o.TotalAmount)
		}
		if !o.CreatedAt.Before(since) {
			s.TodayOrders++
		}
	}
	return s, nil
}

func (r *memRepo) put(o *Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = cloneOrder(o)
}

// MockRepository is used where a test needs to script storage behaviour.
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateOrder(ctx context.Context, o *Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockRepository) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return cloneOrder(args.Get(0).(*Order)), args.Error(1)
}

func (m *MockRepository) ListByUser(ctx context.Context, userID string) ([]*Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Order), args.Error(1)
}

func (m *MockRepository) FetchOrders(ctx context.Context, status *Status, limit, offset int) ([]*Order, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Order), args.Error(1)
}

func (m *MockRepository) CountOrders(ctx context.Context, status *Status) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) FetchOrderItems(ctx context.Context, orderIDs []string) (map[string][]OrderItem, error) {
	args := m.Called(ctx, orderIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string][]OrderItem), args.Error(1)
}

func (m *MockRepository) UpdateStatus(ctx context.Context, orderID string, change StatusChange) (bool, error) {
	args := m.Called(ctx, orderID, change)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Stats), args.Error(1)
}

// sequenceIDs hands out the given ids in order.
type sequenceIDs struct {
	mu  sync.Mutex
	ids []string
}

func (s *sequenceIDs) Next(time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ids) == 0 {
		return "", errors.New("no ids left")
	}
	id := s.ids[0]
	s.ids = s.ids[1:]
	return id, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }
