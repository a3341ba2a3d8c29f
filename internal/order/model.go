package order

import (
	"time"

	"campus-eats/internal/utils"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusReady, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Cancellable reports whether the owner may still cancel an order in this status.
func (s Status) Cancellable() bool {
	return s == StatusPending || s == StatusConfirmed
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentUPI    PaymentMethod = "upi"
	PaymentWallet PaymentMethod = "wallet"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentUPI, PaymentWallet:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

const (
	MaxInstructionsLength = 200
	MaxLineQuantity       = 99
)

// maxOrderTotal is the first amount that no longer fits orders.total_amount NUMERIC(12,2).
var maxOrderTotal = decimal.New(1, 10)

type DeliveryAddress struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
}

// OrderItem is a line with the catalog facts captured at creation time.
type OrderItem struct {
	MenuItemID string
	Name       string
	Image      string
	Quantity   int
	UnitPrice  decimal.Decimal
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID                    string
	UserID                string
	Items                 []OrderItem
	TotalAmount           decimal.Decimal
	Status                Status
	PaymentMethod         PaymentMethod
	PaymentStatus         PaymentStatus
	DeliveryAddress       DeliveryAddress
	SpecialInstructions   string
	EstimatedDeliveryTime time.Time
	ActualDeliveryTime    *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Principal is the authenticated caller as supplied by the identity provider.
type Principal struct {
	UserID string
	Role   string
}

func (p Principal) IsAdmin() bool {
	return p.Role == utils.RoleAdmin
}

func (p Principal) Owns(o *Order) bool {
	return p.UserID != "" && o.UserID == p.UserID
}

type LineRequest struct {
	MenuItemID string `json:"menuItem"`
	Quantity   int    `json:"quantity"`
}

type CreateOrderInput struct {
	Items               []LineRequest   `json:"items"`
	PaymentMethod       PaymentMethod   `json:"paymentMethod"`
	DeliveryAddress     DeliveryAddress `json:"deliveryAddress"`
	SpecialInstructions string          `json:"specialInstructions"`
}

type ListFilter struct {
	Status   *Status
	Page     int
	PageSize int
}

type OrderPage struct {
	Orders     []*Order
	Total      int64
	Page       int
	PageSize   int
	TotalPages int
}

type Stats struct {
	TotalOrders     int64
	PendingOrders   int64
	DeliveredOrders int64
	TodayOrders     int64
	TotalRevenue    decimal.Decimal
}

// StatusChange is a compare-and-set update: it only applies while the order
// is still in Expected. Nil fields leave the stored value untouched.
type StatusChange struct {
	Expected           Status
	Target             Status
	PaymentStatus      *PaymentStatus
	ActualDeliveryTime *time.Time
	UpdatedAt          time.Time
}

func (c StatusChange) apply(o *Order) {
	o.Status = c.Target
	if c.PaymentStatus != nil {
		o.PaymentStatus = *c.PaymentStatus
	}
	if c.ActualDeliveryTime != nil {
		t := *c.ActualDeliveryTime
		o.ActualDeliveryTime = &t
	}
	o.UpdatedAt = c.UpdatedAt
}
