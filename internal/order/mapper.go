package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type MenuItemRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

type OrderItemResponse struct {
	MenuItem MenuItemRef     `json:"menuItem"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type OrderResponse struct {
	ID                    string              `json:"id"`
	OrderNumber           string              `json:"orderNumber"`
	UserID                string              `json:"user"`
	Items                 []OrderItemResponse `json:"items"`
	TotalAmount           decimal.Decimal     `json:"totalAmount"`
	Status                Status              `json:"status"`
	PaymentMethod         PaymentMethod       `json:"paymentMethod"`
	PaymentStatus         PaymentStatus       `json:"paymentStatus"`
	DeliveryAddress       DeliveryAddress     `json:"deliveryAddress"`
	SpecialInstructions   string              `json:"specialInstructions,omitempty"`
	EstimatedDeliveryTime time.Time           `json:"estimatedDeliveryTime"`
	ActualDeliveryTime    *time.Time          `json:"actualDeliveryTime,omitempty"`
	CreatedAt             time.Time           `json:"createdAt"`
	UpdatedAt             time.Time           `json:"updatedAt"`
}

type PaginationResponse struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type OrderPageResponse struct {
	Orders     []*OrderResponse   `json:"orders"`
	Pagination PaginationResponse `json:"pagination"`
}

type StatsResponse struct {
	TotalOrders     int64           `json:"totalOrders"`
	PendingOrders   int64           `json:"pendingOrders"`
	DeliveredOrders int64           `json:"deliveredOrders"`
	TodayOrders     int64           `json:"todayOrders"`
	TotalRevenue    decimal.Decimal `json:"totalRevenue"`
}

func ToOrderItemResponse(i OrderItem) OrderItemResponse {
	return OrderItemResponse{
		MenuItem: MenuItemRef{ID: i.MenuItemID, Name: i.Name, Image: i.Image},
		Quantity: i.Quantity,
		Price:    i.UnitPrice,
		Subtotal: i.Subtotal(),
	}
}

func ToOrderResponse(o *Order) *OrderResponse {
	if o == nil {
		return nil
	}

	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, ToOrderItemResponse(item))
	}

	return &OrderResponse{
		ID:                    o.ID,
		OrderNumber:           o.ID,
		UserID:                o.UserID,
		Items:                 items,
		TotalAmount:           o.TotalAmount,
		Status:                o.Status,
		PaymentMethod:         o.PaymentMethod,
		PaymentStatus:         o.PaymentStatus,
		DeliveryAddress:       o.DeliveryAddress,
		SpecialInstructions:   o.SpecialInstructions,
		EstimatedDeliveryTime: o.EstimatedDeliveryTime,
		ActualDeliveryTime:    o.ActualDeliveryTime,
		CreatedAt:             o.CreatedAt,
		UpdatedAt:             o.UpdatedAt,
	}
}

func ToOrderResponses(orders []*Order) []*OrderResponse {
	out := make([]*OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, ToOrderResponse(o))
	}
	return out
}

func ToOrderPageResponse(p *OrderPage) *OrderPageResponse {
	return &OrderPageResponse{
		Orders: ToOrderResponses(p.Orders),
		Pagination: PaginationResponse{
			Page:       p.Page,
			Limit:      p.PageSize,
			Total:      p.Total,
			TotalPages: p.TotalPages,
		},
	}
}

func ToStatsResponse(s *Stats) *StatsResponse {
	return &StatsResponse{
		TotalOrders:     s.TotalOrders,
		PendingOrders:   s.PendingOrders,
		DeliveredOrders: s.DeliveredOrders,
		TodayOrders:     s.TodayOrders,
		TotalRevenue:    s.TotalRevenue,
	}
}
