package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// OrderStatuses est l'ensemble énuméré, dans l'ordre d'affichage
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) String() string {
	return string(s)
}

type OrderUser struct {
	ID        ID        `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// OrderCustomization est la copie figée d'une personnalisation au moment de la commande
type OrderCustomization struct {
	ID            ID              `json:"id"`
	SelectedValue string          `json:"selected_value"`
	PriceImpact   decimal.Decimal `json:"price_impact"`
}

type OrderItem struct {
	ID             ID                   `json:"id"`
	Quantity       int                  `json:"quantity"`
	Product        Product              `json:"product"`
	Customizations []OrderCustomization `json:"customizations"`
}

type Order struct {
	ID              ID              `json:"id"`
	OrderDate       time.Time       `json:"order_date"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	Status          OrderStatus     `json:"status"`
	ShippingAddress string          `json:"shipping_address"`
	User            OrderUser       `json:"user"`
	Discount        *Discount       `json:"discount"`
	OrderItems      []OrderItem     `json:"order_items"`
}
