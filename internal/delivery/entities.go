package delivery

import (
	"errors"
	"time"
)

var (
	ErrNotAssigned      = errors.New("order is not assigned to you")
	ErrNotDeliveryStaff = errors.New("user is not delivery staff")
	ErrInvalidStatus    = errors.New("invalid delivery status")
)

// TrackingEntry is one row of an order's append-only status history.
type TrackingEntry struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"orderId"`
	Status    string    `json:"status"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"createdAt"`
}

// Assignment is an order as the assigned delivery person sees it.
type Assignment struct {
	OrderID         string    `json:"orderId"`
	TransactionID   string    `json:"transactionId"`
	CustomerID      string    `json:"customerId"`
	ShippingAddress string    `json:"shippingAddress"`
	Phone           string    `json:"phone"`
	OrderStatus     string    `json:"orderStatus"`
	TotalAmount     float64   `json:"totalAmount"`
	CreatedAt       time.Time `json:"createdAt"`
}
