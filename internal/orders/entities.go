package orders

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Payment statuses. Success and Failed are terminal: once reached, no
// provider callback may change them again.
const (
	PaymentPending = "Pending"
	PaymentSuccess = "Success"
	PaymentFailed  = "Failed"
)

// Fulfillment statuses, independent of payment_status.
const (
	StatusPending        = "Pending"
	StatusProcessing     = "Processing"
	StatusShipped        = "Shipped"
	StatusOutForDelivery = "Out for Delivery"
	StatusDelivered      = "Delivered"
	StatusCancelled      = "Cancelled"
)

var (
	// ErrOrderNotFound is returned when no order matches the given id or
	// transaction id.
	ErrOrderNotFound = errors.New("order not found")

	// ErrNotPending is returned when a mutation requires a Pending order.
	ErrNotPending = errors.New("order is not pending")

	// ErrDuplicateRequest is returned when an idempotency key was already
	// claimed by an earlier placement.
	ErrDuplicateRequest = errors.New("idempotency key already used")
)

// ValidationError lists the input fields that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid order input: " + strings.Join(e.Fields, ", ")
}

// Item is a line-item snapshot. PriceAtPurchase is captured when the order
// is placed and never recomputed from the live product.
type Item struct {
	ProductID       string  `json:"product_id" db:"product_id"`
	Quantity        int     `json:"quantity" db:"quantity"`
	PriceAtPurchase float64 `json:"price_at_purchase" db:"price_at_purchase"`
}

// Order is the order aggregate.
type Order struct {
	ID               string    `json:"id" db:"id"`
	CustomerID       string    `json:"customer_id" db:"customer_id"`
	Items            []Item    `json:"items"`
	TotalAmount      float64   `json:"total_amount" db:"total_amount"`
	ShippingAddress  string    `json:"shipping_address" db:"shipping_address"`
	Phone            string    `json:"phone" db:"phone"`
	TransactionID    string    `json:"transaction_id" db:"transaction_id"`
	PaymentStatus    string    `json:"payment_status" db:"payment_status"`
	OrderStatus      string    `json:"order_status" db:"order_status"`
	DeliveryPersonID *string   `json:"delivery_person_id,omitempty" db:"delivery_person_id"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// NewOrder builds a Pending order. The total is computed here, server-side,
// from the snapshot items; a client-supplied total is never trusted.
func NewOrder(id, transactionID, customerID string, items []Item, shippingAddress, phone string) *Order {
	var total float64
	for _, it := range items {
		total += float64(it.Quantity) * it.PriceAtPurchase
	}
	now := time.Now()
	return &Order{
		ID:              id,
		CustomerID:      customerID,
		Items:           items,
		TotalAmount:     total,
		ShippingAddress: shippingAddress,
		Phone:           phone,
		TransactionID:   transactionID,
		PaymentStatus:   PaymentPending,
		OrderStatus:     StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// MarkPaid transitions Pending -> Success.
func (o *Order) MarkPaid() error {
	if o.PaymentStatus != PaymentPending {
		return fmt.Errorf("%w: payment_status=%s", ErrNotPending, o.PaymentStatus)
	}
	o.PaymentStatus = PaymentSuccess
	o.OrderStatus = StatusProcessing
	o.UpdatedAt = time.Now()
	return nil
}

// MarkFailed transitions Pending -> Failed.
func (o *Order) MarkFailed() error {
	if o.PaymentStatus != PaymentPending {
		return fmt.Errorf("%w: payment_status=%s", ErrNotPending, o.PaymentStatus)
	}
	o.PaymentStatus = PaymentFailed
	o.OrderStatus = StatusCancelled
	o.UpdatedAt = time.Now()
	return nil
}

// ValidOrderStatus reports whether s is a known fulfillment status.
func ValidOrderStatus(s string) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusOutForDelivery, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

const minAddressLength = 10

// ItemInput is one requested line item.
type ItemInput struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// PlacementInput is the request body for placing an order.
type PlacementInput struct {
	Items           []ItemInput `json:"products"`
	ShippingAddress string      `json:"shipping_address"`
	Phone           string      `json:"phone"`
}

// Validate checks the input shape and returns a ValidationError naming every
// violated field.
func (in *PlacementInput) Validate() error {
	var fields []string
	if len(in.Items) == 0 {
		fields = append(fields, "products")
	}
	for i, it := range in.Items {
		// Non-uuid ids would otherwise surface as database syntax errors.
		if uuid.Validate(it.ProductID) != nil {
			fields = append(fields, fmt.Sprintf("products[%d].product_id", i))
		}
		if it.Quantity < 1 {
			fields = append(fields, fmt.Sprintf("products[%d].quantity", i))
		}
	}
	if len(strings.TrimSpace(in.ShippingAddress)) < minAddressLength {
		fields = append(fields, "shipping_address")
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
