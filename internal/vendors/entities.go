package vendors

import (
	"errors"
	"time"
)

var (
	ErrVendorNotFound = errors.New("vendor not found")
	ErrStoreNameTaken = errors.New("store name already taken")
)

type Vendor struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	StoreName    string    `json:"storeName"`
	Description  string    `json:"description"`
	Phone        string    `json:"phone"`
	PayoutNumber string    `json:"payoutNumber"`
	IsVerified   bool      `json:"isVerified"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Stats aggregates a vendor's catalog and sales. Revenue counts only
// orders whose payment succeeded.
type Stats struct {
	ProductCount int     `json:"productCount"`
	UnitsSold    int     `json:"unitsSold"`
	Revenue      float64 `json:"revenue"`
}

// OrderView is an order as a vendor sees it: only the vendor's own line
// items, with the vendor's share of the total.
type OrderView struct {
	OrderID       string          `json:"orderId"`
	TransactionID string          `json:"transactionId"`
	CustomerID    string          `json:"customerId"`
	PaymentStatus string          `json:"paymentStatus"`
	OrderStatus   string          `json:"orderStatus"`
	CreatedAt     time.Time       `json:"createdAt"`
	Items         []OrderViewItem `json:"items"`
	VendorTotal   float64         `json:"vendorTotal"`
}

type OrderViewItem struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

type ProfileInput struct {
	StoreName    string `json:"storeName"`
	Description  string `json:"description"`
	Phone        string `json:"phone"`
	PayoutNumber string `json:"payoutNumber"`
}
