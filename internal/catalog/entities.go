package catalog

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryTaken    = errors.New("category already exists")
	ErrNotOwner         = errors.New("product belongs to another vendor")
)

// Product is a catalog entry owned by a vendor. Stock here is the live
// available count; reservations decrement it atomically at order time.
type Product struct {
	ID          string    `json:"id"`
	VendorID    string    `json:"vendorId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Category    string    `json:"category"`
	Images      []string  `json:"images"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Image string `json:"image"`
}

// ProductInput carries create/update fields for a product.
type ProductInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Category    string   `json:"category"`
	Images      []string `json:"images"`
	Stock       int      `json:"stock"`
}

func (in ProductInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return errors.New("name is required")
	}
	if in.Price < 0 {
		return errors.New("price must not be negative")
	}
	if in.Stock < 0 {
		return errors.New("stock must not be negative")
	}
	if strings.TrimSpace(in.Category) == "" {
		return errors.New("category is required")
	}
	return nil
}

// ListFilter narrows and orders the public product listing.
type ListFilter struct {
	Search   string
	Category string
	MinPrice float64
	MaxPrice float64
	Sort     string
	Page     int
	Limit    int
}

// Slugify normalizes a category name into a URL slug.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Join(strings.Fields(slug), "-")
	var b strings.Builder
	for _, r := range slug {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' {
			b.WriteRune(r)
		}
	}
	slug = b.String()
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	return strings.Trim(slug, "-")
}
