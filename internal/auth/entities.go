package auth

import (
	"errors"
	"time"
)

// Roles.
const (
	RoleAdmin    = "ADMIN"
	RoleVendor   = "VENDOR"
	RoleCustomer = "CUSTOMER"
	RoleDelivery = "DELIVERY"
)

var (
	// ErrUserNotFound is returned when no user matches.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken is returned when registering with an existing email.
	ErrEmailTaken = errors.New("user already exists")

	// ErrInvalidCredentials is returned on a wrong email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidRole reports whether r is a known role.
func ValidRole(r string) bool {
	switch r {
	case RoleAdmin, RoleVendor, RoleCustomer, RoleDelivery:
		return true
	}
	return false
}

// User is an account of any role.
type User struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	Phone        string    `json:"phone" db:"phone"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Address is one entry in a user's address book.
type Address struct {
	ID         string `json:"id" db:"id"`
	UserID     string `json:"user_id" db:"user_id"`
	Details    string `json:"details" db:"details"`
	City       string `json:"city" db:"city"`
	PostalCode string `json:"postal_code" db:"postal_code"`
	IsDefault  bool   `json:"is_default" db:"is_default"`
}
