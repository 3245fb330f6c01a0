// Package inventory owns product stock. Stock is never assigned directly by
// any other package; every change goes through the Ledger's atomic
// reserve/release operations inside the caller's transaction.
package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/gobazar/bazar-backend/internal/storage"
)

var (
	// ErrProductNotFound is returned when a reservation targets a product
	// that does not exist.
	ErrProductNotFound = errors.New("product not found")

	// ErrOutOfStock is returned when the requested quantity exceeds the
	// product's current stock.
	ErrOutOfStock = errors.New("insufficient stock")
)

// Movement types recorded in inventory_movements. A row per (order, type)
// is the exactly-once guard for stock compensation.
const (
	MovementReserved = "reserved"
	MovementReleased = "released"
)

// Movement is an audit record of a stock change tied to an order.
type Movement struct {
	ID             string    `json:"id" db:"id"`
	ProductID      string    `json:"product_id" db:"product_id"`
	OrderID        string    `json:"order_id" db:"order_id"`
	ChangeQuantity int       `json:"change_quantity" db:"change_quantity"`
	MovementType   string    `json:"movement_type" db:"movement_type"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Ledger is the stock contract. Both mutations are atomic with respect to
// concurrent reservations on the same product: two simultaneous orders for
// the last unit must not both succeed.
type Ledger interface {
	// Reserve decrements stock by quantity and returns the unit price for
	// snapshotting. Fails with ErrOutOfStock or ErrProductNotFound without
	// touching stock.
	Reserve(ctx context.Context, tx storage.Tx, orderID, productID string, quantity int) (float64, error)

	// Release increments stock back by quantity and records a movement.
	// A deleted product is a no-op, not an error, so refund flows never block.
	Release(ctx context.Context, tx storage.Tx, orderID, productID string, quantity int) error

	// MovementExists reports whether a movement of the given type was already
	// recorded for the order.
	MovementExists(ctx context.Context, tx storage.Tx, orderID, movementType string) (bool, error)
}
