package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gobazar/bazar-backend/internal/storage"
)

// PostgresLedger implements Ledger on Postgres. Atomicity comes from
// single-statement conditional updates, not from application locks.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger creates the Postgres-backed Ledger.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// Reserve performs the conditional decrement. The WHERE clause carries the
// stock check, so the row either changes atomically or not at all.
func (l *PostgresLedger) Reserve(ctx context.Context, tx storage.Tx, orderID, productID string, quantity int) (float64, error) {
	pgTx := storage.Unwrap(tx)

	var price float64
	err := pgTx.QueryRow(ctx, `
		UPDATE products
		SET stock = stock - $2,
		    updated_at = NOW()
		WHERE id = $1 AND stock >= $2
		RETURNING price
	`, productID, quantity).Scan(&price)

	if err == nil {
		if err := l.recordMovement(ctx, tx, orderID, productID, -quantity, MovementReserved); err != nil {
			return 0, err
		}
		return price, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("failed to reserve stock for %s: %w", productID, err)
	}

	// Zero rows: the product is either missing or short on stock.
	var exists bool
	if serr := pgTx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, productID,
	).Scan(&exists); serr != nil {
		return 0, fmt.Errorf("failed to check product %s: %w", productID, serr)
	}
	if !exists {
		return 0, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}
	return 0, fmt.Errorf("%w: %s", ErrOutOfStock, productID)
}

// Release increments stock back. Zero rows affected means the product was
// deleted in the interim; the movement is still recorded so replayed
// callbacks stay no-ops.
func (l *PostgresLedger) Release(ctx context.Context, tx storage.Tx, orderID, productID string, quantity int) error {
	pgTx := storage.Unwrap(tx)

	_, err := pgTx.Exec(ctx, `
		UPDATE products
		SET stock = stock + $2,
		    updated_at = NOW()
		WHERE id = $1
	`, productID, quantity)
	if err != nil {
		return fmt.Errorf("failed to release stock for %s: %w", productID, err)
	}

	return l.recordMovement(ctx, tx, orderID, productID, quantity, MovementReleased)
}

// MovementExists checks the idempotency guard inside the transaction.
func (l *PostgresLedger) MovementExists(ctx context.Context, tx storage.Tx, orderID, movementType string) (bool, error) {
	pgTx := storage.Unwrap(tx)

	var exists bool
	err := pgTx.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM inventory_movements
			WHERE order_id = $1 AND movement_type = $2
		)
	`, orderID, movementType).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (l *PostgresLedger) recordMovement(ctx context.Context, tx storage.Tx, orderID, productID string, change int, movementType string) error {
	pgTx := storage.Unwrap(tx)

	_, err := pgTx.Exec(ctx, `
		INSERT INTO inventory_movements (id, product_id, order_id, change_quantity, movement_type)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New().String(), productID, orderID, change, movementType)
	if err != nil {
		return fmt.Errorf("failed to insert movement record: %w", err)
	}
	return nil
}
