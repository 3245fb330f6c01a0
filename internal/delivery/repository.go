package delivery

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gobazar/bazar-backend/internal/orders"
	"github.com/gobazar/bazar-backend/internal/storage"
)

type Repository interface {
	Assign(ctx context.Context, orderID, personID string) (bool, error)
	AssignedPerson(ctx context.Context, orderID string) (string, error)
	SetOrderStatus(ctx context.Context, orderID, status string) (bool, error)
	AppendTracking(ctx context.Context, orderID, status, note string) error
	ListTracking(ctx context.Context, orderID string) ([]TrackingEntry, error)
	ListAssignments(ctx context.Context, personID string) ([]Assignment, error)
}

type PostgresRepository struct {
	db *storage.DB
}

func NewPostgresRepository(db *storage.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Assign(ctx context.Context, orderID, personID string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE orders SET delivery_person_id = $2, order_status = $3 WHERE id = $1`,
		orderID, personID, orders.StatusProcessing)
	if err != nil {
		return false, fmt.Errorf("assign order: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// AssignedPerson returns the delivery person on the order, empty when
// unassigned.
func (r *PostgresRepository) AssignedPerson(ctx context.Context, orderID string) (string, error) {
	var personID *string
	err := r.db.Pool.QueryRow(ctx,
		`SELECT delivery_person_id FROM orders WHERE id = $1`, orderID).Scan(&personID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", orders.ErrOrderNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get assigned person: %w", err)
	}
	if personID == nil {
		return "", nil
	}
	return *personID, nil
}

func (r *PostgresRepository) SetOrderStatus(ctx context.Context, orderID, status string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE orders SET order_status = $2 WHERE id = $1`, orderID, status)
	if err != nil {
		return false, fmt.Errorf("set order status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepository) AppendTracking(ctx context.Context, orderID, status, note string) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO order_tracking (id, order_id, status, note) VALUES ($1, $2, $3, $4)`,
		uuid.NewString(), orderID, status, note)
	if err != nil {
		return fmt.Errorf("append tracking: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListTracking(ctx context.Context, orderID string) ([]TrackingEntry, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, order_id, status, note, created_at
		 FROM order_tracking WHERE order_id = $1 ORDER BY created_at`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("list tracking: %w", err)
	}
	defer rows.Close()

	var entries []TrackingEntry
	for rows.Next() {
		var e TrackingEntry
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Status, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tracking entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *PostgresRepository) ListAssignments(ctx context.Context, personID string) ([]Assignment, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, transaction_id, customer_id, shipping_address, phone, order_status, total_amount, created_at
		 FROM orders WHERE delivery_person_id = $1 ORDER BY created_at DESC`,
		personID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.OrderID, &a.TransactionID, &a.CustomerID, &a.ShippingAddress,
			&a.Phone, &a.OrderStatus, &a.TotalAmount, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}
