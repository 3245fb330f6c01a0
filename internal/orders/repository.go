package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gobazar/bazar-backend/internal/storage"
)

// Repository defines the order persistence operations.
type Repository interface {
	// CreateOrder inserts the order and its items inside the caller's
	// transaction.
	CreateOrder(ctx context.Context, tx storage.Tx, order *Order) error

	// GetOrder loads an order with its items.
	GetOrder(ctx context.Context, orderID string) (*Order, error)

	// GetByTransactionID loads an order by its gateway transaction id.
	GetByTransactionID(ctx context.Context, transactionID string) (*Order, error)

	// GetByTransactionIDForUpdate loads the order with a row lock, so
	// concurrent callbacks for the same transaction serialize.
	GetByTransactionIDForUpdate(ctx context.Context, tx storage.Tx, transactionID string) (*Order, error)

	// GetOrderForUpdate is GetByTransactionIDForUpdate keyed by order id.
	GetOrderForUpdate(ctx context.Context, tx storage.Tx, orderID string) (*Order, error)

	// MarkPaid is the compare-and-set Pending -> Success. It reports whether
	// the transition happened; false with nil error means the order was not
	// Pending (or does not exist).
	MarkPaid(ctx context.Context, transactionID string) (bool, error)

	// SetPaymentStatusTx updates both statuses inside the caller's
	// transaction, alongside the stock compensation.
	SetPaymentStatusTx(ctx context.Context, tx storage.Tx, orderID, paymentStatus, orderStatus string) error

	// UpdateOrderStatus sets the fulfillment status only.
	UpdateOrderStatus(ctx context.Context, orderID, status string) error

	ListByCustomer(ctx context.Context, customerID string) ([]Order, error)
	ListAll(ctx context.Context, page, limit int) ([]Order, int, error)

	// ListByVendorUser returns orders containing at least one product owned
	// by the vendor linked to the given user.
	ListByVendorUser(ctx context.Context, userID string) ([]Order, error)

	// ListStalePending returns transaction ids of Pending orders created
	// before the cutoff.
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]string, error)

	Delete(ctx context.Context, orderID string) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const orderColumns = `id, customer_id, total_amount, shipping_address, phone,
	transaction_id, payment_status, order_status, delivery_person_id, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.CustomerID, &o.TotalAmount, &o.ShippingAddress, &o.Phone,
		&o.TransactionID, &o.PaymentStatus, &o.OrderStatus, &o.DeliveryPersonID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *PostgresRepository) CreateOrder(ctx context.Context, tx storage.Tx, order *Order) error {
	pgTx := storage.Unwrap(tx)

	_, err := pgTx.Exec(ctx, `
		INSERT INTO orders (id, customer_id, total_amount, shipping_address, phone,
			transaction_id, payment_status, order_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, order.ID, order.CustomerID, order.TotalAmount, order.ShippingAddress, order.Phone,
		order.TransactionID, order.PaymentStatus, order.OrderStatus, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for _, it := range order.Items {
		_, err := pgTx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, price_at_purchase)
			VALUES ($1, $2, $3, $4, $5)
		`, uuid.New().String(), order.ID, it.ProductID, it.Quantity, it.PriceAtPurchase)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) loadItems(ctx context.Context, q interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}, orderID string) ([]Item, error) {
	rows, err := q.Query(ctx, `
		SELECT product_id, quantity, price_at_purchase
		FROM order_items WHERE order_id = $1
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.Quantity, &it.PriceAtPurchase); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *PostgresRepository) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
	if err != nil {
		return nil, err
	}
	o.Items, err = r.loadItems(ctx, r.db, orderID)
	return o, err
}

func (r *PostgresRepository) GetByTransactionID(ctx context.Context, transactionID string) (*Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE transaction_id = $1`, transactionID))
	if err != nil {
		return nil, err
	}
	o.Items, err = r.loadItems(ctx, r.db, o.ID)
	return o, err
}

func (r *PostgresRepository) GetByTransactionIDForUpdate(ctx context.Context, tx storage.Tx, transactionID string) (*Order, error) {
	pgTx := storage.Unwrap(tx)
	o, err := scanOrder(pgTx.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE transaction_id = $1 FOR UPDATE`, transactionID))
	if err != nil {
		return nil, err
	}
	o.Items, err = r.loadItems(ctx, pgTx, o.ID)
	return o, err
}

func (r *PostgresRepository) GetOrderForUpdate(ctx context.Context, tx storage.Tx, orderID string) (*Order, error) {
	pgTx := storage.Unwrap(tx)
	o, err := scanOrder(pgTx.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, orderID))
	if err != nil {
		return nil, err
	}
	o.Items, err = r.loadItems(ctx, pgTx, o.ID)
	return o, err
}

func (r *PostgresRepository) MarkPaid(ctx context.Context, transactionID string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET payment_status = $2, order_status = $3, updated_at = NOW()
		WHERE transaction_id = $1 AND payment_status = $4
	`, transactionID, PaymentSuccess, StatusProcessing, PaymentPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresRepository) SetPaymentStatusTx(ctx context.Context, tx storage.Tx, orderID, paymentStatus, orderStatus string) error {
	pgTx := storage.Unwrap(tx)
	_, err := pgTx.Exec(ctx, `
		UPDATE orders
		SET payment_status = $2, order_status = $3, updated_at = NOW()
		WHERE id = $1
	`, orderID, paymentStatus, orderStatus)
	return err
}

func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET order_status = $2, updated_at = NOW()
		WHERE id = $1
	`, orderID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *PostgresRepository) listByQuery(ctx context.Context, query string, args ...any) ([]Order, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.TotalAmount, &o.ShippingAddress, &o.Phone,
			&o.TransactionID, &o.PaymentStatus, &o.OrderStatus, &o.DeliveryPersonID, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		items, err := r.loadItems(ctx, r.db, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

func (r *PostgresRepository) ListByCustomer(ctx context.Context, customerID string) ([]Order, error) {
	return r.listByQuery(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`,
		customerID)
}

func (r *PostgresRepository) ListAll(ctx context.Context, page, limit int) ([]Order, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	list, err := r.listByQuery(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *PostgresRepository) ListByVendorUser(ctx context.Context, userID string) ([]Order, error) {
	return r.listByQuery(ctx, `
		SELECT DISTINCT o.id, o.customer_id, o.total_amount, o.shipping_address, o.phone,
			o.transaction_id, o.payment_status, o.order_status, o.delivery_person_id, o.created_at, o.updated_at
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		JOIN products p ON p.id = oi.product_id
		JOIN vendors v ON v.id = p.vendor_id
		WHERE v.user_id = $1
		ORDER BY o.created_at DESC
	`, userID)
}

func (r *PostgresRepository) ListStalePending(ctx context.Context, before time.Time, limit int) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT transaction_id FROM orders
		WHERE payment_status = $1 AND created_at < $2
		ORDER BY created_at
		LIMIT $3
	`, PaymentPending, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PostgresRepository) Delete(ctx context.Context, orderID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}
