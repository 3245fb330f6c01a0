package vendors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gobazar/bazar-backend/internal/orders"
	"github.com/gobazar/bazar-backend/internal/storage"
)

type Repository interface {
	Create(ctx context.Context, v *Vendor) error
	GetByUserID(ctx context.Context, userID string) (*Vendor, error)
	GetByID(ctx context.Context, id string) (*Vendor, error)
	Update(ctx context.Context, v *Vendor) error
	List(ctx context.Context) ([]Vendor, error)
	Stats(ctx context.Context, vendorID string) (*Stats, error)
	Orders(ctx context.Context, vendorID string) ([]OrderView, error)
}

type PostgresRepository struct {
	db *storage.DB
}

func NewPostgresRepository(db *storage.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const vendorColumns = `id, user_id, store_name, description, phone, payout_number, is_verified, created_at`

func (r *PostgresRepository) Create(ctx context.Context, v *Vendor) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO vendors (id, user_id, store_name, description, phone, payout_number, is_verified)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		v.ID, v.UserID, v.StoreName, v.Description, v.Phone, v.PayoutNumber, v.IsVerified)
	if err != nil {
		if strings.Contains(err.Error(), "23505") {
			return ErrStoreNameTaken
		}
		return fmt.Errorf("insert vendor: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByUserID(ctx context.Context, userID string) (*Vendor, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+vendorColumns+` FROM vendors WHERE user_id = $1`, userID)
	return scanVendor(row)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Vendor, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+vendorColumns+` FROM vendors WHERE id = $1`, id)
	return scanVendor(row)
}

func (r *PostgresRepository) Update(ctx context.Context, v *Vendor) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE vendors SET store_name = $2, description = $3, phone = $4, payout_number = $5 WHERE id = $1`,
		v.ID, v.StoreName, v.Description, v.Phone, v.PayoutNumber)
	if err != nil {
		if strings.Contains(err.Error(), "23505") {
			return ErrStoreNameTaken
		}
		return fmt.Errorf("update vendor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVendorNotFound
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]Vendor, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+vendorColumns+` FROM vendors ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	defer rows.Close()

	var vendors []Vendor
	for rows.Next() {
		var v Vendor
		if err := rows.Scan(&v.ID, &v.UserID, &v.StoreName, &v.Description,
			&v.Phone, &v.PayoutNumber, &v.IsVerified, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan vendor: %w", err)
		}
		vendors = append(vendors, v)
	}
	return vendors, rows.Err()
}

func (r *PostgresRepository) Stats(ctx context.Context, vendorID string) (*Stats, error) {
	var s Stats
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM products WHERE vendor_id = $1`, vendorID).Scan(&s.ProductCount)
	if err != nil {
		return nil, fmt.Errorf("count vendor products: %w", err)
	}
	err = r.db.Pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(oi.quantity), 0), COALESCE(SUM(oi.quantity * oi.price_at_purchase), 0)
		 FROM order_items oi
		 JOIN products p ON p.id = oi.product_id
		 JOIN orders o ON o.id = oi.order_id
		 WHERE p.vendor_id = $1 AND o.payment_status = $2`,
		vendorID, orders.PaymentSuccess).Scan(&s.UnitsSold, &s.Revenue)
	if err != nil {
		return nil, fmt.Errorf("vendor sales stats: %w", err)
	}
	return &s, nil
}

// Orders returns orders containing this vendor's products, trimmed to the
// vendor's own line items.
func (r *PostgresRepository) Orders(ctx context.Context, vendorID string) ([]OrderView, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT o.id, o.transaction_id, o.customer_id, o.payment_status, o.order_status, o.created_at,
		        oi.product_id, p.name, oi.quantity, oi.price_at_purchase
		 FROM orders o
		 JOIN order_items oi ON oi.order_id = o.id
		 JOIN products p ON p.id = oi.product_id
		 WHERE p.vendor_id = $1
		 ORDER BY o.created_at DESC, o.id`,
		vendorID)
	if err != nil {
		return nil, fmt.Errorf("vendor orders: %w", err)
	}
	defer rows.Close()

	var views []OrderView
	index := map[string]int{}
	for rows.Next() {
		var (
			v    OrderView
			item OrderViewItem
		)
		if err := rows.Scan(&v.OrderID, &v.TransactionID, &v.CustomerID, &v.PaymentStatus,
			&v.OrderStatus, &v.CreatedAt, &item.ProductID, &item.ProductName,
			&item.Quantity, &item.Price); err != nil {
			return nil, fmt.Errorf("scan vendor order: %w", err)
		}
		i, ok := index[v.OrderID]
		if !ok {
			index[v.OrderID] = len(views)
			views = append(views, v)
			i = len(views) - 1
		}
		views[i].Items = append(views[i].Items, item)
		views[i].VendorTotal += float64(item.Quantity) * item.Price
	}
	return views, rows.Err()
}

func scanVendor(row pgx.Row) (*Vendor, error) {
	var v Vendor
	err := row.Scan(&v.ID, &v.UserID, &v.StoreName, &v.Description,
		&v.Phone, &v.PayoutNumber, &v.IsVerified, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrVendorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan vendor: %w", err)
	}
	return &v, nil
}
