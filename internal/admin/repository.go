package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/gobazar/bazar-backend/internal/orders"
	"github.com/gobazar/bazar-backend/internal/storage"
)

// DashboardStats is the admin overview. Revenue counts only paid orders.
type DashboardStats struct {
	TotalUsers    int     `json:"totalUsers"`
	TotalOrders   int     `json:"totalOrders"`
	TotalProducts int     `json:"totalProducts"`
	TotalVendors  int     `json:"totalVendors"`
	PendingOrders int     `json:"pendingOrders"`
	Revenue       float64 `json:"revenue"`
}

// UserSummary is a user row without credential fields.
type UserSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
}

type Repository interface {
	Dashboard(ctx context.Context) (*DashboardStats, error)
	ListUsers(ctx context.Context) ([]UserSummary, error)
	ListUsersByRole(ctx context.Context, role string) ([]UserSummary, error)
	UpdateUserRole(ctx context.Context, userID, role string) (bool, error)
	DeleteUser(ctx context.Context, userID string) (bool, error)
}

type PostgresRepository struct {
	db *storage.DB
}

func NewPostgresRepository(db *storage.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Dashboard(ctx context.Context) (*DashboardStats, error) {
	var s DashboardStats
	err := r.db.Pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM orders),
			(SELECT COUNT(*) FROM products),
			(SELECT COUNT(*) FROM vendors),
			(SELECT COUNT(*) FROM orders WHERE payment_status = $1),
			(SELECT COALESCE(SUM(total_amount), 0) FROM orders WHERE payment_status = $2)`,
		orders.PaymentPending, orders.PaymentSuccess).
		Scan(&s.TotalUsers, &s.TotalOrders, &s.TotalProducts, &s.TotalVendors,
			&s.PendingOrders, &s.Revenue)
	if err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}
	return &s, nil
}

const userColumns = `id, name, email, role, phone, created_at`

func (r *PostgresRepository) ListUsers(ctx context.Context) ([]UserSummary, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (r *PostgresRepository) ListUsersByRole(ctx context.Context, role string) ([]UserSummary, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY created_at DESC`, role)
	if err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (r *PostgresRepository) UpdateUserRole(ctx context.Context, userID, role string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE users SET role = $2 WHERE id = $1`, userID, role)
	if err != nil {
		return false, fmt.Errorf("update user role: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepository) DeleteUser(ctx context.Context, userID string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanUsers(rows pgx.Rows) ([]UserSummary, error) {
	var users []UserSummary
	for rows.Next() {
		var u UserSummary
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Phone, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
