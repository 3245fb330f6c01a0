package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines user persistence operations.
type Repository interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateProfile(ctx context.Context, id, name, phone string) (*User, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error

	// Contact returns the fields the payment gateway session needs.
	Contact(ctx context.Context, id string) (name, email, phone string, err error)

	ListAddresses(ctx context.Context, userID string) ([]Address, error)
	AddAddress(ctx context.Context, a *Address) error
	DeleteAddress(ctx context.Context, userID, addressID string) error
	SetDefaultAddress(ctx context.Context, userID, addressID string) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, name, email, password_hash, role, phone, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Phone, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *PostgresRepository) CreateUser(ctx context.Context, u *User) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, name, email, password_hash, role, phone)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.Phone)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetUser(ctx context.Context, id string) (*User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, id, name, phone string) (*User, error) {
	return scanUser(r.db.QueryRow(ctx, `
		UPDATE users SET name = $2, phone = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns, id, name, phone))
}

func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1
	`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PostgresRepository) Contact(ctx context.Context, id string) (string, string, string, error) {
	var name, email, phone string
	err := r.db.QueryRow(ctx, `SELECT name, email, phone FROM users WHERE id = $1`, id).
		Scan(&name, &email, &phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", "", ErrUserNotFound
		}
		return "", "", "", err
	}
	return name, email, phone, nil
}

func (r *PostgresRepository) ListAddresses(ctx context.Context, userID string) ([]Address, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, details, city, postal_code, is_default
		FROM addresses WHERE user_id = $1 ORDER BY is_default DESC, id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Address
	for rows.Next() {
		var a Address
		if err := rows.Scan(&a.ID, &a.UserID, &a.Details, &a.City, &a.PostalCode, &a.IsDefault); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) AddAddress(ctx context.Context, a *Address) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}

	// The first address becomes the default. Deciding the flag inside the
	// INSERT keeps two concurrent adds from both claiming it.
	return r.db.QueryRow(ctx, `
		INSERT INTO addresses (id, user_id, details, city, postal_code, is_default)
		VALUES ($1, $2, $3, $4, $5,
			NOT EXISTS (SELECT 1 FROM addresses WHERE user_id = $2))
		RETURNING is_default
	`, a.ID, a.UserID, a.Details, a.City, a.PostalCode).Scan(&a.IsDefault)
}

func (r *PostgresRepository) DeleteAddress(ctx context.Context, userID, addressID string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM addresses WHERE id = $1 AND user_id = $2`, addressID, userID)
	return err
}

func (r *PostgresRepository) SetDefaultAddress(ctx context.Context, userID, addressID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE addresses SET is_default = (id = $1) WHERE user_id = $2
	`, addressID, userID)
	return err
}
