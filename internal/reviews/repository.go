package reviews

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/gobazar/bazar-backend/internal/storage"
)

type Repository interface {
	Create(ctx context.Context, r *Review) error
	ListByProduct(ctx context.Context, productID string) ([]Review, error)
	DeleteOwn(ctx context.Context, reviewID, userID string) (bool, error)
}

type PostgresRepository struct {
	db *storage.DB
}

func NewPostgresRepository(db *storage.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, rev *Review) error {
	if rev.ID == "" {
		rev.ID = uuid.NewString()
	}
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO reviews (id, user_id, product_id, rating, comment)
		 VALUES ($1, $2, $3, $4, $5)`,
		rev.ID, rev.UserID, rev.ProductID, rev.Rating, rev.Comment)
	if err != nil {
		if strings.Contains(err.Error(), "23505") {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// ListByProduct returns a product's reviews with the reviewer's display
// name, newest first.
func (r *PostgresRepository) ListByProduct(ctx context.Context, productID string) ([]Review, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT rv.id, rv.user_id, u.name, rv.product_id, rv.rating, rv.comment, rv.created_at
		 FROM reviews rv
		 JOIN users u ON u.id = rv.user_id
		 WHERE rv.product_id = $1
		 ORDER BY rv.created_at DESC`,
		productID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []Review
	for rows.Next() {
		var rev Review
		if err := rows.Scan(&rev.ID, &rev.UserID, &rev.ReviewerName, &rev.ProductID,
			&rev.Rating, &rev.Comment, &rev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, rev)
	}
	return reviews, rows.Err()
}

func (r *PostgresRepository) DeleteOwn(ctx context.Context, reviewID, userID string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM reviews WHERE id = $1 AND user_id = $2`, reviewID, userID)
	if err != nil {
		return false, fmt.Errorf("delete review: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
