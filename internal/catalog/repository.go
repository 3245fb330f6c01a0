package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gobazar/bazar-backend/internal/storage"
)

type Repository interface {
	CreateProduct(ctx context.Context, p *Product) error
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListProducts(ctx context.Context, f ListFilter) ([]Product, int, error)
	ListByVendor(ctx context.Context, vendorID string) ([]Product, error)
	UpdateProduct(ctx context.Context, p *Product) error
	DeleteProduct(ctx context.Context, id string) error

	CreateCategory(ctx context.Context, c *Category) error
	ListCategories(ctx context.Context) ([]Category, error)
	UpdateCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, id string) error
}

type PostgresRepository struct {
	db *storage.DB
}

func NewPostgresRepository(db *storage.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const productColumns = `id, vendor_id, name, description, price, category, images, stock, created_at, updated_at`

func (r *PostgresRepository) CreateProduct(ctx context.Context, p *Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO products (id, vendor_id, name, description, price, category, images, stock)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.VendorID, p.Name, p.Description, p.Price, p.Category, p.Images, p.Stock)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetProduct(ctx context.Context, id string) (*Product, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

func (r *PostgresRepository) ListProducts(ctx context.Context, f ListFilter) ([]Product, int, error) {
	where := []string{"TRUE"}
	args := []any{}

	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.MinPrice > 0 {
		args = append(args, f.MinPrice)
		where = append(where, fmt.Sprintf("price >= $%d", len(args)))
	}
	if f.MaxPrice > 0 {
		args = append(args, f.MaxPrice)
		where = append(where, fmt.Sprintf("price <= $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM products WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	order := "created_at DESC"
	switch f.Sort {
	case "price_asc":
		order = "price ASC"
	case "price_desc":
		order = "price DESC"
	case "name":
		order = "name ASC"
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	query := fmt.Sprintf(`SELECT %s FROM products WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		productColumns, cond, order, len(args)-1, len(args))

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products, err := scanProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *PostgresRepository) ListByVendor(ctx context.Context, vendorID string) ([]Product, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE vendor_id = $1 ORDER BY created_at DESC`,
		vendorID)
	if err != nil {
		return nil, fmt.Errorf("list vendor products: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (r *PostgresRepository) UpdateProduct(ctx context.Context, p *Product) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE products
		 SET name = $2, description = $3, price = $4, category = $5, images = $6, stock = $7, updated_at = NOW()
		 WHERE id = $1`,
		p.ID, p.Name, p.Description, p.Price, p.Category, p.Images, p.Stock)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteProduct(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *PostgresRepository) CreateCategory(ctx context.Context, c *Category) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO categories (id, name, slug, image) VALUES ($1, $2, $3, $4)`,
		c.ID, c.Name, c.Slug, c.Image)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrCategoryTaken
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, name, slug, image FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Image); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *PostgresRepository) UpdateCategory(ctx context.Context, c *Category) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE categories SET name = $2, slug = $3, image = $4 WHERE id = $1`,
		c.ID, c.Name, c.Slug, c.Image)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrCategoryTaken
		}
		return fmt.Errorf("update category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteCategory(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.VendorID, &p.Name, &p.Description, &p.Price,
		&p.Category, &p.Images, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan product: %w", err)
	}
	return &p, nil
}

func scanProducts(rows pgx.Rows) ([]Product, error) {
	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.VendorID, &p.Name, &p.Description, &p.Price,
			&p.Category, &p.Images, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
