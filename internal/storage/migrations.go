package storage

import (
	"context"
	"fmt"
)

// migrations run in order at startup. Statements are idempotent so a restart
// against an already-migrated database is a no-op.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'CUSTOMER',
		phone TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS addresses (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		details TEXT NOT NULL,
		city TEXT NOT NULL,
		postal_code TEXT NOT NULL,
		is_default BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS vendors (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		store_name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		payout_number TEXT NOT NULL DEFAULT '',
		is_verified BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		slug TEXT NOT NULL UNIQUE,
		image TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id UUID PRIMARY KEY,
		vendor_id UUID NOT NULL REFERENCES vendors(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price NUMERIC(12,2) NOT NULL CHECK (price >= 0),
		category TEXT NOT NULL,
		images TEXT[] NOT NULL DEFAULT '{}',
		stock INT NOT NULL DEFAULT 0 CHECK (stock >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY,
		customer_id UUID NOT NULL REFERENCES users(id),
		total_amount NUMERIC(12,2) NOT NULL,
		shipping_address TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		transaction_id TEXT NOT NULL UNIQUE,
		payment_status TEXT NOT NULL DEFAULT 'Pending',
		order_status TEXT NOT NULL DEFAULT 'Pending',
		delivery_person_id UUID NULL REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id UUID PRIMARY KEY,
		order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id UUID NOT NULL,
		quantity INT NOT NULL CHECK (quantity > 0),
		price_at_purchase NUMERIC(12,2) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS inventory_movements (
		id UUID PRIMARY KEY,
		product_id UUID NOT NULL,
		order_id UUID NOT NULL,
		change_quantity INT NOT NULL,
		movement_type TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_movements_order ON inventory_movements (order_id, movement_type)`,
	`CREATE TABLE IF NOT EXISTS order_tracking (
		id UUID PRIMARY KEY,
		order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		status TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS reviews (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		product_id UUID NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		rating INT NOT NULL CHECK (rating BETWEEN 1 AND 5),
		comment TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, product_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders (customer_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_pending_age ON orders (payment_status, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_products_vendor ON products (vendor_id)`,
}

// Migrate applies the schema.
func (d *DB) Migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := d.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
