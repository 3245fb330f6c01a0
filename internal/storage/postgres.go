package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Tx is the unit-of-work handle shared by every repository. Repositories
// never commit or roll back themselves; the use case that opened the
// transaction owns its outcome.
type Tx interface {
	Commit() error
	Rollback() error
}

// Beginner opens transactions. Use cases depend on this interface so tests
// can substitute an in-memory implementation.
type Beginner interface {
	Begin(ctx context.Context) (Tx, error)
}

// DB wraps the pgx connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

// PgxTx implements Tx over a pgx transaction.
type PgxTx struct {
	tx pgx.Tx
}

func (t *PgxTx) Commit() error {
	return t.tx.Commit(context.Background())
}

func (t *PgxTx) Rollback() error {
	return t.tx.Rollback(context.Background())
}

// Begin starts a new transaction.
func (d *DB) Begin(ctx context.Context) (Tx, error) {
	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &PgxTx{tx: tx}, nil
}

// Unwrap extracts the underlying pgx transaction from a Tx handle.
// Postgres-backed repositories call this; it panics on foreign Tx types,
// which only mix when a test wires a fake repository to the real pool.
func Unwrap(tx Tx) pgx.Tx {
	return tx.(*PgxTx).tx
}

// Connect builds the pool and waits for the database to accept connections.
func Connect(ctx context.Context, dsn string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	cfg.MaxConns = 25
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute
	cfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Wait for database to be ready
	for i := 0; i < 30; i++ {
		if err := pool.Ping(ctx); err == nil {
			log.Info().Msg("connected to database")
			return &DB{Pool: pool}, nil
		}
		log.Info().Int("attempt", i+1).Msg("waiting for database")
		time.Sleep(1 * time.Second)
	}

	pool.Close()
	return nil, fmt.Errorf("failed to connect to database after 30 attempts")
}

// Close releases the pool.
func (d *DB) Close() {
	d.Pool.Close()
}
