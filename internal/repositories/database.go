package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/XSAM/otelsql"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/config"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	_ "github.com/lib/pq"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so the same repository code
// can run standalone or inside a ledger transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Repository struct {
	DB      *sql.DB
	Product ProductRepository
	Order   OrderRepository
}

func New(ctx context.Context, cfg *config.Database) (*Repository, error) {

	db, err := otelsql.Open("postgres", cfg.GetDSN(),
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection to make sure DB is reachable
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return NewWithDB(db), nil
}

// NewWithDB builds the repositories on an already opened handle.
func NewWithDB(db *sql.DB) *Repository {
	return &Repository{
		DB:      db,
		Product: NewProductRepo(db),
		Order:   NewOrderRepo(db),
	}
}

func (p *Repository) Close() error {
	return p.DB.Close()
}
