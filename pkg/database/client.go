// Package database provides the PostgreSQL-backed audit sink (§4.10):
// connection pooling and embedded golang-migrate migrations over plain
// database/sql, the same shape as the teacher's pkg/database.NewClient
// but against a hand-written schema instead of ent-generated code (see
// DESIGN.md for why entgo.io/ent was dropped).
package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/jdibridge/bridge/pkg/config"
)

//go:embed migrations
var migrationsFS embed.FS

// Client wraps a pooled, migrated connection to the audit database.
type Client struct {
	db *sql.DB
}

// DB returns the underlying connection for health checks and the sink.
func (c *Client) DB() *sql.DB { return c.db }

// Close releases the connection pool.
func (c *Client) Close() error { return c.db.Close() }

// NewClient opens a pooled connection per cfg, applies pending migrations,
// and verifies connectivity before returning.
func NewClient(ctx context.Context, cfg config.AuditDB) (*Client, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode,
	)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping audit database: %w", err)
	}

	if err := runMigrations(db, cfg.Name); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run audit migrations: %w", err)
	}

	return &Client{db: db}, nil
}

func runMigrations(db *sql.DB, databaseName string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, databaseName, driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Close only the source; closing the migrate instance would also close
	// the driver, which would close the shared *sql.DB.
	return sourceDriver.Close()
}
