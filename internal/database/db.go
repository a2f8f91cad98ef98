package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/tailorline/settlement-api/internal/config"
	"github.com/tailorline/settlement-api/pkg/logger"
)

// Database represents a database connection
type Database struct {
	DB     *sqlx.DB
	logger logger.Logger
}

// New creates a new database connection
func New(cfg *config.Config, logger logger.Logger) (*Database, error) {
	db, err := sqlx.Connect("postgres", cfg.GetDBConnString())

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	logger.Info("Connected to database", "host", cfg.DB.Host, "database", cfg.DB.Name)

	return &Database{
		DB:     db,
		logger: logger,
	}, nil
}

// Ping checks the database connection
func (d *Database) Ping(ctx context.Context) error {
	return d.DB.PingContext(ctx)
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.DB.Close()
}

// RunMigrations runs database migrations
func (d *Database) RunMigrations() error {
	// For initial setup, just create tables directly
	// In a real project, you'd want to use a migration tool
	schema := `
	CREATE TABLE IF NOT EXISTS designs (
		id VARCHAR(50) PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price DECIMAL(10, 2) NOT NULL,
		tailor_id VARCHAR(50) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_designs_tailor_id ON designs(tailor_id);

	CREATE TABLE IF NOT EXISTS orders (
		id VARCHAR(50) PRIMARY KEY,
		customer_id VARCHAR(50) NOT NULL,
		design_id VARCHAR(50) NOT NULL REFERENCES designs(id) ON DELETE CASCADE,
		tailor_id VARCHAR(50) NOT NULL,
		amount DECIMAL(10, 2) NOT NULL,
		escrow_address VARCHAR(58) NOT NULL DEFAULT '',
		asa_id BIGINT,
		transaction_id VARCHAR(64) UNIQUE,
		payment_status VARCHAR(10) NOT NULL DEFAULT 'PENDING',
		is_released BOOLEAN NOT NULL DEFAULT FALSE,
		order_date TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_orders_customer_id ON orders(customer_id);
	CREATE INDEX IF NOT EXISTS idx_orders_tailor_id ON orders(tailor_id);
	CREATE INDEX IF NOT EXISTS idx_orders_payment_status ON orders(payment_status);

	CREATE TABLE IF NOT EXISTS wallets (
		actor_id VARCHAR(50) PRIMARY KEY,
		address VARCHAR(58) NOT NULL,
		signing_key TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	-- Outbox table for settlement event publishing
	CREATE TABLE IF NOT EXISTS outbox_messages (
		id SERIAL PRIMARY KEY,
		aggregate_type VARCHAR(50) NOT NULL,
		aggregate_id VARCHAR(50) NOT NULL,
		event_type VARCHAR(50) NOT NULL,
		payload JSONB NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		processed_at TIMESTAMP,
		processing_attempts INT NOT NULL DEFAULT 0,
		last_error TEXT,
		status VARCHAR(20) NOT NULL DEFAULT 'pending'
	);

	CREATE INDEX IF NOT EXISTS idx_outbox_status ON outbox_messages(status);
	CREATE INDEX IF NOT EXISTS idx_outbox_aggregate ON outbox_messages(aggregate_type, aggregate_id);
	`

	_, err := d.DB.Exec(schema)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.logger.Info("Database migrations completed successfully")
	return nil
}
