package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func InitialiseDB(ctx context.Context, db *sqlx.DB) error {
	if err := CreateEventsTable(ctx, db); err != nil {
		return fmt.Errorf("creating events table: %w", err)
	}

	if err := CreateTicketTypesTable(ctx, db); err != nil {
		return fmt.Errorf("creating ticket types table: %w", err)
	}

	if err := CreateOrdersTable(ctx, db); err != nil {
		return fmt.Errorf("creating orders table: %w", err)
	}

	if err := CreateConsumedIntentsTable(ctx, db); err != nil {
		return fmt.Errorf("creating consumed intents table: %w", err)
	}

	return nil
}

func CreateEventsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS events (
		event_id UUID PRIMARY KEY,
		organizer_id VARCHAR(255) NOT NULL,
		title VARCHAR(255) NOT NULL,
		date TIMESTAMP WITH TIME ZONE NOT NULL,
		venue VARCHAR(255) NOT NULL DEFAULT '',
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
	);`)
	return err
}

func CreateTicketTypesTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS ticket_types (
		id UUID PRIMARY KEY,
		event_id UUID NOT NULL REFERENCES events (event_id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		type VARCHAR(32) NOT NULL DEFAULT 'general',
		price NUMERIC(10, 2) NOT NULL CHECK (price >= 0),
		quantity INTEGER NOT NULL CHECK (quantity >= 0),
		sold INTEGER NOT NULL DEFAULT 0,
		valid_from TIMESTAMP WITH TIME ZONE,
		valid_until TIMESTAMP WITH TIME ZONE,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
		CONSTRAINT ticket_types_sold_within_quantity CHECK (sold >= 0 AND sold <= quantity)
	);
	CREATE INDEX IF NOT EXISTS ticket_types_event_id_idx ON ticket_types (event_id);`)
	return err
}

func CreateOrdersTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS orders (
		order_id UUID PRIMARY KEY,
		user_id VARCHAR(255) NOT NULL,
		event_id UUID NOT NULL REFERENCES events (event_id) ON DELETE CASCADE,
		tickets JSONB NOT NULL,
		total_amount NUMERIC(10, 2) NOT NULL,
		currency CHAR(3) NOT NULL,
		payment_status VARCHAR(16) NOT NULL,
		payment_method VARCHAR(64) NOT NULL DEFAULT '',
		transaction_id VARCHAR(255) NOT NULL UNIQUE,
		contact_email VARCHAR(255) NOT NULL DEFAULT '',
		created_at TIMESTAMP WITH TIME ZONE NOT NULL
	);
	CREATE INDEX IF NOT EXISTS orders_user_id_idx ON orders (user_id, created_at DESC);`)
	return err
}

// CreateConsumedIntentsTable records every transaction id that produced an
// order. Rows outlive the order, so a canceled order's payment cannot be
// confirmed again.
func CreateConsumedIntentsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS consumed_intents (
		transaction_id VARCHAR(255) PRIMARY KEY,
		order_id UUID NOT NULL,
		user_id VARCHAR(255) NOT NULL,
		consumed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
	);`)
	return err
}
