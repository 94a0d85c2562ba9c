package db

import (
	"context"
	"database/sql"
	"errors"
	"eventhub/entity"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const ticketTypeColumns = `id, event_id, name, type, price, quantity, sold, valid_from, valid_until, created_at`

type TicketTypeRepo struct {
	db *sqlx.DB
}

func NewTicketTypeRepo(db *sqlx.DB) TicketTypeRepo {
	return TicketTypeRepo{
		db: db,
	}
}

func (r TicketTypeRepo) Add(ctx context.Context, t entity.TicketType) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO ticket_types
		(id, event_id, name, type, price, quantity, sold, valid_from, valid_until, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);`,
		t.ID, t.EventID, t.Name, t.Type, t.Price, t.Quantity, t.Sold, t.ValidFrom, t.ValidUntil, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting ticket type: %w", err)
	}

	return nil
}

func (r TicketTypeRepo) Get(ctx context.Context, ticketTypeID string) (entity.TicketType, error) {
	var t entity.TicketType
	err := sqlx.GetContext(ctx, executor(ctx, r.db), &t,
		`SELECT `+ticketTypeColumns+` FROM ticket_types WHERE id = $1`, ticketTypeID)
	if errors.Is(err, sql.ErrNoRows) || isInvalidTextRepresentation(err) {
		return entity.TicketType{}, entity.ErrTicketTypeNotFound
	}
	if err != nil {
		return entity.TicketType{}, fmt.Errorf("querying ticket type: %w", err)
	}

	return t, nil
}

func (r TicketTypeRepo) FindByEvent(ctx context.Context, eventID string) ([]entity.TicketType, error) {
	var ticketTypes []entity.TicketType
	err := sqlx.SelectContext(ctx, executor(ctx, r.db), &ticketTypes,
		`SELECT `+ticketTypeColumns+` FROM ticket_types WHERE event_id = $1 ORDER BY created_at, id`, eventID)
	if isInvalidTextRepresentation(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying ticket types: %w", err)
	}

	return ticketTypes, nil
}

func (r TicketTypeRepo) FindMany(ctx context.Context, ticketTypeIDs []string) ([]entity.TicketType, error) {
	var ticketTypes []entity.TicketType
	err := sqlx.SelectContext(ctx, executor(ctx, r.db), &ticketTypes,
		`SELECT `+ticketTypeColumns+` FROM ticket_types WHERE id = ANY($1)`, pq.Array(ticketTypeIDs))
	if err != nil {
		return nil, fmt.Errorf("querying ticket types: %w", err)
	}

	return ticketTypes, nil
}

// ConditionalIncrementSold adds delta to sold in one statement, guarded by
// the remaining capacity at write time. When the guard fails it returns
// entity.ErrInsufficientCapacity with the current row for reporting.
func (r TicketTypeRepo) ConditionalIncrementSold(ctx context.Context, ticketTypeID string, delta int) (entity.TicketType, error) {
	if delta <= 0 {
		return entity.TicketType{}, fmt.Errorf("increment must be positive, got %d", delta)
	}

	var t entity.TicketType
	err := sqlx.GetContext(ctx, executor(ctx, r.db), &t, `UPDATE ticket_types
		SET sold = sold + $2
		WHERE id = $1 AND sold + $2 <= quantity
		RETURNING `+ticketTypeColumns, ticketTypeID, delta)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return entity.TicketType{}, fmt.Errorf("incrementing sold: %w", err)
	}

	current, err := r.Get(ctx, ticketTypeID)
	if err != nil {
		return entity.TicketType{}, err
	}

	return current, entity.ErrInsufficientCapacity
}

func (r TicketTypeRepo) DecrementSold(ctx context.Context, ticketTypeID string, delta int) error {
	if delta <= 0 {
		return fmt.Errorf("decrement must be positive, got %d", delta)
	}

	res, err := executor(ctx, r.db).ExecContext(ctx, `UPDATE ticket_types
		SET sold = sold - $2
		WHERE id = $1 AND sold >= $2`, ticketTypeID, delta)
	if err != nil {
		return fmt.Errorf("decrementing sold: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("unexpected exec result decrementing ticket type %s: %d rows affected", ticketTypeID, n)
	}

	return nil
}
