package db

import (
	"context"
	"database/sql"
	"errors"
	"eventhub/entity"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type EventRepo struct {
	db *sqlx.DB
}

func NewEventRepo(db *sqlx.DB) EventRepo {
	return EventRepo{
		db: db,
	}
}

func (r EventRepo) Add(ctx context.Context, event entity.Event) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO events
		(event_id, organizer_id, title, date, venue, created_at)
		VALUES ($1, $2, $3, $4, $5, $6);`,
		event.ID, event.OrganizerID, event.Title, event.Date, event.Venue, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}

	return nil
}

func (r EventRepo) Get(ctx context.Context, eventID string) (entity.Event, error) {
	var e entity.Event
	err := sqlx.GetContext(ctx, executor(ctx, r.db), &e, `SELECT
		event_id, organizer_id, title, date, venue, created_at
		FROM events WHERE event_id = $1`, eventID)
	if errors.Is(err, sql.ErrNoRows) || isInvalidTextRepresentation(err) {
		return entity.Event{}, entity.ErrEventNotFound
	}
	if err != nil {
		return entity.Event{}, fmt.Errorf("querying event: %w", err)
	}

	return e, nil
}
