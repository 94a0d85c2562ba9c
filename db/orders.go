package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"eventhub/entity"
	"eventhub/message"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const orderColumns = `order_id, user_id, event_id, tickets, total_amount, currency,
	payment_status, payment_method, transaction_id, contact_email, created_at`

type lineItems []entity.LineItem

// Value encodes as a string: lib/pq would send []byte as bytea.
func (l lineItems) Value() (driver.Value, error) {
	if l == nil {
		l = lineItems{}
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshalling line items: %w", err)
	}
	return string(b), nil
}

func (l *lineItems) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	case nil:
		*l = nil
		return nil
	default:
		return fmt.Errorf("unsupported line items type %T", src)
	}
	return json.Unmarshal(b, (*[]entity.LineItem)(l))
}

type orderRow struct {
	ID            string          `db:"order_id"`
	UserID        string          `db:"user_id"`
	EventID       string          `db:"event_id"`
	Tickets       lineItems       `db:"tickets"`
	TotalAmount   decimal.Decimal `db:"total_amount"`
	Currency      string          `db:"currency"`
	PaymentStatus string          `db:"payment_status"`
	PaymentMethod string          `db:"payment_method"`
	TransactionID string          `db:"transaction_id"`
	ContactEmail  string          `db:"contact_email"`
	CreatedAt     time.Time       `db:"created_at"`
}

func (r orderRow) toEntity() entity.Order {
	return entity.Order{
		ID:            r.ID,
		UserID:        r.UserID,
		EventID:       r.EventID,
		Tickets:       r.Tickets,
		TotalAmount:   r.TotalAmount,
		Currency:      r.Currency,
		PaymentStatus: entity.PaymentStatus(r.PaymentStatus),
		PaymentMethod: r.PaymentMethod,
		TransactionID: r.TransactionID,
		ContactEmail:  r.ContactEmail,
		CreatedAt:     r.CreatedAt,
	}
}

// OrderUpdateFn mutates an order loaded for update. Events it returns are
// published through the outbox in the same transaction.
type OrderUpdateFn func(ctx context.Context, order *entity.Order) ([]any, error)

type OrderRepo struct {
	db     *sqlx.DB
	logger watermill.LoggerAdapter
}

func NewOrderRepo(db *sqlx.DB, logger watermill.LoggerAdapter) OrderRepo {
	return OrderRepo{
		db:     db,
		logger: logger,
	}
}

// Create inserts the order and publishes events in one transaction.
// A second order for the same transaction id fails with
// entity.ErrOrderAlreadyExists.
func (r OrderRepo) Create(ctx context.Context, order entity.Order, events ...any) error {
	return runInTx(ctx, r.db, func(ctx context.Context, tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO orders
			(`+orderColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);`,
			order.ID,
			order.UserID,
			order.EventID,
			lineItems(order.Tickets),
			order.TotalAmount,
			order.Currency,
			string(order.PaymentStatus),
			order.PaymentMethod,
			order.TransactionID,
			order.ContactEmail,
			order.CreatedAt,
		)
		if isUniqueViolation(err) {
			return entity.ErrOrderAlreadyExists
		}
		if err != nil {
			return fmt.Errorf("inserting order: %w", err)
		}

		_, err = tx.ExecContext(ctx, `INSERT INTO consumed_intents
			(transaction_id, order_id, user_id, consumed_at)
			VALUES ($1, $2, $3, $4);`,
			order.TransactionID, order.ID, order.UserID, order.CreatedAt)
		if isUniqueViolation(err) {
			return entity.ErrOrderAlreadyExists
		}
		if err != nil {
			return fmt.Errorf("recording consumed intent: %w", err)
		}

		return r.publish(ctx, tx, events)
	})
}

func (r OrderRepo) Get(ctx context.Context, orderID string) (entity.Order, error) {
	return r.getBy(ctx, "order_id", orderID)
}

func (r OrderRepo) GetByTransactionID(ctx context.Context, transactionID string) (entity.Order, error) {
	return r.getBy(ctx, "transaction_id", transactionID)
}

func (r OrderRepo) IntentConsumed(ctx context.Context, transactionID string) (bool, error) {
	var consumed bool
	err := sqlx.GetContext(ctx, executor(ctx, r.db), &consumed,
		`SELECT EXISTS (SELECT 1 FROM consumed_intents WHERE transaction_id = $1)`, transactionID)
	if err != nil {
		return false, fmt.Errorf("querying consumed intents: %w", err)
	}

	return consumed, nil
}

func (r OrderRepo) getBy(ctx context.Context, column, value string) (entity.Order, error) {
	var row orderRow
	err := sqlx.GetContext(ctx, executor(ctx, r.db), &row,
		`SELECT `+orderColumns+` FROM orders WHERE `+column+` = $1`, value)
	if errors.Is(err, sql.ErrNoRows) || isInvalidTextRepresentation(err) {
		return entity.Order{}, entity.ErrOrderNotFound
	}
	if err != nil {
		return entity.Order{}, fmt.Errorf("querying order: %w", err)
	}

	return row.toEntity(), nil
}

// Update locks the order row, applies updateFn and writes the result back.
// An order left without line items is deleted.
func (r OrderRepo) Update(ctx context.Context, orderID string, updateFn OrderUpdateFn) error {
	return runInTx(ctx, r.db, func(ctx context.Context, tx *sqlx.Tx) error {
		var row orderRow
		err := tx.GetContext(ctx, &row,
			`SELECT `+orderColumns+` FROM orders WHERE order_id = $1 FOR UPDATE`, orderID)
		if errors.Is(err, sql.ErrNoRows) || isInvalidTextRepresentation(err) {
			return entity.ErrOrderNotFound
		}
		if err != nil {
			return fmt.Errorf("selecting order for update: %w", err)
		}

		order := row.toEntity()
		events, err := updateFn(ctx, &order)
		if err != nil {
			return err
		}

		if len(order.Tickets) == 0 {
			if _, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE order_id = $1`, orderID); err != nil {
				return fmt.Errorf("deleting order: %w", err)
			}
		} else {
			_, err := tx.ExecContext(ctx, `UPDATE orders
				SET tickets = $2, total_amount = $3, payment_status = $4
				WHERE order_id = $1`,
				orderID, lineItems(order.Tickets), order.TotalAmount, string(order.PaymentStatus))
			if err != nil {
				return fmt.Errorf("updating order: %w", err)
			}
		}

		return r.publish(ctx, tx, events)
	})
}

func (r OrderRepo) ListByUser(ctx context.Context, userID string) ([]entity.OrderView, error) {
	type orderWithEventRow struct {
		orderRow
		EventTitle string    `db:"title"`
		EventDate  time.Time `db:"date"`
	}

	var rows []orderWithEventRow
	err := sqlx.SelectContext(ctx, r.db, &rows, `SELECT
		o.order_id, o.user_id, o.event_id, o.tickets, o.total_amount, o.currency,
		o.payment_status, o.payment_method, o.transaction_id, o.contact_email, o.created_at,
		e.title, e.date
		FROM orders o
		JOIN events e ON e.event_id = o.event_id
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying orders: %w", err)
	}

	var ticketTypeIDs []string
	for _, row := range rows {
		for _, item := range row.Tickets {
			ticketTypeIDs = append(ticketTypeIDs, item.TicketTypeID)
		}
	}

	ticketTypes, err := NewTicketTypeRepo(r.db).FindMany(ctx, ticketTypeIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]entity.TicketType, len(ticketTypes))
	for _, t := range ticketTypes {
		byID[t.ID] = t
	}

	views := make([]entity.OrderView, 0, len(rows))
	for _, row := range rows {
		view := entity.OrderView{
			Order:      row.toEntity(),
			EventTitle: row.EventTitle,
			EventDate:  row.EventDate,
			Tickets:    make([]entity.LineItemView, 0, len(row.Tickets)),
		}
		for _, item := range row.Tickets {
			t := byID[item.TicketTypeID]
			view.Tickets = append(view.Tickets, entity.LineItemView{
				LineItem: item,
				Name:     t.Name,
				Type:     t.Type,
			})
		}
		views = append(views, view)
	}

	return views, nil
}

func (r OrderRepo) publish(ctx context.Context, tx *sqlx.Tx, events []any) error {
	if err := message.PublishInTx(ctx, tx.Tx, r.logger, events...); err != nil {
		return fmt.Errorf("publishing events in transaction: %w", err)
	}
	return nil
}
