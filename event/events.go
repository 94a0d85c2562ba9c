package event

import (
	"eventhub/entity"
	"time"

	"github.com/ThreeDotsLabs/watermill"
)

type header struct {
	ID             string    `json:"id"`
	PublishedAt    time.Time `json:"published_at"`
	IdempotencyKey string    `json:"idempotency_key"`
}

func newHeader(idempotencyKey string) header {
	return header{
		ID:             watermill.NewUUID(),
		PublishedAt:    time.Now().UTC(),
		IdempotencyKey: idempotencyKey,
	}
}

type OrderedTicket struct {
	TicketTypeID string       `json:"ticket_type_id"`
	Name         string       `json:"name"`
	Type         string       `json:"type"`
	Quantity     int          `json:"quantity"`
	UnitPrice    entity.Money `json:"unit_price"`
}

type OrderConfirmed struct {
	Header        header          `json:"header"`
	OrderID       string          `json:"order_id"`
	UserID        string          `json:"user_id"`
	EventID       string          `json:"event_id"`
	EventTitle    string          `json:"event_title"`
	EventDate     time.Time       `json:"event_date"`
	CustomerEmail string          `json:"customer_email"`
	TransactionID string          `json:"transaction_id"`
	Tickets       []OrderedTicket `json:"tickets"`
	Total         entity.Money    `json:"total"`
}

// NewOrderConfirmed keys the event on the order's transaction id, so a
// replayed confirmation produces the same idempotency key.
func NewOrderConfirmed(order entity.OrderView) OrderConfirmed {
	tickets := make([]OrderedTicket, 0, len(order.Tickets))
	for _, item := range order.Tickets {
		tickets = append(tickets, OrderedTicket{
			TicketTypeID: item.TicketTypeID,
			Name:         item.Name,
			Type:         item.Type,
			Quantity:     item.Quantity,
			UnitPrice:    entity.NewMoney(item.UnitPrice, order.Currency),
		})
	}

	return OrderConfirmed{
		Header:        newHeader(order.TransactionID),
		OrderID:       order.ID,
		UserID:        order.UserID,
		EventID:       order.EventID,
		EventTitle:    order.EventTitle,
		EventDate:     order.EventDate,
		CustomerEmail: order.ContactEmail,
		TransactionID: order.TransactionID,
		Tickets:       tickets,
		Total:         entity.NewMoney(order.TotalAmount, order.Currency),
	}
}

type OrderLineItemCanceled struct {
	Header       header       `json:"header"`
	OrderID      string       `json:"order_id"`
	UserID       string       `json:"user_id"`
	EventID      string       `json:"event_id"`
	TicketTypeID string       `json:"ticket_type_id"`
	Quantity     int          `json:"quantity"`
	UnitPrice    entity.Money `json:"unit_price"`
	OrderDeleted bool         `json:"order_deleted"`
}

func NewOrderLineItemCanceled(idempotencyKey string, order entity.Order, item entity.LineItem, orderDeleted bool) OrderLineItemCanceled {
	return OrderLineItemCanceled{
		Header:       newHeader(idempotencyKey),
		OrderID:      order.ID,
		UserID:       order.UserID,
		EventID:      order.EventID,
		TicketTypeID: item.TicketTypeID,
		Quantity:     item.Quantity,
		UnitPrice:    entity.NewMoney(item.UnitPrice, order.Currency),
		OrderDeleted: orderDeleted,
	}
}
