package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// LineItem is one ticket type and quantity within an order, priced at
// purchase time.
type LineItem struct {
	TicketTypeID string          `json:"ticketType"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"price"`
}

func (l LineItem) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Order struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	EventID       string          `json:"eventId"`
	Tickets       []LineItem      `json:"tickets"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	Currency      string          `json:"currency"`
	PaymentStatus PaymentStatus   `json:"paymentStatus"`
	PaymentMethod string          `json:"paymentMethod"`
	TransactionID string          `json:"transactionId"`
	ContactEmail  string          `json:"-"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func SumLineItems(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// OrderView is an order with event and ticket details denormalized for display.
type OrderView struct {
	Order
	EventTitle string         `json:"eventTitle"`
	EventDate  time.Time      `json:"eventDate"`
	Tickets    []LineItemView `json:"tickets"`
}

type LineItemView struct {
	LineItem
	Name string `json:"name"`
	Type string `json:"type"`
}
