package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TicketKindGeneral   = "general"
	TicketKindVIP       = "vip"
	TicketKindEarlyBird = "early-bird"
)

// TicketType is a purchasable category of admission for an event.
// Sold never exceeds Quantity.
type TicketType struct {
	ID         string          `json:"id" db:"id"`
	EventID    string          `json:"eventId" db:"event_id"`
	Name       string          `json:"name" db:"name"`
	Type       string          `json:"type" db:"type"`
	Price      decimal.Decimal `json:"price" db:"price"`
	Quantity   int             `json:"quantity" db:"quantity"`
	Sold       int             `json:"sold" db:"sold"`
	ValidFrom  *time.Time      `json:"validFrom,omitempty" db:"valid_from"`
	ValidUntil *time.Time      `json:"validUntil,omitempty" db:"valid_until"`
	CreatedAt  time.Time       `json:"createdAt" db:"created_at"`
}

func (t TicketType) Remaining() int {
	if t.Sold >= t.Quantity {
		return 0
	}
	return t.Quantity - t.Sold
}

// OnSale reports whether now falls inside the optional validity window.
func (t TicketType) OnSale(now time.Time) bool {
	if t.ValidFrom != nil && now.Before(*t.ValidFrom) {
		return false
	}
	if t.ValidUntil != nil && now.After(*t.ValidUntil) {
		return false
	}
	return true
}

func ValidTicketKind(kind string) bool {
	switch kind {
	case TicketKindGeneral, TicketKindVIP, TicketKindEarlyBird:
		return true
	}
	return false
}
