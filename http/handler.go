package http

import (
	"context"
	"eventhub/entity"
	"eventhub/purchase"
	"time"
)

type PurchaseService interface {
	Quote(ctx context.Context, buyer entity.Identity, in purchase.QuoteInput) (purchase.QuoteResult, error)
	Confirm(ctx context.Context, buyer entity.Identity, in purchase.ConfirmInput) (purchase.ConfirmResult, error)
	CancelLineItem(ctx context.Context, caller entity.Identity, orderID string, index int) (purchase.CancelResult, error)
	ListOrders(ctx context.Context, caller entity.Identity) ([]entity.OrderView, error)
}

type EventRepo interface {
	Add(ctx context.Context, event entity.Event) error
	Get(ctx context.Context, eventID string) (entity.Event, error)
}

type TicketTypeRepo interface {
	Add(ctx context.Context, ticketType entity.TicketType) error
	FindByEvent(ctx context.Context, eventID string) ([]entity.TicketType, error)
}

type Clock interface {
	Now() time.Time
}

type handler struct {
	purchases   PurchaseService
	events      EventRepo
	ticketTypes TicketTypeRepo
	clock       Clock
}

type messageResponse struct {
	Msg string `json:"msg"`
}
