package event

import (
	"context"
	"eventhub/clients"
	"eventhub/entity"
	"eventhub/event"
	"fmt"
	"strconv"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
)

type ConfirmationMailer interface {
	SendOrderConfirmation(to string, p clients.TicketPrintout) error
}

type ReceiptIssuer interface {
	IssueReceipt(ctx context.Context, orderID string, total entity.Money) error
}

type SpreadsheetAppender interface {
	AppendRow(ctx context.Context, spreadsheetName string, row []string) error
}

type TicketPrinter interface {
	PrintTickets(ctx context.Context, p clients.TicketPrintout) (string, error)
}

func NewProcessorConfig(logger watermill.LoggerAdapter, redisClient *redis.Client) cqrs.EventProcessorConfig {
	return cqrs.EventProcessorConfig{
		SubscriberConstructor: func(params cqrs.EventProcessorSubscriberConstructorParams) (message.Subscriber, error) {
			return redisstream.NewSubscriber(redisstream.SubscriberConfig{
				Client:        redisClient,
				ConsumerGroup: "eventhub." + params.HandlerName,
			}, logger)
		},
		GenerateSubscribeTopic: func(params cqrs.EventProcessorGenerateSubscribeTopicParams) (string, error) {
			return params.EventName, nil
		},
		Marshaler: cqrs.JSONMarshaler{
			GenerateName: cqrs.StructName,
		},
		Logger: logger,
	}
}

// Handler holds the side effects of order events. Any collaborator may be
// nil, in which case its handlers are not registered.
type Handler struct {
	mailer              ConfirmationMailer
	receiptIssuer       ReceiptIssuer
	spreadsheetAppender SpreadsheetAppender
	ticketPrinter       TicketPrinter
}

func NewHandler(
	m ConfirmationMailer,
	r ReceiptIssuer,
	sa SpreadsheetAppender,
	tp TicketPrinter,
) Handler {
	return Handler{
		mailer:              m,
		receiptIssuer:       r,
		spreadsheetAppender: sa,
		ticketPrinter:       tp,
	}
}

func (h Handler) EventHandlers() []cqrs.EventHandler {
	var handlers []cqrs.EventHandler
	if h.mailer != nil {
		handlers = append(handlers, cqrs.NewEventHandler("send-confirmation-email", h.SendConfirmationEmail))
	}
	if h.receiptIssuer != nil {
		handlers = append(handlers, cqrs.NewEventHandler("issue-receipt", h.IssueReceipt))
	}
	if h.spreadsheetAppender != nil {
		handlers = append(handlers,
			cqrs.NewEventHandler("append-to-tracker-confirmed", h.AppendToTrackerConfirmed),
			cqrs.NewEventHandler("append-to-tracker-canceled", h.AppendToTrackerCanceled),
		)
	}
	if h.ticketPrinter != nil {
		handlers = append(handlers, cqrs.NewEventHandler("print-tickets", h.PrintTickets))
	}
	return handlers
}

func (h Handler) SendConfirmationEmail(ctx context.Context, e *event.OrderConfirmed) error {
	if e.CustomerEmail == "" {
		log.FromContext(ctx).Infof("Order %s has no billing email, skipping confirmation", e.OrderID)
		return nil
	}

	if err := h.mailer.SendOrderConfirmation(e.CustomerEmail, printout(e)); err != nil {
		return fmt.Errorf("sending confirmation email: %w", err)
	}

	return nil
}

func (h Handler) IssueReceipt(ctx context.Context, e *event.OrderConfirmed) error {
	if err := h.receiptIssuer.IssueReceipt(ctx, e.OrderID, e.Total); err != nil {
		return fmt.Errorf("issuing receipt: %w", err)
	}

	return nil
}

func (h Handler) AppendToTrackerConfirmed(ctx context.Context, e *event.OrderConfirmed) error {
	row := []string{e.OrderID, e.EventID, e.UserID, e.CustomerEmail, e.Total.Amount, e.Total.Currency}
	if err := h.spreadsheetAppender.AppendRow(ctx, clients.SheetOrdersConfirmed, row); err != nil {
		return fmt.Errorf("failed to append row to tracker: %w", err)
	}

	return nil
}

func (h Handler) AppendToTrackerCanceled(ctx context.Context, e *event.OrderLineItemCanceled) error {
	row := []string{
		e.OrderID,
		e.TicketTypeID,
		strconv.Itoa(e.Quantity),
		e.UnitPrice.Amount,
		e.UnitPrice.Currency,
		strconv.FormatBool(e.OrderDeleted),
	}
	if err := h.spreadsheetAppender.AppendRow(ctx, clients.SheetLineItemsCanceled, row); err != nil {
		return fmt.Errorf("failed to append row to tracker: %w", err)
	}

	return nil
}

func (h Handler) PrintTickets(ctx context.Context, e *event.OrderConfirmed) error {
	fileID, err := h.ticketPrinter.PrintTickets(ctx, printout(e))
	if err != nil {
		return fmt.Errorf("printing tickets: %w", err)
	}

	log.FromContext(ctx).Infof("Printed tickets for order %s to %s", e.OrderID, fileID)

	return nil
}

func printout(e *event.OrderConfirmed) clients.TicketPrintout {
	lines := make([]clients.TicketPrintoutLine, 0, len(e.Tickets))
	for _, t := range e.Tickets {
		lines = append(lines, clients.TicketPrintoutLine{
			TicketTypeID: t.TicketTypeID,
			Name:         t.Name,
			Type:         t.Type,
			Quantity:     t.Quantity,
			UnitPrice:    t.UnitPrice,
		})
	}

	return clients.TicketPrintout{
		OrderID:    e.OrderID,
		EventID:    e.EventID,
		EventTitle: e.EventTitle,
		EventDate:  e.EventDate,
		Lines:      lines,
		Total:      e.Total,
	}
}
