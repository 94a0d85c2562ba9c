package purchase

import (
	"context"
	"errors"
	"eventhub/clients"
	"eventhub/clock"
	"eventhub/db"
	"eventhub/entity"
	"eventhub/event"
	"eventhub/monitoring"
	"fmt"
	"net/mail"
	"slices"
	"strings"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	metadataBuyerID = "buyer_id"
	metadataEventID = "event_id"
)

type EventRepo interface {
	Get(ctx context.Context, eventID string) (entity.Event, error)
}

type TicketTypeRepo interface {
	FindByEvent(ctx context.Context, eventID string) ([]entity.TicketType, error)
	ConditionalIncrementSold(ctx context.Context, ticketTypeID string, delta int) (entity.TicketType, error)
	DecrementSold(ctx context.Context, ticketTypeID string, delta int) error
}

type OrderRepo interface {
	Create(ctx context.Context, order entity.Order, events ...any) error
	GetByTransactionID(ctx context.Context, transactionID string) (entity.Order, error)
	Update(ctx context.Context, orderID string, updateFn db.OrderUpdateFn) error
	// IntentConsumed reports whether an order was ever created for the
	// transaction id, including orders deleted since.
	IntentConsumed(ctx context.Context, transactionID string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]entity.OrderView, error)
}

type PaymentGateway interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (entity.PaymentIntent, error)
	GetIntent(ctx context.Context, intentID string) (entity.PaymentIntent, error)
}

type Config struct {
	Currency string
	// AmountTolerance is the largest accepted difference between the
	// settled amount and the recomputed order total.
	AmountTolerance decimal.Decimal
}

type Service struct {
	events      EventRepo
	ticketTypes TicketTypeRepo
	orders      OrderRepo
	gateway     PaymentGateway
	clock       clock.Clock
	cfg         Config
}

func NewService(
	events EventRepo,
	ticketTypes TicketTypeRepo,
	orders OrderRepo,
	gateway PaymentGateway,
	clk clock.Clock,
	cfg Config,
) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	return &Service{
		events:      events,
		ticketTypes: ticketTypes,
		orders:      orders,
		gateway:     gateway,
		clock:       clk,
		cfg:         cfg,
	}
}

type LineItemInput struct {
	TicketTypeID string
	Quantity     int
}

type QuoteInput struct {
	EventID   string
	LineItems []LineItemInput
}

type QuoteResult struct {
	IntentID     string
	IntentHandle string
	TotalAmount  decimal.Decimal
	Currency     string
}

// Quote prices the basket from current inventory and opens a payment intent
// for the total. Nothing is reserved.
func (s *Service) Quote(ctx context.Context, buyer entity.Identity, in QuoteInput) (res QuoteResult, err error) {
	defer trackOutcome("quote", &err)

	if err := validateBasket(in.EventID, in.LineItems); err != nil {
		return QuoteResult{}, err
	}

	b, err := s.resolveBasket(ctx, in.EventID, in.LineItems, true)
	if err != nil {
		return QuoteResult{}, err
	}

	total := entity.SumLineItems(b.items)
	if !total.IsPositive() {
		return QuoteResult{}, newError(KindInvalidArgument, "Order total must be greater than zero.", nil)
	}

	intent, err := s.gateway.CreateIntent(ctx, total, s.cfg.Currency, map[string]string{
		metadataBuyerID: buyer.UserID,
		metadataEventID: in.EventID,
	})
	if errors.Is(err, clients.ErrAmountOutOfRange) {
		return QuoteResult{}, newError(KindInvalidArgument, "Order total is too large.", err)
	}
	if err != nil {
		return QuoteResult{}, newError(KindUpstreamUnavailable, "Payment gateway unavailable, please try again.", err)
	}

	log.FromContext(ctx).WithFields(logrus.Fields{
		"intent_id": intent.ID,
		"event_id":  in.EventID,
		"total":     total.StringFixed(2),
	}).Info("Payment intent created")

	return QuoteResult{
		IntentID:     intent.ID,
		IntentHandle: intent.ClientSecret,
		TotalAmount:  total,
		Currency:     s.cfg.Currency,
	}, nil
}

type ConfirmInput struct {
	IntentID     string
	EventID      string
	LineItems    []LineItemInput
	BillingEmail string
}

type ConfirmResult struct {
	Order entity.Order
	// Created is false when the intent was already confirmed and the
	// existing order is returned.
	Created bool
}

// Confirm turns a settled payment intent into committed inventory and a
// completed order. It is idempotent on the intent id.
func (s *Service) Confirm(ctx context.Context, buyer entity.Identity, in ConfirmInput) (res ConfirmResult, err error) {
	defer trackOutcome("confirm", &err)

	if strings.TrimSpace(in.IntentID) == "" {
		return ConfirmResult{}, newError(KindInvalidArgument, "Payment intent ID is required.", nil)
	}
	if err := validateBasket(in.EventID, in.LineItems); err != nil {
		return ConfirmResult{}, err
	}
	if in.BillingEmail != "" {
		if _, err := mail.ParseAddress(in.BillingEmail); err != nil {
			return ConfirmResult{}, newError(KindInvalidArgument, "Invalid billing email.", err)
		}
	}

	existing, found, err := s.findOrderForIntent(ctx, buyer, in.IntentID)
	if err != nil {
		return ConfirmResult{}, err
	}
	if found {
		return ConfirmResult{Order: existing, Created: false}, nil
	}

	intent, err := s.settledIntent(ctx, buyer, in)
	if err != nil {
		return ConfirmResult{}, err
	}

	b, err := s.resolveBasket(ctx, in.EventID, in.LineItems, false)
	if err != nil {
		return ConfirmResult{}, err
	}
	items := b.items

	total := entity.SumLineItems(items)
	if err := s.reconcile(intent, total); err != nil {
		return ConfirmResult{}, err
	}

	if err := s.commitInventory(ctx, items); err != nil {
		return ConfirmResult{}, err
	}

	order := entity.Order{
		ID:            uuid.NewString(),
		UserID:        buyer.UserID,
		EventID:       in.EventID,
		Tickets:       items,
		TotalAmount:   total,
		Currency:      s.cfg.Currency,
		PaymentStatus: entity.PaymentStatusCompleted,
		PaymentMethod: intent.PaymentMethod,
		TransactionID: in.IntentID,
		ContactEmail:  in.BillingEmail,
		CreatedAt:     s.clock.Now().UTC(),
	}

	err = s.orders.Create(ctx, order, event.NewOrderConfirmed(b.view(order)))
	if errors.Is(err, entity.ErrOrderAlreadyExists) {
		// A concurrent confirm of the same intent won.
		if err := s.compensate(ctx, items, err); err != nil {
			return ConfirmResult{}, err
		}
		existing, found, err := s.findOrderForIntent(ctx, buyer, in.IntentID)
		if err != nil {
			return ConfirmResult{}, err
		}
		if !found {
			return ConfirmResult{}, fmt.Errorf("order for transaction %s vanished after conflict", in.IntentID)
		}
		return ConfirmResult{Order: existing, Created: false}, nil
	}
	if err != nil {
		if compErr := s.compensate(ctx, items, err); compErr != nil {
			return ConfirmResult{}, compErr
		}
		return ConfirmResult{}, fmt.Errorf("storing order: %w", err)
	}

	for _, item := range items {
		monitoring.TrackTicketsSold(in.EventID, item.Quantity)
	}
	log.FromContext(ctx).WithFields(logrus.Fields{
		"order_id":  order.ID,
		"intent_id": in.IntentID,
		"total":     total.StringFixed(2),
	}).Info("Order confirmed")

	return ConfirmResult{Order: order, Created: true}, nil
}

// findOrderForIntent returns the order already bound to intentID, if any.
// An order owned by someone else is a conflict, and so is an intent whose
// order has since been canceled: each payment buys one order.
func (s *Service) findOrderForIntent(ctx context.Context, buyer entity.Identity, intentID string) (entity.Order, bool, error) {
	order, err := s.orders.GetByTransactionID(ctx, intentID)
	if errors.Is(err, entity.ErrOrderNotFound) {
		consumed, err := s.orders.IntentConsumed(ctx, intentID)
		if err != nil {
			return entity.Order{}, false, fmt.Errorf("checking whether intent was used: %w", err)
		}
		if consumed {
			return entity.Order{}, false, newError(KindIntentConflict, "Payment intent was already used for an order that has been canceled.", entity.ErrIntentConsumed)
		}
		return entity.Order{}, false, nil
	}
	if err != nil {
		return entity.Order{}, false, fmt.Errorf("looking up order for intent: %w", err)
	}
	if order.UserID != buyer.UserID {
		return entity.Order{}, false, newError(KindIntentConflict, "Payment intent is already bound to another order.", nil)
	}
	return order, true, nil
}

func (s *Service) settledIntent(ctx context.Context, buyer entity.Identity, in ConfirmInput) (entity.PaymentIntent, error) {
	intent, err := s.gateway.GetIntent(ctx, in.IntentID)
	if errors.Is(err, clients.ErrIntentNotFound) {
		return entity.PaymentIntent{}, newError(KindPaymentNotSettled, "Payment intent not found.", err)
	}
	if err != nil {
		return entity.PaymentIntent{}, newError(KindUpstreamUnavailable, "Payment gateway unavailable, please retry confirmation.", err)
	}

	if !intent.Succeeded() {
		return entity.PaymentIntent{}, newError(KindPaymentNotSettled, "Payment not successful. Current status: "+intent.Status, nil)
	}

	if owner := intent.Metadata[metadataBuyerID]; owner != "" && owner != buyer.UserID {
		return entity.PaymentIntent{}, newError(KindIntentConflict, "Payment intent was created for another buyer.", nil)
	}
	if eventID := intent.Metadata[metadataEventID]; eventID != "" && eventID != in.EventID {
		return entity.PaymentIntent{}, newError(KindIntentConflict, "Payment intent was created for another event.", nil)
	}

	return intent, nil
}

func (s *Service) reconcile(intent entity.PaymentIntent, total decimal.Decimal) error {
	if !strings.EqualFold(intent.Currency, s.cfg.Currency) ||
		intent.Amount.Sub(total).Abs().GreaterThan(s.cfg.AmountTolerance) {
		return newError(KindAmountMismatch, fmt.Sprintf(
			"Payment of %s %s does not match the order total of %s %s.",
			intent.Amount.StringFixed(2), intent.Currency, total.StringFixed(2), s.cfg.Currency,
		), nil)
	}
	return nil
}

// commitInventory applies one conditional increment per line item. If any
// increment is refused, the ones already applied are rolled back before
// returning.
func (s *Service) commitInventory(ctx context.Context, items []entity.LineItem) error {
	applied := make([]entity.LineItem, 0, len(items))

	for _, item := range items {
		current, err := s.ticketTypes.ConditionalIncrementSold(ctx, item.TicketTypeID, item.Quantity)
		if err == nil {
			applied = append(applied, item)
			continue
		}

		var cause error
		switch {
		case errors.Is(err, entity.ErrInsufficientCapacity):
			cause = newError(KindCapacityExceeded, capacityMessage(current.Name, current.Remaining()), err)
		case errors.Is(err, entity.ErrTicketTypeNotFound):
			cause = newError(KindNotFound, fmt.Sprintf("Ticket type with ID %s no longer exists.", item.TicketTypeID), err)
		default:
			cause = fmt.Errorf("committing ticket type %s: %w", item.TicketTypeID, err)
		}

		if compErr := s.compensate(ctx, applied, cause); compErr != nil {
			return compErr
		}
		if len(applied) > 0 {
			message := "Purchase could not be completed and was rolled back."
			var purchaseErr *Error
			if errors.As(cause, &purchaseErr) {
				message = purchaseErr.Message
			}
			return newError(KindPartialCommitCompensated, message, cause)
		}
		return cause
	}

	return nil
}

// compensate decrements every applied line item, attempting all of them
// even after a failure. It returns a CompensationFailed error if any
// decrement failed.
func (s *Service) compensate(ctx context.Context, applied []entity.LineItem, cause error) error {
	if len(applied) == 0 {
		return nil
	}

	ctx = context.WithoutCancel(ctx)

	var errs []error
	var failed []string
	for _, item := range applied {
		if err := s.ticketTypes.DecrementSold(ctx, item.TicketTypeID, item.Quantity); err != nil {
			errs = append(errs, fmt.Errorf("decrementing ticket type %s by %d: %w", item.TicketTypeID, item.Quantity, err))
			failed = append(failed, fmt.Sprintf("%s:%d", item.TicketTypeID, item.Quantity))
		}
	}
	if len(errs) == 0 {
		return nil
	}

	compErr := errors.Join(errs...)
	monitoring.TrackCompensationFailure()
	log.FromContext(ctx).WithError(compErr).WithFields(logrus.Fields{
		"cause":              cause.Error(),
		"unreverted_tickets": strings.Join(failed, ","),
	}).Error("Inventory compensation failed, manual reconciliation required")

	return newError(
		KindCompensationFailed,
		"Purchase failed and inventory could not be restored. Support has been notified.",
		errors.Join(cause, compErr),
	)
}

type CancelResult struct {
	OrderDeleted bool
}

// CancelLineItem removes one line item from an order and returns its
// quantity to inventory. Refunds are not issued.
func (s *Service) CancelLineItem(ctx context.Context, caller entity.Identity, orderID string, index int) (res CancelResult, err error) {
	defer trackOutcome("cancel_line_item", &err)

	err = s.orders.Update(ctx, orderID, func(ctx context.Context, order *entity.Order) ([]any, error) {
		if order.UserID != caller.UserID && !caller.IsAdmin() {
			return nil, newError(KindNotFound, "Order not found.", entity.ErrOrderNotFound)
		}
		if index < 0 || index >= len(order.Tickets) {
			return nil, newError(KindInvalidArgument, "Invalid line item index.", nil)
		}

		item := order.Tickets[index]
		if err := s.ticketTypes.DecrementSold(ctx, item.TicketTypeID, item.Quantity); err != nil {
			return nil, fmt.Errorf("returning line item to inventory: %w", err)
		}

		order.Tickets = slices.Delete(slices.Clone(order.Tickets), index, index+1)
		order.TotalAmount = entity.SumLineItems(order.Tickets)
		res.OrderDeleted = len(order.Tickets) == 0

		return []any{
			event.NewOrderLineItemCanceled(uuid.NewString(), *order, item, res.OrderDeleted),
		}, nil
	})
	if errors.Is(err, entity.ErrOrderNotFound) && KindOf(err) == KindInternal {
		return CancelResult{}, newError(KindNotFound, "Order not found.", err)
	}
	if err != nil {
		return CancelResult{}, err
	}

	log.FromContext(ctx).WithFields(logrus.Fields{
		"order_id":      orderID,
		"line_item":     index,
		"order_deleted": res.OrderDeleted,
	}).Info("Order line item canceled")

	return res, nil
}

func (s *Service) ListOrders(ctx context.Context, caller entity.Identity) ([]entity.OrderView, error) {
	orders, err := s.orders.ListByUser(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return orders, nil
}

func validateBasket(eventID string, items []LineItemInput) error {
	if _, err := uuid.Parse(eventID); err != nil {
		return newError(KindInvalidArgument, "Invalid Event ID format.", err)
	}
	if len(items) == 0 {
		return newError(KindInvalidArgument, "Tickets array is required and cannot be empty.", nil)
	}
	for _, item := range items {
		if _, err := uuid.Parse(item.TicketTypeID); err != nil || item.Quantity <= 0 {
			return newError(KindInvalidArgument, "Invalid ticket ID or quantity provided.", err)
		}
	}
	return nil
}

type basket struct {
	event       entity.Event
	items       []entity.LineItem
	ticketTypes map[string]entity.TicketType
}

// view adds the event and ticket type details buyers see on their tickets.
func (b basket) view(order entity.Order) entity.OrderView {
	v := entity.OrderView{
		Order:      order,
		EventTitle: b.event.Title,
		EventDate:  b.event.Date,
		Tickets:    make([]entity.LineItemView, 0, len(order.Tickets)),
	}
	for _, item := range order.Tickets {
		t := b.ticketTypes[item.TicketTypeID]
		v.Tickets = append(v.Tickets, entity.LineItemView{
			LineItem: item,
			Name:     t.Name,
			Type:     t.Type,
		})
	}
	return v
}

// resolveBasket prices the basket from current inventory and runs the
// advisory capacity check. Quantities for a repeated ticket type are summed.
func (s *Service) resolveBasket(ctx context.Context, eventID string, in []LineItemInput, checkSaleWindow bool) (basket, error) {
	ev, err := s.events.Get(ctx, eventID)
	if errors.Is(err, entity.ErrEventNotFound) {
		return basket{}, newError(KindNotFound, "Event not found.", err)
	} else if err != nil {
		return basket{}, fmt.Errorf("getting event: %w", err)
	}

	ticketTypes, err := s.ticketTypes.FindByEvent(ctx, eventID)
	if err != nil {
		return basket{}, fmt.Errorf("finding ticket types for event: %w", err)
	}
	byID := make(map[string]entity.TicketType, len(ticketTypes))
	for _, t := range ticketTypes {
		byID[t.ID] = t
	}

	now := s.clock.Now()
	requested := make(map[string]int, len(in))
	items := make([]entity.LineItem, 0, len(in))
	for _, item := range in {
		t, ok := byID[item.TicketTypeID]
		if !ok {
			return basket{}, newError(KindNotFound, fmt.Sprintf("Ticket type with ID %s not found for this event.", item.TicketTypeID), entity.ErrTicketTypeNotFound)
		}
		if checkSaleWindow && !t.OnSale(now) {
			return basket{}, newError(KindInvalidArgument, fmt.Sprintf("Tickets for %s are not on sale.", t.Name), nil)
		}
		// Compared before adding so the running total stays within Remaining
		// and cannot overflow.
		if item.Quantity > t.Remaining()-requested[t.ID] {
			return basket{}, newError(KindCapacityExceeded, capacityMessage(t.Name, t.Remaining()), entity.ErrInsufficientCapacity)
		}
		requested[t.ID] += item.Quantity

		items = append(items, entity.LineItem{
			TicketTypeID: t.ID,
			Quantity:     item.Quantity,
			UnitPrice:    t.Price,
		})
	}

	return basket{event: ev, items: items, ticketTypes: byID}, nil
}

func trackOutcome(operation string, err *error) {
	outcome := "ok"
	if *err != nil {
		outcome = KindOf(*err).String()
	}
	monitoring.TrackPurchaseOperation(operation, outcome)
}
