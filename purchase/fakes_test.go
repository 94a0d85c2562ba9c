package purchase_test

import (
	"context"
	"eventhub/clients"
	"eventhub/db"
	"eventhub/entity"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

type fakeEvents struct {
	events map[string]entity.Event
}

func (f *fakeEvents) Get(_ context.Context, eventID string) (entity.Event, error) {
	e, ok := f.events[eventID]
	if !ok {
		return entity.Event{}, entity.ErrEventNotFound
	}
	return e, nil
}

// fakeInventory makes each conditional increment atomic under a mutex, the
// way a single conditional UPDATE is atomic in Postgres.
type fakeInventory struct {
	lock        sync.Mutex
	ticketTypes map[string]*entity.TicketType
	increments  int

	// beforeIncrement runs outside the lock before each increment.
	beforeIncrement func(ticketTypeID string)
	decrementErr    error
}

func (f *fakeInventory) add(t entity.TicketType) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.ticketTypes[t.ID] = &t
}

func (f *fakeInventory) sold(ticketTypeID string) int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.ticketTypes[ticketTypeID].Sold
}

func (f *fakeInventory) setSold(ticketTypeID string, sold int) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.ticketTypes[ticketTypeID].Sold = sold
}

func (f *fakeInventory) setPrice(ticketTypeID string, price decimal.Decimal) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.ticketTypes[ticketTypeID].Price = price
}

func (f *fakeInventory) FindByEvent(_ context.Context, eventID string) ([]entity.TicketType, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	var out []entity.TicketType
	for _, t := range f.ticketTypes {
		if t.EventID == eventID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeInventory) ConditionalIncrementSold(_ context.Context, ticketTypeID string, delta int) (entity.TicketType, error) {
	if f.beforeIncrement != nil {
		f.beforeIncrement(ticketTypeID)
	}

	f.lock.Lock()
	defer f.lock.Unlock()

	t, ok := f.ticketTypes[ticketTypeID]
	if !ok {
		return entity.TicketType{}, entity.ErrTicketTypeNotFound
	}
	if t.Sold+delta > t.Quantity {
		return *t, entity.ErrInsufficientCapacity
	}
	t.Sold += delta
	f.increments++
	return *t, nil
}

func (f *fakeInventory) DecrementSold(_ context.Context, ticketTypeID string, delta int) error {
	if f.decrementErr != nil {
		return f.decrementErr
	}

	f.lock.Lock()
	defer f.lock.Unlock()

	t, ok := f.ticketTypes[ticketTypeID]
	if !ok || t.Sold < delta {
		return fmt.Errorf("cannot decrement ticket type %s by %d", ticketTypeID, delta)
	}
	t.Sold -= delta
	return nil
}

type fakeOrders struct {
	lock      sync.Mutex
	orders    map[string]entity.Order
	consumed  map[string]bool
	published []any
}

func (f *fakeOrders) count() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return len(f.orders)
}

func (f *fakeOrders) events() []any {
	f.lock.Lock()
	defer f.lock.Unlock()
	return slices.Clone(f.published)
}

func (f *fakeOrders) Create(_ context.Context, order entity.Order, events ...any) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.consumed[order.TransactionID] {
		return entity.ErrOrderAlreadyExists
	}
	if f.consumed == nil {
		f.consumed = map[string]bool{}
	}
	f.consumed[order.TransactionID] = true
	order.Tickets = slices.Clone(order.Tickets)
	f.orders[order.ID] = order
	f.published = append(f.published, events...)
	return nil
}

func (f *fakeOrders) GetByTransactionID(_ context.Context, transactionID string) (entity.Order, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	for _, o := range f.orders {
		if o.TransactionID == transactionID {
			return o, nil
		}
	}
	return entity.Order{}, entity.ErrOrderNotFound
}

func (f *fakeOrders) IntentConsumed(_ context.Context, transactionID string) (bool, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.consumed[transactionID], nil
}

func (f *fakeOrders) Update(ctx context.Context, orderID string, updateFn db.OrderUpdateFn) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	order, ok := f.orders[orderID]
	if !ok {
		return entity.ErrOrderNotFound
	}
	order.Tickets = slices.Clone(order.Tickets)

	events, err := updateFn(ctx, &order)
	if err != nil {
		return err
	}

	if len(order.Tickets) == 0 {
		delete(f.orders, orderID)
	} else {
		f.orders[orderID] = order
	}
	f.published = append(f.published, events...)
	return nil
}

func (f *fakeOrders) ListByUser(_ context.Context, userID string) ([]entity.OrderView, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	var views []entity.OrderView
	for _, o := range f.orders {
		if o.UserID != userID {
			continue
		}
		view := entity.OrderView{Order: o}
		for _, item := range o.Tickets {
			view.Tickets = append(view.Tickets, entity.LineItemView{LineItem: item})
		}
		views = append(views, view)
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].CreatedAt.After(views[j].CreatedAt)
	})
	return views, nil
}

type fakeGateway struct {
	lock    sync.Mutex
	intents map[string]entity.PaymentIntent
	next    int
	err     error
}

func (f *fakeGateway) CreateIntent(_ context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (entity.PaymentIntent, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.err != nil {
		return entity.PaymentIntent{}, f.err
	}

	f.next++
	id := fmt.Sprintf("pi_%d", f.next)
	intent := entity.PaymentIntent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       "requires_payment_method",
		Amount:       amount,
		Currency:     currency,
		Metadata:     metadata,
	}
	f.intents[id] = intent
	return intent, nil
}

func (f *fakeGateway) GetIntent(_ context.Context, intentID string) (entity.PaymentIntent, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.err != nil {
		return entity.PaymentIntent{}, f.err
	}
	intent, ok := f.intents[intentID]
	if !ok {
		return entity.PaymentIntent{}, fmt.Errorf("getting payment intent %s: %w", intentID, clients.ErrIntentNotFound)
	}
	return intent, nil
}

// settle marks the intent as paid by card, as the buyer's browser would.
func (f *fakeGateway) settle(intentID string) {
	f.lock.Lock()
	defer f.lock.Unlock()

	intent := f.intents[intentID]
	intent.Status = entity.IntentStatusSucceeded
	intent.PaymentMethod = "card"
	f.intents[intentID] = intent
}

func (f *fakeGateway) addIntent(intent entity.PaymentIntent) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.intents[intent.ID] = intent
}
