package clients

import (
	"eventhub/entity"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailerOrderConfirmation(t *testing.T) {
	mailer := NewMailer(MailerConfig{
		Addr:        "smtp.example.com:587",
		User:        "mailer",
		Password:    "secret",
		From:        "tickets@example.com",
		FromName:    "Eventhub",
		FrontendURL: "https://eventhub.example.com",
	})

	mail, err := mailer.newOrderConfirmation("buyer@example.com", TicketPrintout{
		OrderID:    "order-1",
		EventID:    "event-1",
		EventTitle: "Spring Gala",
		EventDate:  time.Date(2026, time.April, 14, 19, 0, 0, 0, time.UTC),
		Lines: []TicketPrintoutLine{
			{TicketTypeID: "vip", Name: "VIP", Type: "vip", Quantity: 2, UnitPrice: entity.Money{Amount: "50.00", Currency: "usd"}},
		},
		Total: entity.Money{Amount: "100.00", Currency: "usd"},
	})
	require.NoError(t, err)

	buf, err := mail.MimeBuf()
	require.NoError(t, err)
	raw := buf.String()

	assert.Contains(t, raw, "To: buyer@example.com")
	assert.Contains(t, raw, "Subject: Your tickets for Spring Gala have been confirmed!")
	assert.Contains(t, raw, "Event: Spring Gala")
	assert.Contains(t, raw, "Date: Tue, 14 Apr 2026 19:00 UTC")
	assert.Contains(t, raw, "2 x VIP at 50.00 usd")
	assert.Contains(t, raw, "Total paid: 100.00 usd")
	assert.Contains(t, raw, "https://eventhub.example.com/orders")
	assert.Contains(t, raw, "Event details: https://eventhub.example.com/events/event-1")
}

func TestMailerOrderConfirmationWithoutEventTitle(t *testing.T) {
	mailer := NewMailer(MailerConfig{Addr: "localhost:1025", From: "tickets@example.com"})

	mail, err := mailer.newOrderConfirmation("buyer@example.com", TicketPrintout{
		OrderID: "order-1",
		Total:   entity.Money{Amount: "10.00", Currency: "usd"},
	})
	require.NoError(t, err)

	buf, err := mail.MimeBuf()
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "Subject: Your order order-1 is confirmed")
	assert.NotContains(t, buf.String(), "Event details:")
}

func TestRenderPrintout(t *testing.T) {
	printout := renderPrintout(TicketPrintout{
		OrderID:    "order-1",
		EventID:    "event-1",
		EventTitle: "Rock & Roll",
		EventDate:  time.Date(2026, time.April, 14, 19, 0, 0, 0, time.UTC),
		Lines: []TicketPrintoutLine{
			{TicketTypeID: "vip", Name: "VIP", Type: "vip", Quantity: 2, UnitPrice: entity.Money{Amount: "50.00", Currency: "usd"}},
		},
		Total: entity.Money{Amount: "100.00", Currency: "usd"},
	})

	assert.Contains(t, printout, "Event: Rock &amp; Roll")
	assert.Contains(t, printout, "Date: Tue, 14 Apr 2026 19:00 UTC")
	assert.Contains(t, printout, "Ticket: VIP (vip) x2 at 50.00 usd")
}

func TestMailerAuthWithoutUser(t *testing.T) {
	mailer := NewMailer(MailerConfig{Addr: "localhost:1025"})
	assert.Nil(t, mailer.auth())
}
