package clients

import (
	"bytes"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strings"

	"github.com/domodwyer/mailyak/v3"
)

const eventDateLayout = "Mon, 02 Jan 2006 15:04 MST"

var orderConfirmationTemplate = template.Must(template.New("order-confirmation").Parse(`<html><body>
<h1>Thank you for your purchase!</h1>
<p>Here are your ticket details:</p>
{{if .EventTitle}}<p><strong>Event:</strong> {{.EventTitle}}</p>{{end}}
{{if .EventDate}}<p><strong>Date:</strong> {{.EventDate}}</p>{{end}}
<p><strong>Order ID:</strong> {{.OrderID}}</p>
<ul>
{{range .Lines}}<li>{{.Quantity}} x {{.Name}}{{if .Type}} ({{.Type}}){{end}} at {{.UnitPrice.Amount}} {{.UnitPrice.Currency}}</li>
{{end}}</ul>
<p><strong>Total:</strong> {{.Total.Amount}} {{.Total.Currency}}</p>
{{if .OrdersURL}}<p>You can view your tickets in <a href="{{.OrdersURL}}">your orders</a>.</p>{{end}}
{{if .EventURL}}<p><strong><a href="{{.EventURL}}">View Event Details</a></strong></p>{{end}}
<p>Thank you for using EventHub!</p>
</body></html>`))

type MailerConfig struct {
	// Addr is the SMTP server as host:port.
	Addr        string
	User        string
	Password    string
	From        string
	FromName    string
	FrontendURL string
}

type Mailer struct {
	cfg MailerConfig
}

func NewMailer(cfg MailerConfig) Mailer {
	return Mailer{cfg: cfg}
}

type orderConfirmationData struct {
	TicketPrintout
	EventDate string
	OrdersURL string
	EventURL  string
}

func (m Mailer) SendOrderConfirmation(to string, p TicketPrintout) error {
	mail, err := m.newOrderConfirmation(to, p)
	if err != nil {
		return err
	}

	if err := mail.Send(); err != nil {
		return fmt.Errorf("sending order confirmation to %s: %w", to, err)
	}

	return nil
}

func (m Mailer) newOrderConfirmation(to string, p TicketPrintout) (*mailyak.MailYak, error) {
	data := orderConfirmationData{TicketPrintout: p}
	if !p.EventDate.IsZero() {
		data.EventDate = p.EventDate.UTC().Format(eventDateLayout)
	}
	if m.cfg.FrontendURL != "" {
		data.OrdersURL = m.cfg.FrontendURL + "/orders"
		data.EventURL = m.cfg.FrontendURL + "/events/" + p.EventID
	}

	var body bytes.Buffer
	if err := orderConfirmationTemplate.Execute(&body, data); err != nil {
		return nil, fmt.Errorf("rendering order confirmation: %w", err)
	}

	mail := mailyak.New(m.cfg.Addr, m.auth())
	mail.To(to)
	mail.From(m.cfg.From)
	mail.FromName(m.cfg.FromName)
	if p.EventTitle != "" {
		mail.Subject("Your tickets for " + p.EventTitle + " have been confirmed!")
	} else {
		mail.Subject("Your order " + p.OrderID + " is confirmed")
	}
	mail.HTML().Set(body.String())
	mail.Plain().Set(plainOrderConfirmation(data))

	return mail, nil
}

func plainOrderConfirmation(data orderConfirmationData) string {
	var b strings.Builder
	if data.EventTitle != "" {
		fmt.Fprintf(&b, "Event: %s\n", data.EventTitle)
	}
	if data.EventDate != "" {
		fmt.Fprintf(&b, "Date: %s\n", data.EventDate)
	}
	fmt.Fprintf(&b, "Order %s is confirmed.\n", data.OrderID)
	for _, line := range data.Lines {
		fmt.Fprintf(&b, "%d x %s at %s %s\n", line.Quantity, line.Name, line.UnitPrice.Amount, line.UnitPrice.Currency)
	}
	fmt.Fprintf(&b, "Total paid: %s %s.\n", data.Total.Amount, data.Total.Currency)
	if data.OrdersURL != "" {
		fmt.Fprintf(&b, "View your orders at %s\n", data.OrdersURL)
	}
	if data.EventURL != "" {
		fmt.Fprintf(&b, "Event details: %s\n", data.EventURL)
	}
	return b.String()
}

func (m Mailer) auth() smtp.Auth {
	if m.cfg.User == "" {
		return nil
	}
	host, _, err := net.SplitHostPort(m.cfg.Addr)
	if err != nil {
		host = m.cfg.Addr
	}
	return smtp.PlainAuth("", m.cfg.User, m.cfg.Password, host)
}
