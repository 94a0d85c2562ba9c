package clients

import (
	"context"
	"eventhub/entity"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/clients"
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
)

type TicketPrintout struct {
	OrderID    string
	EventID    string
	EventTitle string
	EventDate  time.Time
	Lines      []TicketPrintoutLine
	Total      entity.Money
}

type TicketPrintoutLine struct {
	TicketTypeID string
	Name         string
	Type         string
	Quantity     int
	UnitPrice    entity.Money
}

type FilesClient struct {
	clients *clients.Clients
}

func NewFilesClient(clients *clients.Clients) FilesClient {
	return FilesClient{
		clients: clients,
	}
}

// PrintTickets stores the printable tickets for an order and returns the
// file id. An existing file for the order is treated as already printed.
func (c FilesClient) PrintTickets(ctx context.Context, p TicketPrintout) (string, error) {
	fileID := fmt.Sprintf("%s-tickets.html", p.OrderID)

	res, err := c.clients.Files.PutFilesFileIdContentWithTextBodyWithResponse(ctx, fileID, renderPrintout(p))
	if err != nil {
		return "", fmt.Errorf("put file request: %w", err)
	}

	if res.StatusCode() == http.StatusConflict {
		log.FromContext(ctx).Infof("file %s already exists", fileID)
		return fileID, nil
	}

	if res.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", res.StatusCode())
	}

	return fileID, nil
}

func renderPrintout(p TicketPrintout) string {
	var b strings.Builder
	b.WriteString("<html><body>\n")
	fmt.Fprintf(&b, "Event: %s\n", html.EscapeString(p.EventTitle))
	if !p.EventDate.IsZero() {
		fmt.Fprintf(&b, "Date: %s\n", p.EventDate.UTC().Format(eventDateLayout))
	}
	fmt.Fprintf(&b, "Order ID: %s\nEvent ID: %s\n", p.OrderID, p.EventID)
	for _, line := range p.Lines {
		fmt.Fprintf(&b, "Ticket: %s (%s) x%d at %s %s\n",
			html.EscapeString(line.Name), line.Type, line.Quantity, line.UnitPrice.Amount, line.UnitPrice.Currency)
	}
	fmt.Fprintf(&b, "Total: %s %s\n", p.Total.Amount, p.Total.Currency)
	b.WriteString("</body></html>")
	return b.String()
}
