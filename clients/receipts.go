package clients

import (
	"context"
	"eventhub/entity"
	"fmt"
	"net/http"

	"github.com/ThreeDotsLabs/go-event-driven/common/clients"
	"github.com/ThreeDotsLabs/go-event-driven/common/clients/receipts"
)

type ReceiptsClient struct {
	clients *clients.Clients
}

func NewReceiptsClient(clients *clients.Clients) ReceiptsClient {
	return ReceiptsClient{
		clients: clients,
	}
}

// IssueReceipt issues one receipt per order. The receipts service
// deduplicates on the order id, so redelivered events are harmless.
func (c ReceiptsClient) IssueReceipt(ctx context.Context, orderID string, total entity.Money) error {
	body := receipts.CreateReceipt{
		TicketId: orderID,
		Price: receipts.Money{
			MoneyAmount:   total.Amount,
			MoneyCurrency: total.Currency,
		},
	}

	res, err := c.clients.Receipts.PutReceiptsWithResponse(ctx, body)
	if err != nil {
		return fmt.Errorf("put receipt request: %w", err)
	}

	if res.StatusCode() != http.StatusOK && res.StatusCode() != http.StatusCreated {
		return fmt.Errorf("unexpected status code: %v", res.StatusCode())
	}

	return nil
}
