package clients

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ThreeDotsLabs/go-event-driven/common/clients"
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
)

const userAgent = "eventhub"

// NewGatewayClients builds the receipts, spreadsheets and files API clients
// behind a single gateway. Requests carry the correlation id of the event
// being handled.
func NewGatewayClients(gatewayAddress string, httpClient *http.Client) (*clients.Clients, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	c, err := clients.NewClientsWithHttpClient(gatewayAddress, withCorrelationID, httpClient)
	if err != nil {
		return nil, fmt.Errorf("creating gateway clients for %s: %w", gatewayAddress, err)
	}

	return c, nil
}

func withCorrelationID(ctx context.Context, req *http.Request) error {
	req.Header.Set("Correlation-ID", log.CorrelationIDFromContext(ctx))
	req.Header.Set("User-Agent", userAgent)
	return nil
}
