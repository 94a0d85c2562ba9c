package clients_test

import (
	"context"
	"eventhub/clients"
	"eventhub/entity"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayClientsPropagateCorrelationID(t *testing.T) {
	type request struct {
		path          string
		correlationID string
		userAgent     string
	}
	requests := make(chan request, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests <- request{
			path:          r.URL.Path,
			correlationID: r.Header.Get("Correlation-ID"),
			userAgent:     r.Header.Get("User-Agent"),
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	gateway, err := clients.NewGatewayClients(server.URL, server.Client())
	require.NoError(t, err)

	ctx := log.ContextWithCorrelationID(context.Background(), "corr-123")
	err = clients.NewReceiptsClient(gateway).IssueReceipt(ctx, "order-1", entity.Money{Amount: "10.00", Currency: "usd"})
	require.NoError(t, err)

	got := <-requests
	assert.Equal(t, "/receipts-api/receipts", got.path)
	assert.Equal(t, "corr-123", got.correlationID)
	assert.Equal(t, "eventhub", got.userAgent)
}

func TestGatewayClientsRequireAddress(t *testing.T) {
	_, err := clients.NewGatewayClients("", nil)
	require.Error(t, err)
}
