package monitoring

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	purchaseOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_purchase_operations_total",
			Help: "Purchase operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	ticketsSold = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_tickets_sold_total",
			Help: "Tickets sold per event",
		},
		[]string{"event_id"},
	)

	compensationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventhub_compensation_failures_total",
			Help: "Confirmations whose inventory rollback failed and need manual reconciliation",
		},
	)

	messagesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_messages_dropped_total",
			Help: "Messages acknowledged after exhausting retries",
		},
		[]string{"handler"},
	)

	streamLength = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eventhub_stream_length",
			Help: "Current length of event streams",
		},
		[]string{"stream"},
	)
)

func TrackPurchaseOperation(operation, outcome string) {
	purchaseOperations.WithLabelValues(operation, outcome).Inc()
}

func TrackTicketsSold(eventID string, quantity int) {
	ticketsSold.WithLabelValues(eventID).Add(float64(quantity))
}

func TrackCompensationFailure() {
	compensationFailures.Inc()
}

func TrackMessageDropped(handler string) {
	messagesDropped.WithLabelValues(handler).Inc()
}

type Monitor struct {
	redis    *redis.Client
	streams  []string
	interval time.Duration
}

func NewMonitor(redisClient *redis.Client, streams ...string) *Monitor {
	return &Monitor{
		redis:    redisClient,
		streams:  streams,
		interval: 30 * time.Second,
	}
}

// Run samples stream lengths until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		m.collectStreamMetrics(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (m *Monitor) collectStreamMetrics(ctx context.Context) {
	for _, stream := range m.streams {
		length, err := m.redis.XLen(ctx, stream).Result()
		if err != nil {
			log.FromContext(ctx).WithError(err).Warnf("Failed to read length of stream %s", stream)
			continue
		}
		streamLength.WithLabelValues(stream).Set(float64(length))
	}
}
