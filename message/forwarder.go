package message

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	watermillSQL "github.com/ThreeDotsLabs/watermill-sql/v2/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/components/forwarder"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// OutboxTopic is the Postgres table-backed topic order events are written
// to before being relayed to Redis streams.
const OutboxTopic = "eventhub.outbox"

// OutboxForwarder relays order events committed to the outbox onto the
// Redis stream named after each event.
type OutboxForwarder struct {
	*forwarder.Forwarder
}

func NewForwarder(
	db *sqlx.DB,
	rdb *redis.Client,
	logger watermill.LoggerAdapter,
) (*OutboxForwarder, error) {
	outbox, err := watermillSQL.NewSubscriber(db, watermillSQL.SubscriberConfig{
		SchemaAdapter:  watermillSQL.DefaultPostgreSQLSchema{},
		OffsetsAdapter: watermillSQL.DefaultPostgreSQLOffsetsAdapter{},
		// Multiple replicas share one offset so each event is relayed once.
		ConsumerGroup: "eventhub",
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating outbox subscriber: %w", err)
	}

	if err := outbox.SubscribeInitialize(OutboxTopic); err != nil {
		return nil, fmt.Errorf("initialising outbox table: %w", err)
	}

	streams, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: rdb,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating stream publisher: %w", err)
	}

	f, err := forwarder.NewForwarder(outbox, log.CorrelationPublisherDecorator{Publisher: streams}, logger, forwarder.Config{
		ForwarderTopic: OutboxTopic,
	})
	if err != nil {
		return nil, fmt.Errorf("creating outbox forwarder: %w", err)
	}

	return &OutboxForwarder{f}, nil
}

// PublishInTx writes events to the outbox within tx. They become visible
// to the forwarder only once tx commits.
func PublishInTx(
	ctx context.Context,
	tx *sql.Tx,
	logger watermill.LoggerAdapter,
	events ...any,
) error {
	if len(events) == 0 {
		return nil
	}

	bus, err := outboxEventBus(tx, logger)
	if err != nil {
		return err
	}

	for _, e := range events {
		if err := bus.Publish(ctx, e); err != nil {
			return fmt.Errorf("publishing %T to outbox: %w", e, err)
		}
	}

	return nil
}

func outboxEventBus(tx *sql.Tx, logger watermill.LoggerAdapter) (*cqrs.EventBus, error) {
	sqlPublisher, err := watermillSQL.NewPublisher(
		tx,
		watermillSQL.PublisherConfig{
			SchemaAdapter: watermillSQL.DefaultPostgreSQLSchema{},
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("creating outbox publisher: %w", err)
	}

	outbox := forwarder.NewPublisher(sqlPublisher, forwarder.PublisherConfig{
		ForwarderTopic: OutboxTopic,
	})

	bus, err := cqrs.NewEventBusWithConfig(log.CorrelationPublisherDecorator{Publisher: outbox}, cqrs.EventBusConfig{
		GeneratePublishTopic: func(params cqrs.GenerateEventPublishTopicParams) (string, error) {
			return params.EventName, nil
		},
		Marshaler: cqrs.JSONMarshaler{
			GenerateName: cqrs.StructName,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating outbox event bus: %w", err)
	}

	return bus, nil
}
