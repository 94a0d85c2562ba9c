package message

import (
	"eventhub/message/event"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
)

type RouterDeps struct {
	Logger       watermill.LoggerAdapter
	RedisClient  *redis.Client
	EventHandler event.Handler
}

type Router struct {
	*message.Router
}

func NewRouter(deps RouterDeps) (*Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating router: %w", err)
	}

	addMiddlewares(router, deps.Logger)

	ep, err := cqrs.NewEventProcessorWithConfig(router, event.NewProcessorConfig(deps.Logger, deps.RedisClient))
	if err != nil {
		return nil, fmt.Errorf("creating event processor: %w", err)
	}

	if err := ep.AddHandlers(deps.EventHandler.EventHandlers()...); err != nil {
		return nil, fmt.Errorf("adding handlers: %w", err)
	}

	return &Router{router}, nil
}
