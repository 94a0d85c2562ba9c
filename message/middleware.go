package message

import (
	"eventhub/monitoring"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/lithammer/shortuuid/v3"
	"github.com/sirupsen/logrus"
)

func addMiddlewares(router *message.Router, logger watermill.LoggerAdapter) {
	router.AddMiddleware(correlationIDMiddleware)
	router.AddMiddleware(loggerMiddleware)
	router.AddMiddleware(handlerLogMiddleware)
	router.AddMiddleware(dropAfterRetriesMiddleware)
	router.AddMiddleware(middleware.Retry{
		MaxRetries:      10,
		InitialInterval: time.Millisecond * 100,
		MaxInterval:     time.Second,
		Multiplier:      2,
		Logger:          logger,
	}.Middleware)
}

func correlationIDMiddleware(next message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		correlationID := middleware.MessageCorrelationID(msg)
		if correlationID == "" {
			correlationID = "gen_" + shortuuid.New()
		}

		ctx := log.ContextWithCorrelationID(msg.Context(), correlationID)
		msg.SetContext(ctx)

		return next(msg)
	}
}

func loggerMiddleware(next message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		correlationID := log.CorrelationIDFromContext(msg.Context())
		ctx := log.ToContext(msg.Context(), logrus.WithFields(logrus.Fields{
			"message_uuid":   msg.UUID,
			"correlation_id": correlationID}))
		msg.SetContext(ctx)

		return next(msg)
	}
}

func handlerLogMiddleware(next message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		logger := log.FromContext(msg.Context())
		logger.Info("Handling a message")

		msgs, err := next(msg)

		if err != nil {
			logger.WithError(err).Error("Message handling error")
		}

		return msgs, err
	}
}

// dropAfterRetriesMiddleware acknowledges a message whose handler still
// fails after retrying, so one bad notification does not stall the stream.
func dropAfterRetriesMiddleware(next message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		msgs, err := next(msg)
		if err == nil {
			return msgs, nil
		}

		handlerName := message.HandlerNameFromCtx(msg.Context())
		log.FromContext(msg.Context()).
			WithError(err).
			WithField("handler", handlerName).
			Error("Dropping message after retries")
		monitoring.TrackMessageDropped(handlerName)

		return nil, nil
	}
}
