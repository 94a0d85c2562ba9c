package message

import (
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelationIDMiddleware(t *testing.T) {
	t.Run("propagates correlation id from metadata", func(t *testing.T) {
		msg := message.NewMessage(watermill.NewUUID(), []byte("{}"))
		middleware.SetCorrelationID("corr-123", msg)

		var got string
		_, err := correlationIDMiddleware(func(msg *message.Message) ([]*message.Message, error) {
			got = log.CorrelationIDFromContext(msg.Context())
			return nil, nil
		})(msg)
		require.NoError(t, err)

		assert.Equal(t, "corr-123", got)
	})

	t.Run("generates a correlation id when missing", func(t *testing.T) {
		msg := message.NewMessage(watermill.NewUUID(), []byte("{}"))

		var got string
		_, err := correlationIDMiddleware(func(msg *message.Message) ([]*message.Message, error) {
			got = log.CorrelationIDFromContext(msg.Context())
			return nil, nil
		})(msg)
		require.NoError(t, err)

		assert.Regexp(t, "^gen_", got)
	})
}

func TestDropAfterRetriesMiddleware(t *testing.T) {
	msg := message.NewMessage(watermill.NewUUID(), []byte("{}"))

	calls := 0
	msgs, err := dropAfterRetriesMiddleware(func(msg *message.Message) ([]*message.Message, error) {
		calls++
		return nil, errors.New("smtp unavailable")
	})(msg)

	assert.NoError(t, err)
	assert.Nil(t, msgs)
	assert.Equal(t, 1, calls)
}
