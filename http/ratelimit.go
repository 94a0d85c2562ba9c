package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisRateLimitStore is a fixed-window counter shared by all instances.
type RedisRateLimitStore struct {
	redis  *redis.Client
	limit  int64
	window time.Duration
	clock  Clock
}

func NewRedisRateLimitStore(redisClient *redis.Client, limit int, window time.Duration, clock Clock) *RedisRateLimitStore {
	return &RedisRateLimitStore{
		redis:  redisClient,
		limit:  int64(limit),
		window: window,
		clock:  clock,
	}
}

// Allow counts the request against identifier's current window. Requests are
// let through when Redis is unavailable.
func (s *RedisRateLimitStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	key := s.key(identifier)

	count, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		logrus.WithError(err).Warn("Rate limit store unavailable, allowing request")
		return true, nil
	}
	if count == 1 {
		if err := s.redis.Expire(ctx, key, s.window).Err(); err != nil {
			logrus.WithError(err).Warnf("Failed to set expiry on %s", key)
		}
	}

	return count <= s.limit, nil
}

func (s *RedisRateLimitStore) key(identifier string) string {
	window := s.clock.Now().Truncate(s.window).Unix()
	return fmt.Sprintf("ratelimit:%s:%d", identifier, window)
}

func rateLimit(store middleware.RateLimiterStore) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			if id := identity(c); id.UserID != "" {
				return "user:" + id.UserID, nil
			}
			return "ip:" + c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return &echo.HTTPError{
				Code:     http.StatusTooManyRequests,
				Message:  "Too many requests, please try again later.",
				Internal: err,
			}
		},
	})
}
