package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const dedupePrefix = "sms:seen:v1:"

// Dedupe drops repeated webhook deliveries of the same inbound message.
// SMS providers retry on slow or failed acknowledgements, and a replayed
// SEND or CONFIRM must not run twice. The provider message ID is claimed in
// Redis with SETNX; a second delivery still gets a 200 so the provider
// stops retrying, but the body never reaches the dispatcher.
func Dedupe(cache *redis.Client, field string, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		id := c.FormValue(field)
		if id == "" {
			return c.Next()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		fresh, err := cache.SetNX(ctx, dedupePrefix+id, time.Now().UTC().Format(time.RFC3339), ttl).Result()
		if err != nil {
			logger.Warn("dedupe claim failed", slog.String("message_id", id), slog.Any("error", err))
			return c.Next() // fail-open on cache errors
		}
		if !fresh {
			logger.Info("duplicate delivery dropped", slog.String("message_id", id))
			return c.SendStatus(fiber.StatusOK)
		}
		return c.Next()
	}
}
