package middleware

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// CommandRateLimit limits inbound commands per phone number using Redis if
// available. A flooded number is throttled before PIN verification runs, so
// the lockout counter cannot be driven by brute force at webhook speed.
func CommandRateLimit(cache *redis.Client, field string, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 10
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next() // no-op without Redis
		}
		phone := c.FormValue(field)
		if phone == "" {
			phone = c.IP()
		}
		key := "rl:sms:" + phone
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err == nil && cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if err != nil {
			return c.Next() // fail-open on cache errors
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many messages, try again later")
		}
		return c.Next()
	}
}
