package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// RequestIDKey is the Locals key under which the request identifier is stored.
const RequestIDKey = "request_id"

// RequestID tags every inbound webhook delivery with a stable identifier so
// a provider retry can be tied back to the original in the logs.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqID := c.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(requestIDHeader, reqID)
		c.Locals(RequestIDKey, reqID)

		return c.Next()
	}
}
