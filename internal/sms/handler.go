package sms

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gofiber/fiber/v2"
)

var phonePattern = regexp.MustCompile(`^\+\d{7,15}$`)

// handleTimeout bounds one inbound message end to end, including the
// on-chain settlement wait.
const handleTimeout = 3 * time.Minute

// Handler exposes the inbound SMS webhook.
type Handler struct {
	dispatcher *Dispatcher
}

// NewHandler constructs an SMS webhook handler.
func NewHandler(dispatcher *Dispatcher) *Handler {
	return &Handler{dispatcher: dispatcher}
}

// Webhook accepts a Twilio-style inbound message. The provider expects a
// prompt 2xx, so dispatch runs in the background; all replies go out
// through the notifier rather than the webhook response.
func (h *Handler) Webhook(c *fiber.Ctx) error {
	from := c.FormValue("From")
	body := c.FormValue("Body")
	if !phonePattern.MatchString(from) || body == "" {
		return fiber.NewError(http.StatusBadRequest, "missing or malformed From/Body")
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
		defer cancel()
		h.dispatcher.Handle(ctx, from, body)
	}()

	c.Set(fiber.HeaderContentType, "application/xml")
	return c.Status(http.StatusOK).SendString(`<?xml version="1.0" encoding="UTF-8"?><Response></Response>`)
}
