package middleware

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/paytos/paytos/internal/logging"
)

func setupDedupeApp(t *testing.T, hits *atomic.Int64) (*fiber.App, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	app := fiber.New()
	app.Use(Dedupe(cache, "MessageSid", time.Hour, logging.Discard()))
	app.Post("/sms/webhook", func(c *fiber.Ctx) error {
		hits.Add(1)
		return c.SendStatus(fiber.StatusOK)
	})

	cleanup := func() {
		cache.Close()
		mr.Close()
	}
	return app, mr, cleanup
}

func postForm(t *testing.T, app *fiber.App, form url.Values) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/sms/webhook", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestDedupeDropsRepeatedDelivery(t *testing.T) {
	var hits atomic.Int64
	app, _, cleanup := setupDedupeApp(t, &hits)
	defer cleanup()

	form := url.Values{"MessageSid": {"SM123"}, "From": {"+15550001111"}, "Body": {"BALANCE 1234"}}

	if code := postForm(t, app, form); code != fiber.StatusOK {
		t.Fatalf("first delivery returned %d", code)
	}
	if code := postForm(t, app, form); code != fiber.StatusOK {
		t.Fatalf("retried delivery returned %d", code)
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("handler ran %d times, want 1", got)
	}
}

func TestDedupeAllowsDistinctMessages(t *testing.T) {
	var hits atomic.Int64
	app, _, cleanup := setupDedupeApp(t, &hits)
	defer cleanup()

	postForm(t, app, url.Values{"MessageSid": {"SM1"}})
	postForm(t, app, url.Values{"MessageSid": {"SM2"}})

	if got := hits.Load(); got != 2 {
		t.Fatalf("handler ran %d times, want 2", got)
	}
}

func TestDedupeClaimExpires(t *testing.T) {
	var hits atomic.Int64
	app, mr, cleanup := setupDedupeApp(t, &hits)
	defer cleanup()

	form := url.Values{"MessageSid": {"SM123"}}
	postForm(t, app, form)
	mr.FastForward(2 * time.Hour)
	postForm(t, app, form)

	if got := hits.Load(); got != 2 {
		t.Fatalf("handler ran %d times, want 2", got)
	}
}

func TestDedupePassesThroughWithoutMessageID(t *testing.T) {
	var hits atomic.Int64
	app, _, cleanup := setupDedupeApp(t, &hits)
	defer cleanup()

	postForm(t, app, url.Values{"From": {"+15550001111"}})
	postForm(t, app, url.Values{"From": {"+15550001111"}})

	if got := hits.Load(); got != 2 {
		t.Fatalf("handler ran %d times, want 2", got)
	}
}

func TestCommandRateLimitThrottlesFloods(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app := fiber.New()
	app.Use(CommandRateLimit(cache, "From", 3))
	app.Post("/sms/webhook", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	form := url.Values{"From": {"+15550001111"}}
	for i := 0; i < 3; i++ {
		if code := postForm(t, app, form); code != fiber.StatusOK {
			t.Fatalf("request %d returned %d", i+1, code)
		}
	}
	if code := postForm(t, app, form); code != fiber.StatusTooManyRequests {
		t.Fatalf("expected throttle, got %d", code)
	}
	if code := postForm(t, app, url.Values{"From": {"+15550009999"}}); code != fiber.StatusOK {
		t.Fatalf("other sender throttled: %d", code)
	}
}
