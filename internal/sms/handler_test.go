package sms

import (
	"io"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func newWebhookApp(t *testing.T) (*fiber.App, *fixture) {
	t.Helper()
	f := newFixture(t, "")
	app := fiber.New()
	app.Post("/sms/webhook", NewHandler(f.dispatcher).Webhook)
	return app, f
}

func postWebhook(t *testing.T, app *fiber.App, form url.Values) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/sms/webhook", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestWebhookAcknowledgesWithTwiML(t *testing.T) {
	app, f := newWebhookApp(t)

	code, body := postWebhook(t, app, url.Values{
		"From":       {"+15550001111"},
		"Body":       {"REGISTER 1234"},
		"MessageSid": {"SM1"},
	})
	if code != fiber.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	if !strings.Contains(body, "<Response></Response>") {
		t.Fatalf("unexpected ack body %q", body)
	}

	// Dispatch is asynchronous; the welcome message lands shortly after
	// the acknowledgement.
	deadline := time.Now().Add(2 * time.Second)
	for {
		f.sender.mu.Lock()
		n := len(f.sender.sent)
		f.sender.mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no reply sent after webhook ack")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := f.sender.last(t); !strings.Contains(got.Body, "Welcome to Paytos!") {
		t.Fatalf("unexpected reply %q", got.Body)
	}
}

func TestWebhookRejectsMalformedSender(t *testing.T) {
	app, _ := newWebhookApp(t)

	code, _ := postWebhook(t, app, url.Values{"From": {"15550001111"}, "Body": {"HELP"}})
	if code != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for missing plus prefix, got %d", code)
	}

	code, _ = postWebhook(t, app, url.Values{"From": {"+15550001111"}})
	if code != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for empty body, got %d", code)
	}
}
