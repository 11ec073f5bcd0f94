package price

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
)

const feedID = "ff61491a931112ddf1bd8147cd1b641375f79f5825126d665480874634fd0ace"

func TestQuoteParsesHermesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/updates/price/latest" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("ids[]"); got != feedID {
			t.Fatalf("unexpected feed id %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"parsed":[{"price":{"price":"245612345678","expo":-8,"publish_time":1700000000}}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, map[string]string{"ETHUSD": feedID})
	quote, err := client.Quote(context.Background(), "ethusd")
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.Pair != "ETHUSD" {
		t.Fatalf("unexpected pair %s", quote.Pair)
	}
	if !quote.Price.Equal(decimal.RequireFromString("2456.12345678")) {
		t.Fatalf("unexpected price %s", quote.Price)
	}
	if quote.PublishTime.Unix() != 1700000000 {
		t.Fatalf("unexpected publish time %v", quote.PublishTime)
	}
}

func TestQuoteUnknownPair(t *testing.T) {
	client := NewClient("http://localhost:0", map[string]string{"ETHUSD": feedID})
	if _, err := client.Quote(context.Background(), "DOGEUSD"); err == nil {
		t.Fatalf("expected error for unconfigured pair")
	}
}

func TestQuoteServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, map[string]string{"ETHUSD": feedID})
	if _, err := client.Quote(context.Background(), "ETHUSD"); err == nil {
		t.Fatalf("expected error for upstream failure")
	}
}

func TestQuoteEmptyParsed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"parsed":[]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, map[string]string{"ETHUSD": feedID})
	if _, err := client.Quote(context.Background(), "ETHUSD"); err == nil {
		t.Fatalf("expected error for empty payload")
	}
}
