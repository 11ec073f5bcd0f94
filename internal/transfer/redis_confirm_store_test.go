package transfer

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/paytos/paytos/internal/asset"
)

func setupRedisStore(t *testing.T) (*RedisConfirmStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return NewRedisConfirmStore(client), mr
}

func testRequest(ttl time.Duration) ConfirmationRequest {
	return ConfirmationRequest{
		SenderPhone:    "+11111111111",
		RecipientPhone: "+22222222222",
		Amount:         decimal.RequireFromString("5"),
		Asset:          asset.PYUSD,
		Code:           "ABC123",
		ExpiresAt:      time.Now().UTC().Add(ttl),
	}
}

func TestRedisPutAndClaim(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, testRequest(5*time.Minute)); err != nil {
		t.Fatalf("put: %v", err)
	}

	req, err := store.Claim(ctx, "+11111111111", "ABC123")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if req.RecipientPhone != "+22222222222" || !req.Amount.Equal(decimal.RequireFromString("5")) {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestRedisClaimIsSingleUse(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, testRequest(5*time.Minute)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.Claim(ctx, "+11111111111", "ABC123"); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if _, err := store.Claim(ctx, "+11111111111", "ABC123"); !errors.Is(err, ErrInvalidConfirmation) {
		t.Fatalf("expected ErrInvalidConfirmation on second claim, got %v", err)
	}
}

func TestRedisClaimWrongPhone(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, testRequest(5*time.Minute)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.Claim(ctx, "+33333333333", "ABC123"); !errors.Is(err, ErrInvalidConfirmation) {
		t.Fatalf("expected ErrInvalidConfirmation, got %v", err)
	}
}

func TestRedisClaimCaseInsensitiveCode(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, testRequest(5*time.Minute)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.Claim(ctx, "+11111111111", "abc123"); err != nil {
		t.Fatalf("claim with lower-case code: %v", err)
	}
}

func TestRedisExpiryConsumesRequest(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, testRequest(time.Minute)); err != nil {
		t.Fatalf("put: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, err := store.Claim(ctx, "+11111111111", "ABC123"); !errors.Is(err, ErrInvalidConfirmation) {
		t.Fatalf("expected ErrInvalidConfirmation after expiry, got %v", err)
	}
}

func TestRedisPutRejectsExpiredRequest(t *testing.T) {
	store, _ := setupRedisStore(t)
	if err := store.Put(context.Background(), testRequest(-time.Second)); err == nil {
		t.Fatalf("expected error for already-expired request")
	}
}
