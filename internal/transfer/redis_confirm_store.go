package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const confirmPrefix = "confirm:v1:"

// claimScript deletes the staged request in the same atomic step that reads
// it, turning lookup-then-delete into a single conditional claim.
var claimScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if v then
    redis.call('DEL', KEYS[1])
end
return v
`)

// RedisConfirmStore stages confirmation requests in Redis. Expiry rides on
// the key TTL, so stale requests vanish without a sweeper.
type RedisConfirmStore struct {
	client *redis.Client
}

// NewRedisConfirmStore builds a Redis-backed confirmation store.
func NewRedisConfirmStore(client *redis.Client) *RedisConfirmStore {
	return &RedisConfirmStore{client: client}
}

// Put stores the request until its expiry timestamp.
func (s *RedisConfirmStore) Put(ctx context.Context, req ConfirmationRequest) error {
	ttl := time.Until(req.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("confirmation request already expired")
	}
	buf, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal confirmation request: %w", err)
	}
	key := confirmPrefix + confirmKey(req.SenderPhone, req.Code)
	if err := s.client.Set(ctx, key, buf, ttl).Err(); err != nil {
		return fmt.Errorf("store confirmation request: %w", err)
	}
	return nil
}

// Claim atomically removes and returns the live request for (phone, code).
func (s *RedisConfirmStore) Claim(ctx context.Context, senderPhone, code string) (ConfirmationRequest, error) {
	key := confirmPrefix + confirmKey(senderPhone, code)
	res, err := claimScript.Run(ctx, s.client, []string{key}).Result()
	if err == redis.Nil || res == nil {
		return ConfirmationRequest{}, ErrInvalidConfirmation
	}
	if err != nil {
		return ConfirmationRequest{}, fmt.Errorf("claim confirmation request: %w", err)
	}
	raw, ok := res.(string)
	if !ok {
		return ConfirmationRequest{}, fmt.Errorf("unexpected claim result type %T", res)
	}
	var req ConfirmationRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return ConfirmationRequest{}, fmt.Errorf("unmarshal confirmation request: %w", err)
	}
	return req, nil
}
