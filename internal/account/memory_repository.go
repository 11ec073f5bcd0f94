package account

import (
	"context"
	"sync"
	"time"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Account
}

// NewMemoryRepository constructs an in-memory repository for tests and the
// development environment.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]Account)}
}

func (r *memoryRepository) Create(_ context.Context, acct Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.storage[acct.Phone]; exists {
		return ErrExists
	}
	r.storage[acct.Phone] = snapshot(acct)
	return nil
}

func (r *memoryRepository) FindByPhone(_ context.Context, phone string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acct, ok := r.storage[phone]
	if !ok {
		return Account{}, ErrNotFound
	}
	return snapshot(acct), nil
}

func (r *memoryRepository) Save(_ context.Context, acct Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.storage[acct.Phone]; !exists {
		return ErrNotFound
	}
	acct.UpdatedAt = time.Now().UTC()
	r.storage[acct.Phone] = snapshot(acct)
	return nil
}

// snapshot copies the account so callers never share balance maps or key
// material with the store.
func snapshot(acct Account) Account {
	out := acct
	out.Balances = acct.CloneBalances()
	out.EncryptedKey = append([]byte(nil), acct.EncryptedKey...)
	out.PINHash = append([]byte(nil), acct.PINHash...)
	return out
}
