package transfer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Transaction
}

// NewMemoryRepository constructs an in-memory transaction repository for
// tests and the development environment.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]Transaction)}
}

func (r *memoryRepository) Create(_ context.Context, tx Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.storage[tx.ID]; exists {
		return errors.New("transaction exists")
	}
	r.storage[tx.ID] = tx
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tx, ok := r.storage[id]
	if !ok {
		return Transaction{}, ErrTxNotFound
	}
	return tx, nil
}

func (r *memoryRepository) Save(_ context.Context, tx Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.storage[tx.ID]; !exists {
		return ErrTxNotFound
	}
	r.storage[tx.ID] = tx
	return nil
}

func (r *memoryRepository) ListPending(_ context.Context) ([]Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Transaction
	for _, tx := range r.storage {
		if tx.Status == StatusPending {
			out = append(out, tx)
		}
	}
	return out, nil
}

type memoryConfirmStore struct {
	mu      sync.Mutex
	storage map[string]ConfirmationRequest
	now     func() time.Time
}

// NewMemoryConfirmStore constructs an in-memory confirmation-request store.
func NewMemoryConfirmStore() ConfirmStore {
	return &memoryConfirmStore{storage: make(map[string]ConfirmationRequest), now: time.Now}
}

func (s *memoryConfirmStore) Put(_ context.Context, req ConfirmationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.storage[confirmKey(req.SenderPhone, req.Code)] = req
	return nil
}

// Claim deletes and returns the request under one lock acquisition, so two
// concurrent confirmations of the same code cannot both succeed.
func (s *memoryConfirmStore) Claim(_ context.Context, senderPhone, code string) (ConfirmationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := confirmKey(senderPhone, code)
	req, ok := s.storage[key]
	if !ok {
		return ConfirmationRequest{}, ErrInvalidConfirmation
	}
	delete(s.storage, key)
	if s.now().After(req.ExpiresAt) {
		return ConfirmationRequest{}, ErrInvalidConfirmation
	}
	return req, nil
}

func confirmKey(phone, code string) string {
	return phone + ":" + strings.ToUpper(code)
}
