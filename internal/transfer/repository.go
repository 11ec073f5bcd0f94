package transfer

import (
	"context"
	"errors"
)

var (
	// ErrTxNotFound indicates no transaction exists for the identifier.
	ErrTxNotFound = errors.New("transaction not found")
	// ErrInvalidConfirmation covers a missing, expired or already-consumed
	// confirmation code.
	ErrInvalidConfirmation = errors.New("invalid confirmation code or expired transaction")
	// ErrInsufficientFunds indicates the cached balance pre-check failed.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Repository persists transaction records.
type Repository interface {
	Create(ctx context.Context, tx Transaction) error
	Get(ctx context.Context, id string) (Transaction, error)
	Save(ctx context.Context, tx Transaction) error
	ListPending(ctx context.Context) ([]Transaction, error)
}

// ConfirmStore stages confirmation requests keyed by (sender phone, code).
// Claim removes and returns a live request as one indivisible operation so a
// code can never be consumed twice.
type ConfirmStore interface {
	Put(ctx context.Context, req ConfirmationRequest) error
	Claim(ctx context.Context, senderPhone, code string) (ConfirmationRequest, error)
}
