package account

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates no account exists for the phone number.
	ErrNotFound = errors.New("account not found")
	// ErrExists indicates an account already exists for the phone number.
	ErrExists = errors.New("account exists")
)

// Repository persists accounts keyed by phone number.
type Repository interface {
	Create(ctx context.Context, acct Account) error
	FindByPhone(ctx context.Context, phone string) (Account, error)
	Save(ctx context.Context, acct Account) error
}
