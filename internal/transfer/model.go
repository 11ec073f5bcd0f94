package transfer

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/paytos/paytos/internal/asset"
)

// Status is a transaction lifecycle state. Completed and Failed are terminal
// and never regress.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Transaction is an auditable record of one staged-and-confirmed transfer.
type Transaction struct {
	ID             string
	SenderPhone    string
	RecipientPhone string
	SenderAddress  string
	RecipientAddr  string
	Amount         decimal.Decimal
	Asset          asset.Symbol
	Status         Status
	Signature      string
	Error          string
	CreatedAt      time.Time
	CompletedAt    *time.Time
}

// ConfirmationRequest stages a send until the sender texts back the one-time
// code. It is consumed exactly once and never becomes a Transaction directly.
type ConfirmationRequest struct {
	SenderPhone    string
	RecipientPhone string
	Amount         decimal.Decimal
	Asset          asset.Symbol
	Code           string
	ExpiresAt      time.Time
}
