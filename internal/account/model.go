package account

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/paytos/paytos/internal/asset"
)

// Account is a phone-number-identified custodial wallet. It is mutated only
// through PIN verification and balance reconciliation.
type Account struct {
	Phone          string
	EncryptedKey   []byte
	Address        string
	PINHash        []byte
	FailedAttempts int
	Locked         bool
	Balances       map[asset.Symbol]decimal.Decimal
	Verified       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Balance returns the cached balance for the symbol, zero when absent.
func (a Account) Balance(sym asset.Symbol) decimal.Decimal {
	if a.Balances == nil {
		return decimal.Zero
	}
	return a.Balances[sym]
}

// CloneBalances returns an independent copy of the cached balance map.
func (a Account) CloneBalances() map[asset.Symbol]decimal.Decimal {
	out := make(map[asset.Symbol]decimal.Decimal, len(a.Balances))
	for sym, amount := range a.Balances {
		out[sym] = amount
	}
	return out
}
