package chain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/paytos/paytos/internal/asset"
	"github.com/paytos/paytos/internal/custody"
)

var (
	// ErrReverted indicates the transfer was mined but reverted on-chain.
	ErrReverted = errors.New("transaction reverted on-chain")
	// ErrReceiptTimeout indicates no receipt arrived within the configured window.
	ErrReceiptTimeout = errors.New("timed out waiting for receipt")
)

// Gateway exposes balance queries and asset transfers against the chain.
// Transfers block until the transaction settles and return the on-chain hash.
// The gateway does not retry; callers decide what a failure means.
type Gateway interface {
	NativeBalance(ctx context.Context, address string) (decimal.Decimal, error)
	AssetBalance(ctx context.Context, address string, sym asset.Symbol) (decimal.Decimal, error)
	TransferNative(ctx context.Context, signer *custody.Signer, to string, amount decimal.Decimal) (string, error)
	TransferAsset(ctx context.Context, signer *custody.Signer, to string, amount decimal.Decimal, sym asset.Symbol) (string, error)
}
