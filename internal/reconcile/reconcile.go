package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/paytos/paytos/internal/account"
	"github.com/paytos/paytos/internal/asset"
	"github.com/paytos/paytos/internal/chain"
)

// Reconciler refreshes cached account balances from authoritative chain
// state. A refresh is a point-in-time snapshot taken at defined checkpoints
// (after registration, balance queries, and both sides of a completed
// transfer); the cached value is advisory, never a reservation.
type Reconciler struct {
	gateway  chain.Gateway
	accounts account.Repository
	logger   *slog.Logger
}

// New builds a reconciler.
func New(gateway chain.Gateway, accounts account.Repository, logger *slog.Logger) *Reconciler {
	return &Reconciler{gateway: gateway, accounts: accounts, logger: logger}
}

// Refresh overwrites every supported-asset balance for the account from the
// chain gateway and persists the result.
func (r *Reconciler) Refresh(ctx context.Context, phone string) (account.Account, error) {
	acct, err := r.accounts.FindByPhone(ctx, phone)
	if err != nil {
		return account.Account{}, err
	}

	balances := acct.CloneBalances()
	for _, sym := range asset.Supported() {
		amount, err := r.gateway.AssetBalance(ctx, acct.Address, sym)
		if err != nil {
			return account.Account{}, fmt.Errorf("refresh %s balance for %s: %w", sym, phone, err)
		}
		balances[sym] = amount
	}
	acct.Balances = balances

	if err := r.accounts.Save(ctx, acct); err != nil {
		return account.Account{}, err
	}
	r.logger.Debug("balances reconciled", "phone", phone, "address", acct.Address)
	return acct, nil
}
