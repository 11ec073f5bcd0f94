package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/paytos/paytos/internal/account"
	"github.com/paytos/paytos/internal/asset"
	"github.com/paytos/paytos/internal/chain"
	"github.com/paytos/paytos/internal/custody"
	"github.com/paytos/paytos/internal/logging"
)

const vaultKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestRefreshOverwritesCachedBalances(t *testing.T) {
	ctx := context.Background()
	vault, err := custody.NewVault(vaultKeyHex)
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}
	repo := account.NewMemoryRepository()
	accounts := account.NewService(repo, vault, logging.Discard())
	gw := chain.NewMemory()

	acct, err := accounts.Register(ctx, "+12345678901", "1234")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	gw.SetBalance(acct.Address, asset.ETH, decimal.RequireFromString("1.5"))
	gw.SetBalance(acct.Address, asset.PYUSD, decimal.RequireFromString("250"))

	rec := New(gw, repo, logging.Discard())
	refreshed, err := rec.Refresh(ctx, "+12345678901")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if !refreshed.Balance(asset.ETH).Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("unexpected ETH balance %s", refreshed.Balance(asset.ETH))
	}
	if !refreshed.Balance(asset.PYUSD).Equal(decimal.RequireFromString("250")) {
		t.Fatalf("unexpected PYUSD balance %s", refreshed.Balance(asset.PYUSD))
	}

	// The snapshot is persisted, not just returned.
	stored, err := repo.FindByPhone(ctx, "+12345678901")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !stored.Balance(asset.PYUSD).Equal(decimal.RequireFromString("250")) {
		t.Fatalf("expected persisted balance, got %s", stored.Balance(asset.PYUSD))
	}
}

func TestRefreshUnknownAccount(t *testing.T) {
	rec := New(chain.NewMemory(), account.NewMemoryRepository(), logging.Discard())
	if _, err := rec.Refresh(context.Background(), "+10000000000"); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
