package chain

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/paytos/paytos/internal/asset"
	"github.com/paytos/paytos/internal/custody"
)

// Memory is a concurrency-safe in-memory gateway useful for unit tests and
// the development environment. Transfers move balances between addresses
// immediately and mint deterministic fake hashes.
type Memory struct {
	mu       sync.Mutex
	balances map[string]map[asset.Symbol]decimal.Decimal
	nextErr  error
	seq      int
}

// NewMemory creates an empty in-memory gateway.
func NewMemory() *Memory {
	return &Memory{balances: make(map[string]map[asset.Symbol]decimal.Decimal)}
}

// SetBalance seeds an address balance.
func (m *Memory) SetBalance(address string, sym asset.Symbol, amount decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[address] == nil {
		m.balances[address] = make(map[asset.Symbol]decimal.Decimal)
	}
	m.balances[address][sym] = amount
}

// FailNext makes the next transfer fail with err.
func (m *Memory) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextErr = err
}

// NativeBalance returns the seeded ETH balance.
func (m *Memory) NativeBalance(_ context.Context, address string) (decimal.Decimal, error) {
	return m.balance(address, asset.ETH), nil
}

// AssetBalance returns the seeded balance for the symbol.
func (m *Memory) AssetBalance(_ context.Context, address string, sym asset.Symbol) (decimal.Decimal, error) {
	return m.balance(address, sym), nil
}

// TransferNative moves ETH between addresses.
func (m *Memory) TransferNative(ctx context.Context, signer *custody.Signer, to string, amount decimal.Decimal) (string, error) {
	return m.transfer(ctx, signer, to, amount, asset.ETH)
}

// TransferAsset moves a token between addresses.
func (m *Memory) TransferAsset(ctx context.Context, signer *custody.Signer, to string, amount decimal.Decimal, sym asset.Symbol) (string, error) {
	return m.transfer(ctx, signer, to, amount, sym)
}

func (m *Memory) transfer(_ context.Context, signer *custody.Signer, to string, amount decimal.Decimal, sym asset.Symbol) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.nextErr != nil {
		err := m.nextErr
		m.nextErr = nil
		return "", err
	}

	from := signer.Address().Hex()
	have := decimal.Zero
	if m.balances[from] != nil {
		have = m.balances[from][sym]
	}
	if have.LessThan(amount) {
		return "", fmt.Errorf("transfer %s %s from %s: %w", amount, sym, from, ErrReverted)
	}

	m.balances[from][sym] = have.Sub(amount)
	if m.balances[to] == nil {
		m.balances[to] = make(map[asset.Symbol]decimal.Decimal)
	}
	m.balances[to][sym] = m.balances[to][sym].Add(amount)

	m.seq++
	return fmt.Sprintf("0x%064x", m.seq), nil
}

func (m *Memory) balance(address string, sym asset.Symbol) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[address] == nil {
		return decimal.Zero
	}
	return m.balances[address][sym]
}
