package transfer

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paytos/paytos/internal/account"
	"github.com/paytos/paytos/internal/asset"
	"github.com/paytos/paytos/internal/chain"
	"github.com/paytos/paytos/internal/custody"
	"github.com/paytos/paytos/internal/reconcile"
)

const (
	codeLength  = 6
	codeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// Engine drives the staged-confirmation transfer state machine:
// Stage -> Confirm -> Create(pending) -> Execute(completed|failed).
type Engine struct {
	accounts     *account.Service
	transactions Repository
	confirms     ConfirmStore
	gateway      chain.Gateway
	vault        *custody.Vault
	reconciler   *reconcile.Reconciler
	logger       *slog.Logger
	confirmTTL   time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine builds a transaction engine.
func NewEngine(accounts *account.Service, transactions Repository, confirms ConfirmStore,
	gateway chain.Gateway, vault *custody.Vault, reconciler *reconcile.Reconciler,
	logger *slog.Logger, confirmTTL time.Duration) *Engine {
	if confirmTTL <= 0 {
		confirmTTL = 5 * time.Minute
	}
	return &Engine{
		accounts:     accounts,
		transactions: transactions,
		confirms:     confirms,
		gateway:      gateway,
		vault:        vault,
		reconciler:   reconciler,
		logger:       logger,
		confirmTTL:   confirmTTL,
		locks:        make(map[string]*sync.Mutex),
	}
}

// Stage records a confirmation request for a requested send. No balance is
// checked and nothing is committed; the request simply waits for the sender
// to text back the one-time code before it expires.
func (e *Engine) Stage(ctx context.Context, senderPhone, recipientPhone string, amount decimal.Decimal, sym asset.Symbol) (ConfirmationRequest, error) {
	if !amount.IsPositive() {
		return ConfirmationRequest{}, fmt.Errorf("amount must be positive")
	}
	sender, err := e.accounts.Get(ctx, senderPhone)
	if err != nil {
		return ConfirmationRequest{}, err
	}
	if !sender.Verified {
		return ConfirmationRequest{}, account.ErrUnverified
	}

	code, err := generateCode()
	if err != nil {
		return ConfirmationRequest{}, err
	}
	req := ConfirmationRequest{
		SenderPhone:    senderPhone,
		RecipientPhone: recipientPhone,
		Amount:         amount,
		Asset:          sym,
		Code:           code,
		ExpiresAt:      time.Now().UTC().Add(e.confirmTTL),
	}
	if err := e.confirms.Put(ctx, req); err != nil {
		return ConfirmationRequest{}, err
	}
	e.logger.Info("transfer staged", "sender", senderPhone, "recipient", recipientPhone, "asset", sym)
	return req, nil
}

// Confirm claims the staged request for (sender, code) and runs it through
// Create and Execute. The claim is atomic, so a code confirms at most once
// even under concurrent attempts.
func (e *Engine) Confirm(ctx context.Context, senderPhone, code string) (Transaction, error) {
	req, err := e.confirms.Claim(ctx, senderPhone, code)
	if err != nil {
		return Transaction{}, err
	}

	tx, err := e.Create(ctx, req.SenderPhone, req.RecipientPhone, req.Amount, req.Asset)
	if err != nil {
		return Transaction{}, err
	}
	return e.Execute(ctx, tx.ID)
}

// Create validates the sender, auto-provisions the recipient when needed and
// persists a pending Transaction. The cached-balance check is an optimistic
// pre-check, not a hold; the chain enforces the real balance on Execute.
// Money movement is serialized per sender phone so two concurrent sends
// cannot both pass the pre-check against the same stale balance.
func (e *Engine) Create(ctx context.Context, senderPhone, recipientPhone string, amount decimal.Decimal, sym asset.Symbol) (Transaction, error) {
	lock := e.phoneLock(senderPhone)
	lock.Lock()
	defer lock.Unlock()

	sender, err := e.accounts.Get(ctx, senderPhone)
	if err != nil {
		return Transaction{}, err
	}
	if !sender.Verified {
		return Transaction{}, account.ErrUnverified
	}
	if sender.Balance(sym).LessThan(amount) {
		return Transaction{}, fmt.Errorf("%w: %s balance is %s, need %s", ErrInsufficientFunds, sym, sender.Balance(sym), amount)
	}

	recipient, err := e.accounts.Get(ctx, recipientPhone)
	if errors.Is(err, account.ErrNotFound) {
		recipient, err = e.accounts.Provision(ctx, recipientPhone)
	}
	if err != nil {
		return Transaction{}, err
	}

	tx := Transaction{
		ID:             uuid.New().String(),
		SenderPhone:    senderPhone,
		RecipientPhone: recipientPhone,
		SenderAddress:  sender.Address,
		RecipientAddr:  recipient.Address,
		Amount:         amount,
		Asset:          sym,
		Status:         StatusPending,
		CreatedAt:      time.Now().UTC(),
	}
	if err := e.transactions.Create(ctx, tx); err != nil {
		return Transaction{}, err
	}
	e.logger.Info("transaction created", "id", tx.ID, "sender", senderPhone, "recipient", recipientPhone, "asset", sym)
	return tx, nil
}

// Execute moves the funds on-chain and terminalizes the transaction. Only a
// pending transaction executes; re-invocation on a terminal one is a no-op
// error, which makes Execute safe to retry after an interrupted delivery.
// The chain wait happens outside any per-phone lock so a stuck transfer
// cannot stall unrelated commands.
func (e *Engine) Execute(ctx context.Context, id string) (Transaction, error) {
	tx, err := e.transactions.Get(ctx, id)
	if err != nil {
		return Transaction{}, err
	}
	if tx.Status != StatusPending {
		return tx, fmt.Errorf("transaction is already %s", tx.Status)
	}

	sender, err := e.accounts.Get(ctx, tx.SenderPhone)
	if err != nil {
		return Transaction{}, err
	}
	signer, err := e.vault.Open(sender.EncryptedKey)
	if err != nil {
		return e.fail(ctx, tx, err)
	}

	var hash string
	if tx.Asset.Native() {
		hash, err = e.gateway.TransferNative(ctx, signer, tx.RecipientAddr, tx.Amount)
	} else {
		hash, err = e.gateway.TransferAsset(ctx, signer, tx.RecipientAddr, tx.Amount, tx.Asset)
	}
	if err != nil {
		return e.fail(ctx, tx, err)
	}

	now := time.Now().UTC()
	tx.Status = StatusCompleted
	tx.Signature = hash
	tx.CompletedAt = &now
	if err := e.transactions.Save(ctx, tx); err != nil {
		return Transaction{}, err
	}
	e.logger.Info("transaction completed", "id", tx.ID, "hash", hash)

	// Balance refresh is best-effort: the transfer already settled.
	if _, err := e.reconciler.Refresh(ctx, tx.SenderPhone); err != nil {
		e.logger.Warn("refresh sender balances", "phone", tx.SenderPhone, "error", err)
	}
	if _, err := e.reconciler.Refresh(ctx, tx.RecipientPhone); err != nil {
		e.logger.Warn("refresh recipient balances", "phone", tx.RecipientPhone, "error", err)
	}
	return tx, nil
}

// SweepStalePending terminalizes pending transactions older than the
// confirmation TTL. A transaction can be stranded pending when the process
// dies between the chain transfer and the status update; on restart those
// records are closed out as failed with a distinguishable reason instead of
// hanging forever.
func (e *Engine) SweepStalePending(ctx context.Context) error {
	pending, err := e.transactions.ListPending(ctx)
	if err != nil {
		return err
	}
	cutoff := time.Now().UTC().Add(-e.confirmTTL)
	for _, tx := range pending {
		if tx.CreatedAt.After(cutoff) {
			continue
		}
		tx.Status = StatusFailed
		tx.Error = "interrupted: no settlement recorded before restart"
		if err := e.transactions.Save(ctx, tx); err != nil {
			e.logger.Error("sweep stale transaction", "id", tx.ID, "error", err)
			continue
		}
		e.logger.Warn("stale pending transaction closed", "id", tx.ID, "created_at", tx.CreatedAt)
	}
	return nil
}

func (e *Engine) fail(ctx context.Context, tx Transaction, cause error) (Transaction, error) {
	tx.Status = StatusFailed
	tx.Error = cause.Error()
	if saveErr := e.transactions.Save(ctx, tx); saveErr != nil {
		e.logger.Error("record transaction failure", "id", tx.ID, "error", saveErr)
	}
	e.logger.Warn("transaction failed", "id", tx.ID, "error", cause)
	return tx, cause
}

func (e *Engine) phoneLock(phone string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[phone]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[phone] = lock
	}
	return lock
}

func generateCode() (string, error) {
	buf := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeCharset)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate confirmation code: %w", err)
		}
		buf[i] = codeCharset[n.Int64()]
	}
	return string(buf), nil
}
