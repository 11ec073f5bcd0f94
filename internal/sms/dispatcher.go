package sms

import (
	"context"
	"errors"
	"log/slog"

	"github.com/paytos/paytos/internal/account"
	"github.com/paytos/paytos/internal/chain"
	"github.com/paytos/paytos/internal/command"
	"github.com/paytos/paytos/internal/custody"
	"github.com/paytos/paytos/internal/notify"
	"github.com/paytos/paytos/internal/price"
	"github.com/paytos/paytos/internal/reconcile"
	"github.com/paytos/paytos/internal/transfer"
)

// Dispatcher routes parsed commands through the engine and services and
// emits the outbound reply for every outcome. Every failure path either
// terminalizes a persisted record or produces an error notice; nothing is
// silently dropped.
type Dispatcher struct {
	accounts   *account.Service
	engine     *transfer.Engine
	reconciler *reconcile.Reconciler
	prices     *price.Client
	emitter    *notify.Emitter
	logger     *slog.Logger
}

// NewDispatcher builds an SMS command dispatcher.
func NewDispatcher(accounts *account.Service, engine *transfer.Engine, reconciler *reconcile.Reconciler,
	prices *price.Client, emitter *notify.Emitter, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		accounts:   accounts,
		engine:     engine,
		reconciler: reconciler,
		prices:     prices,
		emitter:    emitter,
		logger:     logger,
	}
}

// Handle processes one inbound message from a phone number.
func (d *Dispatcher) Handle(ctx context.Context, from, body string) {
	cmd, err := command.Parse(body)
	if err != nil {
		var perr *command.ParseError
		if errors.As(err, &perr) {
			_ = d.emitter.ErrorNotice(ctx, from, perr.Message)
			return
		}
		d.logger.Error("parse command", "from", from, "error", err)
		_ = d.emitter.ErrorNotice(ctx, from, "Invalid command format. Text HELP for available commands.")
		return
	}

	switch cmd.Kind {
	case command.KindRegister:
		d.handleRegister(ctx, from, cmd)
	case command.KindBalance:
		d.handleBalance(ctx, from, cmd)
	case command.KindSend:
		d.handleSend(ctx, from, cmd)
	case command.KindConfirm:
		d.handleConfirm(ctx, from, cmd)
	case command.KindHelp:
		_ = d.emitter.Help(ctx, from)
	case command.KindYes:
		_ = d.emitter.ConfirmHint(ctx, from)
	case command.KindPrice:
		d.handlePrice(ctx, from, cmd)
	default:
		_ = d.emitter.ErrorNotice(ctx, from, "Invalid command format. Text HELP for available commands.")
	}
}

func (d *Dispatcher) handleRegister(ctx context.Context, from string, cmd command.Command) {
	if _, err := d.accounts.Register(ctx, from, cmd.PIN); err != nil {
		d.reply(ctx, from, "register", err)
		return
	}
	if _, err := d.reconciler.Refresh(ctx, from); err != nil {
		d.logger.Warn("refresh after registration", "phone", from, "error", err)
	}
	_ = d.emitter.Welcome(ctx, from)
}

func (d *Dispatcher) handleBalance(ctx context.Context, from string, cmd command.Command) {
	if _, err := d.accounts.VerifyPIN(ctx, from, cmd.PIN); err != nil {
		d.reply(ctx, from, "balance", err)
		return
	}
	acct, err := d.reconciler.Refresh(ctx, from)
	if err != nil {
		// Chain trouble should not hide the cached snapshot.
		d.logger.Warn("refresh before balance report", "phone", from, "error", err)
		if acct, err = d.accounts.Get(ctx, from); err != nil {
			d.reply(ctx, from, "balance", err)
			return
		}
	}
	_ = d.emitter.BalanceReport(ctx, from, acct.Balances)
}

func (d *Dispatcher) handleSend(ctx context.Context, from string, cmd command.Command) {
	if _, err := d.accounts.VerifyPIN(ctx, from, cmd.PIN); err != nil {
		d.reply(ctx, from, "send", err)
		return
	}
	req, err := d.engine.Stage(ctx, from, cmd.Recipient, cmd.Amount, cmd.Asset)
	if err != nil {
		d.reply(ctx, from, "send", err)
		return
	}
	_ = d.emitter.ConfirmPrompt(ctx, from, req.RecipientPhone, req.Amount, req.Asset, req.Code, req.ExpiresAt)
}

func (d *Dispatcher) handleConfirm(ctx context.Context, from string, cmd command.Command) {
	if _, err := d.accounts.VerifyPIN(ctx, from, cmd.PIN); err != nil {
		d.reply(ctx, from, "confirm", err)
		return
	}
	tx, err := d.engine.Confirm(ctx, from, cmd.Code)
	if err != nil {
		d.reply(ctx, from, "confirm", err)
		return
	}

	sender, err := d.accounts.Get(ctx, tx.SenderPhone)
	if err != nil {
		d.logger.Error("load sender after transfer", "phone", tx.SenderPhone, "error", err)
	} else {
		_ = d.emitter.Completion(ctx, tx.SenderPhone, tx.RecipientPhone, tx.Amount, tx.Asset, sender.Balance(tx.Asset))
	}

	recipient, err := d.accounts.Get(ctx, tx.RecipientPhone)
	if err != nil {
		d.logger.Error("load recipient after transfer", "phone", tx.RecipientPhone, "error", err)
		return
	}
	_ = d.emitter.Receipt(ctx, tx.RecipientPhone, tx.SenderPhone, tx.Amount, tx.Asset, recipient.Balance(tx.Asset))
	if !recipient.Verified {
		_ = d.emitter.UnverifiedNotice(ctx, tx.RecipientPhone)
	}
}

func (d *Dispatcher) handlePrice(ctx context.Context, from string, cmd command.Command) {
	quote, err := d.prices.Quote(ctx, cmd.Pair)
	if err != nil {
		d.logger.Warn("price lookup", "pair", cmd.Pair, "error", err)
		_ = d.emitter.ErrorNotice(ctx, from, "Price for "+cmd.Pair+" is not available right now.")
		return
	}
	_ = d.emitter.PriceQuote(ctx, from, quote)
}

// reply logs the full failure and sends the user a single-line notice.
func (d *Dispatcher) reply(ctx context.Context, to, op string, err error) {
	d.logger.Warn("command failed", "op", op, "phone", to, "error", err)
	_ = d.emitter.ErrorNotice(ctx, to, userMessage(err))
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, account.ErrLocked):
		return "Account is locked due to too many failed PIN attempts."
	case errors.Is(err, account.ErrInvalidPIN):
		return "Incorrect PIN."
	case errors.Is(err, account.ErrNotFound):
		return "No wallet found for this number. Text REGISTER <PIN> to create one."
	case errors.Is(err, account.ErrUnverified):
		return "This wallet is not activated yet. Text REGISTER <PIN> to choose a PIN first."
	case errors.Is(err, transfer.ErrInsufficientFunds):
		return "Insufficient balance for this transfer."
	case errors.Is(err, transfer.ErrInvalidConfirmation):
		return "Invalid confirmation code or expired transaction."
	case errors.Is(err, custody.ErrDecrypt):
		return "Transfer failed. Please contact support."
	case errors.Is(err, chain.ErrReverted), errors.Is(err, chain.ErrReceiptTimeout):
		return "Transfer failed. Please try again later."
	default:
		return "Something went wrong. Please try again later."
	}
}
