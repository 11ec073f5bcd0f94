package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/paytos/paytos/internal/asset"
	"github.com/paytos/paytos/internal/price"
)

// Emitter formats outbound text for each engine outcome and hands delivery
// to the Sender.
type Emitter struct {
	sender Sender
	logger *slog.Logger
}

// NewEmitter builds a notification emitter.
func NewEmitter(sender Sender, logger *slog.Logger) *Emitter {
	return &Emitter{sender: sender, logger: logger}
}

// Welcome sends the registration confirmation with a command summary.
func (e *Emitter) Welcome(ctx context.Context, to string) error {
	msg := strings.Join([]string{
		"Welcome to Paytos! Your wallet has been created.",
		"- To check your balance, text: BALANCE <PIN>",
		"- To send money, text: SEND <RECIPIENT> <AMOUNT> <TOKEN> <PIN>",
		"- For help, text: HELP",
	}, "\n")
	return e.send(ctx, to, msg)
}

// BalanceReport sends the per-asset balance listing.
func (e *Emitter) BalanceReport(ctx context.Context, to string, balances map[asset.Symbol]decimal.Decimal) error {
	lines := []string{"Paytos Balance:"}
	for _, sym := range asset.Supported() {
		amount := balances[sym]
		lines = append(lines, fmt.Sprintf("%s: %s", sym, amount.StringFixed(sym.DisplayPrecision())))
	}
	return e.send(ctx, to, strings.Join(lines, "\n"))
}

// ConfirmPrompt asks the sender to commit a staged transfer with its
// one-time code.
func (e *Emitter) ConfirmPrompt(ctx context.Context, to, recipient string, amount decimal.Decimal, sym asset.Symbol, code string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt).Round(time.Minute)
	msg := fmt.Sprintf("Confirm sending %s %s to %s?\nReply CONFIRM %s <PIN> within %s to complete, or ignore to cancel.",
		amount.StringFixed(sym.DisplayPrecision()), sym, recipient, code, ttl)
	return e.send(ctx, to, msg)
}

// Completion notifies the sender that the transfer settled.
func (e *Emitter) Completion(ctx context.Context, to, recipient string, amount decimal.Decimal, sym asset.Symbol, newBalance decimal.Decimal) error {
	msg := fmt.Sprintf("Sent %s %s to %s.\nNew %s balance: %s",
		amount.StringFixed(sym.DisplayPrecision()), sym, recipient, sym, newBalance.StringFixed(sym.DisplayPrecision()))
	return e.send(ctx, to, msg)
}

// Receipt notifies the recipient of incoming funds.
func (e *Emitter) Receipt(ctx context.Context, to, sender string, amount decimal.Decimal, sym asset.Symbol, newBalance decimal.Decimal) error {
	msg := fmt.Sprintf("You received %s %s from %s.\nNew %s balance: %s",
		amount.StringFixed(sym.DisplayPrecision()), sym, sender, sym, newBalance.StringFixed(sym.DisplayPrecision()))
	return e.send(ctx, to, msg)
}

// PriceQuote sends the latest price for a pair.
func (e *Emitter) PriceQuote(ctx context.Context, to string, quote price.Quote) error {
	msg := fmt.Sprintf("%s: %s (as of %s UTC)", quote.Pair, quote.Price.StringFixed(2), quote.PublishTime.Format("15:04:05"))
	return e.send(ctx, to, msg)
}

// ErrorNotice sends a failure notice, prefixed so it cannot be mistaken for
// normal content. Internal diagnostics never ride along.
func (e *Emitter) ErrorNotice(ctx context.Context, to, message string) error {
	return e.send(ctx, to, "Error: "+message)
}

// UnverifiedNotice tells an auto-provisioned recipient how to activate.
func (e *Emitter) UnverifiedNotice(ctx context.Context, to string) error {
	return e.send(ctx, to, "A Paytos wallet was created for this number. Text REGISTER <PIN> to choose a PIN and activate it.")
}

// ConfirmHint answers a bare YES with the expected confirmation syntax.
func (e *Emitter) ConfirmHint(ctx context.Context, to string) error {
	return e.send(ctx, to, "To confirm a transfer, text: CONFIRM <CODE> <PIN> using the code we sent you.")
}

// Help sends the command listing.
func (e *Emitter) Help(ctx context.Context, to string) error {
	msg := strings.Join([]string{
		"Paytos Commands:",
		"- REGISTER <PIN> - Create a new wallet",
		"- BALANCE <PIN> - Check your balance",
		"- SEND <RECIPIENT> <AMOUNT> <TOKEN> <PIN> - Send tokens",
		"  Example: SEND +1234567890 10 PYUSD 1234",
		"- CONFIRM <CODE> <PIN> - Confirm a pending transfer",
		"- PRICE [SYMBOL] - Get price (e.g., PRICE ETHUSD)",
		"- Supported tokens: " + asset.List(),
	}, "\n")
	return e.send(ctx, to, msg)
}

func (e *Emitter) send(ctx context.Context, to, body string) error {
	if err := e.sender.Send(ctx, to, body); err != nil {
		e.logger.Error("send sms", "to", to, "error", err)
		return err
	}
	return nil
}
