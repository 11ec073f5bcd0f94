package command

import (
	"github.com/shopspring/decimal"

	"github.com/paytos/paytos/internal/asset"
)

// Kind names the command a text message resolves to.
type Kind string

const (
	KindRegister Kind = "REGISTER"
	KindBalance  Kind = "BALANCE"
	KindSend     Kind = "SEND"
	KindConfirm  Kind = "CONFIRM"
	KindHelp     Kind = "HELP"
	KindYes      Kind = "YES"
	KindPrice    Kind = "PRICE"
	KindUnknown  Kind = "UNKNOWN"
)

// Command is the structured result of parsing an inbound text message.
// Only the fields relevant to Kind are populated.
type Command struct {
	Kind      Kind
	PIN       string
	Recipient string
	Amount    decimal.Decimal
	Asset     asset.Symbol
	Code      string
	Pair      string
}

// ParseError is a command-scoped validation failure. Kind identifies the
// command the sender was attempting, so callers can still route the reply;
// KindUnknown means no parser claimed the input at all.
type ParseError struct {
	Kind    Kind
	Message string
}

func (e *ParseError) Error() string {
	return e.Message
}
