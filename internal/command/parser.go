package command

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/paytos/paytos/internal/asset"
)

var (
	pinPattern   = regexp.MustCompile(`^\d{4,6}$`)
	phonePattern = regexp.MustCompile(`^\+\d{7,15}$`)
	codePattern  = regexp.MustCompile(`^[a-zA-Z0-9]{4,8}$`)
)

// DefaultPricePair is used when PRICE is sent without a symbol.
const DefaultPricePair = "ETHUSD"

// Parse maps a raw inbound text to a structured command. Exactly one parser
// claims a given input; parsers run in a fixed priority order and the first
// non-nil result wins. A nil error with Kind set means a well-formed command;
// a *ParseError carries the intended Kind when a command was recognized but a
// field failed validation.
func Parse(text string) (Command, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Command{}, &ParseError{Kind: KindUnknown, Message: "Empty message."}
	}

	fields := strings.Fields(trimmed)

	parsers := []func([]string) (*Command, *ParseError){
		parseRegister,
		parseBalance,
		parseSend,
		parseConfirm,
		parseHelp,
		parseYes,
		parsePrice,
	}
	for _, p := range parsers {
		cmd, perr := p(fields)
		if perr != nil {
			return Command{}, perr
		}
		if cmd != nil {
			return *cmd, nil
		}
	}

	return Command{}, &ParseError{Kind: KindUnknown, Message: "Invalid command format. Text HELP for available commands."}
}

func parseRegister(fields []string) (*Command, *ParseError) {
	if len(fields) != 2 || !keyword(fields[0], KindRegister) {
		return nil, nil
	}
	if !pinPattern.MatchString(fields[1]) {
		return nil, &ParseError{Kind: KindRegister, Message: "Invalid PIN. It should be 4-6 digits."}
	}
	return &Command{Kind: KindRegister, PIN: fields[1]}, nil
}

func parseBalance(fields []string) (*Command, *ParseError) {
	if len(fields) != 2 || !keyword(fields[0], KindBalance) {
		return nil, nil
	}
	if !pinPattern.MatchString(fields[1]) {
		return nil, &ParseError{Kind: KindBalance, Message: "Invalid PIN. It should be 4-6 digits."}
	}
	return &Command{Kind: KindBalance, PIN: fields[1]}, nil
}

func parseSend(fields []string) (*Command, *ParseError) {
	if len(fields) != 5 || !keyword(fields[0], KindSend) {
		return nil, nil
	}
	recipient, amountRaw, assetRaw, pin := fields[1], fields[2], fields[3], fields[4]

	if !phonePattern.MatchString(recipient) {
		return nil, &ParseError{Kind: KindSend, Message: "Invalid recipient phone number. It should include the country code (e.g., +1234567890)."}
	}
	amount, err := decimal.NewFromString(amountRaw)
	if err != nil || !amount.IsPositive() {
		return nil, &ParseError{Kind: KindSend, Message: "Invalid amount. It should be a number greater than 0."}
	}
	sym, ok := asset.Parse(assetRaw)
	if !ok {
		return nil, &ParseError{Kind: KindSend, Message: fmt.Sprintf("Invalid token. Supported tokens are: %s.", asset.List())}
	}
	if !pinPattern.MatchString(pin) {
		return nil, &ParseError{Kind: KindSend, Message: "Invalid PIN. It should be 4-6 digits."}
	}

	return &Command{Kind: KindSend, Recipient: recipient, Amount: amount, Asset: sym, PIN: pin}, nil
}

func parseConfirm(fields []string) (*Command, *ParseError) {
	if len(fields) != 3 || !keyword(fields[0], KindConfirm) {
		return nil, nil
	}
	code, pin := fields[1], fields[2]
	if !codePattern.MatchString(code) {
		return nil, &ParseError{Kind: KindConfirm, Message: "Invalid confirmation code."}
	}
	if !pinPattern.MatchString(pin) {
		return nil, &ParseError{Kind: KindConfirm, Message: "Invalid PIN. It should be 4-6 digits."}
	}
	return &Command{Kind: KindConfirm, Code: code, PIN: pin}, nil
}

func parseHelp(fields []string) (*Command, *ParseError) {
	if len(fields) != 1 || !keyword(fields[0], KindHelp) {
		return nil, nil
	}
	return &Command{Kind: KindHelp}, nil
}

func parseYes(fields []string) (*Command, *ParseError) {
	if len(fields) != 1 || !keyword(fields[0], KindYes) {
		return nil, nil
	}
	return &Command{Kind: KindYes}, nil
}

func parsePrice(fields []string) (*Command, *ParseError) {
	if len(fields) == 0 || !keyword(fields[0], KindPrice) {
		return nil, nil
	}
	pair := DefaultPricePair
	if len(fields) > 1 {
		pair = strings.ToUpper(fields[1])
	}
	return &Command{Kind: KindPrice, Pair: pair}, nil
}

func keyword(token string, kind Kind) bool {
	return strings.EqualFold(token, string(kind))
}
