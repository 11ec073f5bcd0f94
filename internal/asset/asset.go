package asset

import "strings"

// Symbol identifies a supported asset.
type Symbol string

const (
	// ETH is the native chain currency.
	ETH Symbol = "ETH"
	// PYUSD is the supported ERC-20 stablecoin.
	PYUSD Symbol = "PYUSD"
)

// supported lists assets in the order balance reports present them.
var supported = []Symbol{ETH, PYUSD}

// chainDecimals maps each asset to its on-chain base-unit precision.
var chainDecimals = map[Symbol]int32{
	ETH:   18,
	PYUSD: 6,
}

// displayPrecision maps each asset to the decimal places shown in SMS text.
var displayPrecision = map[Symbol]int32{
	ETH:   4,
	PYUSD: 2,
}

// Supported returns the fixed set of supported assets.
func Supported() []Symbol {
	out := make([]Symbol, len(supported))
	copy(out, supported)
	return out
}

// Parse matches a raw token case-insensitively against the supported set.
func Parse(raw string) (Symbol, bool) {
	sym := Symbol(strings.ToUpper(strings.TrimSpace(raw)))
	for _, s := range supported {
		if s == sym {
			return s, true
		}
	}
	return "", false
}

// Native reports whether the symbol is the chain's native currency.
func (s Symbol) Native() bool {
	return s == ETH
}

// Decimals returns the asset's on-chain base-unit precision.
func (s Symbol) Decimals() int32 {
	if d, ok := chainDecimals[s]; ok {
		return d
	}
	return 18
}

// DisplayPrecision returns the decimal places used when rendering amounts.
func (s Symbol) DisplayPrecision() int32 {
	if p, ok := displayPrecision[s]; ok {
		return p
	}
	return 2
}

// List renders the supported set as a comma-separated string for messages.
func List() string {
	names := make([]string, len(supported))
	for i, s := range supported {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
