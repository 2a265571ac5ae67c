package asset

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Asset is an amount of a chain asset as it appears on the wire,
// e.g. "3.141 GOLOS" or "1000000.000000 GESTS".
type Asset struct {
	Amount decimal.Decimal
	Symbol string
}

// Parse parses an asset string of the form "<amount> <SYMBOL>".
func Parse(s string) (Asset, error) {
	parts := strings.Fields(s)
	if len(parts) != 2 {
		return Asset{}, fmt.Errorf("malformed asset string %q", s)
	}

	amount, err := decimal.NewFromString(parts[0])
	if err != nil {
		return Asset{}, fmt.Errorf("malformed asset amount %q: %w", parts[0], err)
	}

	return Asset{Amount: amount, Symbol: parts[1]}, nil
}

// MustParse is Parse for static asset strings; it panics on error.
func MustParse(s string) Asset {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Amount parses an asset string and returns only its numeric amount.
func Amount(s string) (decimal.Decimal, error) {
	a, err := Parse(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return a.Amount, nil
}

func (a Asset) String() string {
	return a.Amount.String() + " " + a.Symbol
}
