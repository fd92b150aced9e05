// Package core provides the expense ledger domain: categories and their
// budget limits, ledger rows with their column schema, and amount parsing.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts user input into a non-negative decimal amount.
//
// Both dot (12.5) and comma (12,5) are accepted as the decimal separator.
// Surrounding whitespace is ignored. Negative values return ErrNegativeAmount,
// anything that is not a plain decimal number returns ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12,5")  -> 12.5, nil
//	ParseAmount("12.5")  -> 12.5, nil
//	ParseAmount("-3")    -> 0, ErrNegativeAmount
//	ParseAmount("abc")   -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.ContainsAny(s, "eE_ ") || strings.HasPrefix(s, "+") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	return d, nil
}

// parseStoredAmount decodes an amount cell. Stores hand over either numbers
// or their textual form, so both are accepted; sign is not checked here.
func parseStoredAmount(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case float64:
		return decimal.NewFromFloat(x), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(x), ",", ".")
		if s == "" {
			return decimal.Zero, ErrInvalidAmount
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, ErrInvalidAmount
		}
		return d, nil
	default:
		return decimal.Zero, ErrInvalidAmount
	}
}
