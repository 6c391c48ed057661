// Package core provides money parsing and handling utilities.
//
// Amounts are shopspring decimals rounded to two places. Storage backends
// persist them as integer cents.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest amount accepted anywhere. Its cents fit an int64
// with room for monthly and yearly totals.
var MaxAmount = decimal.New(99999999999999, -2)

// ParseAmount converts a decimal string to a two-place amount with half-up rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Negative,
// zero, malformed and values above MaxAmount are rejected.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,345") -> 12.35
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, p := range parts {
		for _, r := range p {
			if !unicode.IsDigit(r) {
				return decimal.Zero, ErrInvalidAmount
			}
		}
	}
	if parts[0] == "" {
		s = "0" + s
	}
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.GreaterThan(MaxAmount) {
		return decimal.Zero, ErrAmountTooLarge
	}
	return d, nil
}

// Cents converts an amount to integer cents, rounding half-up. Amounts are
// bounded by MaxAmount before they reach storage.
func Cents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// FromCents converts integer cents to an amount.
func FromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}
