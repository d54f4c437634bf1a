// Package core provides amount parsing utilities.
//
// Amounts are whole currency units; there is no minor unit.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts user-entered amount text to a positive integer amount.
//
// Thousands separators, a leading currency sign and surrounding spaces are
// accepted. Fractional, zero and negative values are rejected.
//
// Examples:
//
//	ParseAmount("1200")   -> 1200, nil
//	ParseAmount("1,200")  -> 1200, nil
//	ParseAmount("¥1,200") -> 1200, nil
//	ParseAmount("12.5")   -> 0, ErrInvalidAmount
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "¥")
	s = strings.TrimPrefix(s, "￥")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if !d.IsInteger() || !d.IsPositive() {
		return 0, ErrInvalidAmount
	}
	if !d.BigInt().IsInt64() {
		return 0, ErrInvalidAmount
	}
	return d.IntPart(), nil
}

// FormatAmount renders an amount with thousands separators.
func FormatAmount(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	digits := decimal.NewFromInt(amount).String()
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}
