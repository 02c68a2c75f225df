// Package core provides the record normalization and aggregation logic of the
// dashboard.
//
// This file contains helpers for parsing and formatting monetary amounts.
package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount parses a decimal amount typed as text in Notion.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted, as are a
// leading currency sign and grouping separators in the form 1.234,56.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.Trim(s, "€$"))
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		// 1.234,56
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatEuros renders an amount the way the dashboard shows it: "1.234,56 €".
func FormatEuros(d decimal.Decimal) string {
	fixed := d.Abs().StringFixed(2)
	neg := d.IsNegative() && fixed != "0.00"

	intPart, frac, _ := strings.Cut(fixed, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	out := b.String() + "," + frac + " €"
	if neg {
		return "-" + out
	}
	return out
}

// FormatPercent renders a percentage with one decimal, e.g. "83.3%".
func FormatPercent(d decimal.Decimal) string {
	return d.StringFixed(1) + "%"
}
