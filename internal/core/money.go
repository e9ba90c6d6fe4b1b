// Package core provides money parsing and handling utilities.
//
// This file contains the lenient parsers used at the store and form
// boundaries and the locale-aware formatter used by the presentation shells.
package core

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ParseAmount converts a free-form numeric string to an Amount.
//
// It never fails: a value that is not a number yields NaN, the same way a
// numeric cast of a malformed cell would. Surrounding spaces are ignored and
// an empty string is zero.
//
// Examples:
//
//	ParseAmount("150000") -> 150000
//	ParseAmount(" 12.5 ") -> 12.5
//	ParseAmount("abc")    -> NaN
func ParseAmount(s string) Amount {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Amount(math.NaN())
	}
	return Amount(f)
}

// ParseGroupedAmount reads an amount typed with grouping separators, such as
// "1.500.000" or "1,500,000", by keeping only its digits.
// Returns ErrInvalidAmount when no digit is present.
func ParseGroupedAmount(s string) (Amount, error) {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, ErrInvalidAmount
	}
	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return Amount(f), nil
}

// Formatter renders amounts for display in a given locale.
type Formatter struct {
	printer *message.Printer
	symbol  string
}

// NewFormatter builds a formatter for a BCP 47 locale such as "vi-VN".
// An unknown locale falls back to Vietnamese.
func NewFormatter(locale, symbol string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Vietnamese
	}
	return &Formatter{printer: message.NewPrinter(tag), symbol: symbol}
}

// Number formats the amount with grouping and no fraction digits.
func (f *Formatter) Number(a Amount) string {
	v := float64(a)
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "∞"
	case math.IsInf(v, -1):
		return "-∞"
	}
	return f.printer.Sprintf("%d", int64(math.Round(v)))
}

// Money formats the amount followed by the currency symbol, e.g. "1.500.000 ₫".
func (f *Formatter) Money(a Amount) string {
	if f.symbol == "" {
		return f.Number(a)
	}
	return f.Number(a) + " " + f.symbol
}
