package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DayLayout is the calendar-day key used for storage, JSON and day buckets.
const DayLayout = "2006-01-02"

const (
	Income  Type = "income"
	Expense Type = "expense"
)

type (
	// Type is the direction of a transaction. Values other than Income and
	// Expense are kept verbatim and ignored by the derivation functions.
	Type string

	// Amount is a non-negative magnitude in a single currency unit.
	// NaN marks a malformed amount.
	Amount float64

	// Date is a calendar date without time-of-day semantics.
	Date struct {
		time.Time
	}

	Transaction struct {
		ID        string    `json:"id"`
		Text      string    `json:"text"`
		Amount    Amount    `json:"amount"`
		Type      Type      `json:"type"`
		Date      Date      `json:"date"`
		CreatedAt time.Time `json:"createdAt,omitzero"`
		UpdatedAt time.Time `json:"updatedAt,omitzero"`
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
)

// Known reports whether t is one of the two aggregated types.
func (t Type) Known() bool {
	return t == Income || t == Expense
}

func (t Type) String() string {
	return string(t)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts "2006-01-02" or an RFC 3339 timestamp and keeps only the
// calendar day. An empty string yields the zero Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	if t, err := time.Parse(DayLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return NewDate(t.Year(), int(t.Month()), t.Day()), nil
}

// Key returns the calendar-day key, or "" for a missing date.
func (d Date) Key() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DayLayout)
}

func (d Date) String() string {
	return d.Key()
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Key() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, b)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Valid reports whether the amount is a finite number.
func (a Amount) Valid() bool {
	f := float64(a)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// MarshalJSON writes null for NaN and infinities, which encoding/json rejects.
func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid() {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, float64(a), 'f', -1, 64), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string. Anything else
// decodes to NaN so callers can decide whether to reject it.
func (a *Amount) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*a = Amount(math.NaN())
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = ParseAmount(s)
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		*a = Amount(math.NaN())
		return nil
	}
	*a = Amount(f)
	return nil
}

// Replace returns t with every user-editable field taken from next.
// The identifier and creation time are preserved.
func (t Transaction) Replace(next Transaction) Transaction {
	next.ID = t.ID
	next.CreatedAt = t.CreatedAt
	return next
}
