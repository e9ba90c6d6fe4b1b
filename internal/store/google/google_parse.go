package google

import (
	"fmt"
	"math"
	"strings"
	"time"

	"finance/internal/core"
)

// Column order of the transactions sheet.
var header = []string{"ID", "Date", "Text", "Type", "Amount", "CreatedAt", "UpdatedAt"}

// Spreadsheet serial dates count days from this epoch.
var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

func headerRow() []any {
	out := make([]any, len(header))
	for i, h := range header {
		out[i] = h
	}
	return out
}

func transactionToRow(t core.Transaction) []any {
	var amount any = float64(t.Amount)
	if !t.Amount.Valid() {
		amount = "NaN"
	}
	return []any{
		t.ID,
		t.Date.Key(),
		t.Text,
		string(t.Type),
		amount,
		formatTimestamp(t.CreatedAt),
		formatTimestamp(t.UpdatedAt),
	}
}

// rowToTransaction reads one sheet row. Rows without an id are skipped.
// A non-numeric amount is kept as NaN; an unreadable date becomes missing.
func rowToTransaction(row []any) (core.Transaction, bool) {
	id := cellString(row, 0)
	if id == "" || strings.EqualFold(id, header[0]) {
		return core.Transaction{}, false
	}
	t := core.Transaction{
		ID:     id,
		Date:   cellDate(row, 1),
		Text:   cellString(row, 2),
		Type:   core.Type(cellString(row, 3)),
		Amount: cellAmount(row, 4),
	}
	t.CreatedAt = parseTimestamp(cellString(row, 5))
	t.UpdatedAt = parseTimestamp(cellString(row, 6))
	return t, true
}

// buildRowIndex maps ids found in column A to their 1-based row numbers.
func buildRowIndex(values [][]any) map[string]int {
	index := make(map[string]int, len(values))
	for i, row := range values {
		id := cellString(row, 0)
		if id == "" || (i == 0 && strings.EqualFold(id, header[0])) {
			continue
		}
		if _, dup := index[id]; !dup {
			index[id] = i + 1
		}
	}
	return index
}

func cellString(row []any, idx int) string {
	if idx < 0 || idx >= len(row) || row[idx] == nil {
		return ""
	}
	switch v := row[idx].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1e15 {
			return fmt.Sprintf("%.0f", v)
		}
	}
	return strings.TrimSpace(fmt.Sprint(row[idx]))
}

func cellAmount(row []any, idx int) core.Amount {
	if idx >= len(row) {
		return 0
	}
	switch v := row[idx].(type) {
	case float64:
		return core.Amount(v)
	case nil:
		return 0
	}
	return core.ParseAmount(cellString(row, idx))
}

func cellDate(row []any, idx int) core.Date {
	if idx >= len(row) {
		return core.Date{}
	}
	if serial, ok := row[idx].(float64); ok {
		d := serialEpoch.AddDate(0, 0, int(math.Floor(serial)))
		return core.NewDate(d.Year(), int(d.Month()), d.Day())
	}
	d, err := core.ParseDate(cellString(row, idx))
	if err != nil {
		return core.Date{}
	}
	return d
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
