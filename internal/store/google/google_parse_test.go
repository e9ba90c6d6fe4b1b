package google

import (
	"testing"
	"time"

	"finance/internal/core"
)

func TestRowToTransaction(t *testing.T) {
	tests := []struct {
		name    string
		row     []any
		wantOK  bool
		wantDay string
		wantNaN bool
		amount  core.Amount
	}{
		{
			name:    "string cells",
			row:     []any{"a1", "2024-01-05", "Lương", "income", "15000000", "2024-01-05T08:00:00Z", ""},
			wantOK:  true,
			wantDay: "2024-01-05",
			amount:  15000000,
		},
		{
			name:    "unformatted numbers",
			row:     []any{"a2", 45296.0, "Cà phê", "expense", 25000.0},
			wantOK:  true,
			wantDay: "2024-01-05",
			amount:  25000,
		},
		{
			name:    "non-numeric amount",
			row:     []any{"a3", "2024-01-05", "x", "expense", "abc"},
			wantOK:  true,
			wantDay: "2024-01-05",
			wantNaN: true,
		},
		{
			name:    "unreadable date",
			row:     []any{"a4", "05/01/2024", "x", "income", 1.0},
			wantOK:  true,
			wantDay: "",
			amount:  1,
		},
		{name: "header row", row: []any{"ID", "Date"}, wantOK: false},
		{name: "empty id", row: []any{"", "2024-01-05"}, wantOK: false},
		{name: "empty row", row: []any{}, wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := rowToTransaction(tt.row)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.Date.Key() != tt.wantDay {
				t.Errorf("date = %q, want %q", got.Date.Key(), tt.wantDay)
			}
			if tt.wantNaN {
				if got.Amount.Valid() {
					t.Errorf("amount = %v, want NaN", got.Amount)
				}
			} else if got.Amount != tt.amount {
				t.Errorf("amount = %v, want %v", got.Amount, tt.amount)
			}
		})
	}
}

func TestTransactionRowRoundTrip(t *testing.T) {
	created := time.Date(2024, 1, 5, 8, 30, 0, 0, time.UTC)
	in := core.Transaction{
		ID:        "abc",
		Text:      "Tiền điện",
		Amount:    850000,
		Type:      core.Expense,
		Date:      core.NewDate(2024, 1, 5),
		CreatedAt: created,
		UpdatedAt: created,
	}
	out, ok := rowToTransaction(transactionToRow(in))
	if !ok {
		t.Fatal("row not recognised")
	}
	if out.ID != in.ID || out.Text != in.Text || out.Amount != in.Amount || out.Type != in.Type {
		t.Fatalf("fields lost: %+v", out)
	}
	if out.Date.Key() != "2024-01-05" || !out.CreatedAt.Equal(created) {
		t.Fatalf("dates lost: %+v", out)
	}

	bad := in
	bad.Amount = core.ParseAmount("abc")
	row := transactionToRow(bad)
	if row[4] != "NaN" {
		t.Fatalf("NaN amount should be written as text, got %v", row[4])
	}
	back, _ := rowToTransaction(row)
	if back.Amount.Valid() {
		t.Fatalf("NaN amount should survive the round trip")
	}
}

func TestBuildRowIndex(t *testing.T) {
	values := [][]any{
		{"ID"},
		{"a"},
		{},
		{"b"},
		{"a"},
	}
	index := buildRowIndex(values)
	if len(index) != 2 {
		t.Fatalf("expected 2 ids, got %v", index)
	}
	if index["a"] != 2 || index["b"] != 4 {
		t.Fatalf("unexpected rows: %v", index)
	}
}
