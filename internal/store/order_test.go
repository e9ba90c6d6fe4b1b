package store

import (
	"testing"
	"time"

	"finance/internal/core"
)

func TestSortNewestFirst(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	txs := []core.Transaction{
		{ID: "old", Date: core.NewDate(2024, 1, 1), CreatedAt: base},
		{ID: "nodate", CreatedAt: base.Add(time.Hour)},
		{ID: "new-late", Date: core.NewDate(2024, 2, 1), CreatedAt: base.Add(2 * time.Hour)},
		{ID: "new-early", Date: core.NewDate(2024, 2, 1), CreatedAt: base},
	}
	SortNewestFirst(txs)

	want := []string{"new-late", "new-early", "old", "nodate"}
	for i, id := range want {
		if txs[i].ID != id {
			t.Fatalf("position %d: got %s, want %s (all=%v)", i, txs[i].ID, id, ids(txs))
		}
	}
}

func TestSortNewestFirstZeroCreatedAt(t *testing.T) {
	day := core.NewDate(2024, 3, 1)
	want := []string{"c", "b", "a", "z-nodate", "y-nodate"}

	for _, in := range [][]string{{"a", "b", "c", "y-nodate", "z-nodate"}, {"c", "z-nodate", "a", "y-nodate", "b"}} {
		txs := make([]core.Transaction, len(in))
		for i, id := range in {
			txs[i] = core.Transaction{ID: id}
			if len(id) == 1 {
				txs[i].Date = day
			}
		}
		SortNewestFirst(txs)
		for i, id := range want {
			if txs[i].ID != id {
				t.Fatalf("input %v: got %v, want %v", in, ids(txs), want)
			}
		}
	}
}

func ids(txs []core.Transaction) []string {
	out := make([]string, len(txs))
	for i, t := range txs {
		out[i] = t.ID
	}
	return out
}
