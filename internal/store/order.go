package store

import (
	"sort"

	"finance/internal/core"
)

// SortNewestFirst orders txs in place the way TransactionLister promises.
func SortNewestFirst(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i], txs[j]
		switch {
		case a.Date.IsZero() && b.Date.IsZero():
		case a.Date.IsZero():
			return false
		case b.Date.IsZero():
			return true
		case !a.Date.Equal(b.Date.Time):
			return a.Date.After(b.Date.Time)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		// Seeded and mirrored records may share a zero CreatedAt.
		return a.ID > b.ID
	})
}
