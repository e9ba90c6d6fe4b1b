package core

import "sort"

// Totals holds the per-type sums of a transaction list.
type Totals struct {
	TotalIncome  Amount `json:"totalIncome"`
	TotalExpense Amount `json:"totalExpense"`
	Balance      Amount `json:"balance"`
}

// CategorySlice is one slot of the income/expense breakdown.
type CategorySlice struct {
	Label Type   `json:"label"`
	Value Amount `json:"value"`
}

// DailyPoint is the income and expense accumulated on one calendar day.
type DailyPoint struct {
	Day     string `json:"day"`
	Income  Amount `json:"income"`
	Expense Amount `json:"expense"`
}

// Summary bundles every derived view of a transaction list.
type Summary struct {
	Totals    Totals          `json:"totals"`
	Breakdown []CategorySlice `json:"breakdown"`
	Daily     []DailyPoint    `json:"daily"`
}

// ComputeTotals sums amounts by type. Records whose type is neither income
// nor expense are ignored. A NaN amount propagates into the total of its
// own type and into the balance.
func ComputeTotals(txs []Transaction) Totals {
	var t Totals
	for _, tx := range txs {
		switch tx.Type {
		case Income:
			t.TotalIncome += tx.Amount
		case Expense:
			t.TotalExpense += tx.Amount
		}
	}
	t.Balance = t.TotalIncome - t.TotalExpense
	return t
}

// ComputeCategoryBreakdown returns exactly two slots, income first and
// expense second, so a fixed color and legend mapping stays stable.
func ComputeCategoryBreakdown(t Totals) []CategorySlice {
	return []CategorySlice{
		{Label: Income, Value: t.TotalIncome},
		{Label: Expense, Value: t.TotalExpense},
	}
}

// ComputeDailySeries groups transactions by calendar day.
//
// Buckets appear in the order their day is first seen in txs; the output is
// chronological only when the input is. Records without a date have no day
// and are skipped. Unknown types still open a bucket for their day but add
// nothing to it.
func ComputeDailySeries(txs []Transaction) []DailyPoint {
	index := make(map[string]int)
	var out []DailyPoint
	for _, tx := range txs {
		day := tx.Date.Key()
		if day == "" {
			continue
		}
		i, ok := index[day]
		if !ok {
			i = len(out)
			index[day] = i
			out = append(out, DailyPoint{Day: day})
		}
		switch tx.Type {
		case Income:
			out[i].Income += tx.Amount
		case Expense:
			out[i].Expense += tx.Amount
		}
	}
	return out
}

// Derive computes totals, breakdown and daily series in one call.
func Derive(txs []Transaction) Summary {
	totals := ComputeTotals(txs)
	daily := ComputeDailySeries(txs)
	if daily == nil {
		daily = []DailyPoint{}
	}
	return Summary{
		Totals:    totals,
		Breakdown: ComputeCategoryBreakdown(totals),
		Daily:     daily,
	}
}

// SortChronological returns a copy of txs ordered by date ascending.
// Records without a date go last; equal dates keep their relative order.
func SortChronological(txs []Transaction) []Transaction {
	out := make([]Transaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Date, out[j].Date
		if a.IsZero() || b.IsZero() {
			return !a.IsZero() && b.IsZero()
		}
		return a.Before(b.Time)
	})
	return out
}
