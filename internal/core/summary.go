package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Summary is the derived aggregate over all live records: the grand total and
// the per-category sums. Absent amounts count as zero.
type Summary struct {
	Total      decimal.Decimal
	ByCategory map[string]decimal.Decimal
}

// Summarize recomputes the aggregate in one O(n) pass.
func Summarize(records []Record) Summary {
	s := Summary{
		Total:      decimal.Zero,
		ByCategory: make(map[string]decimal.Decimal, 8),
	}
	for _, r := range records {
		amt := r.AmountOrZero()
		s.Total = s.Total.Add(amt)
		s.ByCategory[r.Category] = s.ByCategory[r.Category].Add(amt)
	}
	return s
}

// CategoryAmount pairs a category name with its summed amount.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// Breakdown returns the per-category sums sorted by name for stable display.
func (s Summary) Breakdown() []CategoryAmount {
	out := make([]CategoryAmount, 0, len(s.ByCategory))
	for name, amt := range s.ByCategory {
		out = append(out, CategoryAmount{Name: name, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// TrendPoint is one month of the trailing-months cost series.
type TrendPoint struct {
	Year  int
	Month int // 1-12
	Total decimal.Decimal
}
