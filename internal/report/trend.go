// Package report derives the dashboard's trailing-months cost series from a
// record snapshot. Pure computation, no state.
package report

import (
	"time"

	"github.com/shopspring/decimal"

	"spendlog/internal/core"
)

// DefaultTrendMonths matches the dashboard's 12-month line chart.
const DefaultTrendMonths = 12

// MonthlyTrend sums amounts per calendar month for the trailing months
// window ending at now's month, in chronological order. Months with no
// spending carry an explicit zero; records with unparseable dates are left
// out of the series.
func MonthlyTrend(records []core.Record, now time.Time, months int) []core.TrendPoint {
	if months < 1 {
		months = DefaultTrendMonths
	}

	type ym struct{ year, month int }
	totals := make(map[ym]decimal.Decimal)
	for _, r := range records {
		d, err := r.ParsedDate()
		if err != nil {
			continue
		}
		k := ym{d.Year(), int(d.Month())}
		totals[k] = totals[k].Add(r.AmountOrZero())
	}

	out := make([]core.TrendPoint, 0, months)
	for i := months - 1; i >= 0; i-- {
		t := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -i, 0)
		k := ym{t.Year(), int(t.Month())}
		out = append(out, core.TrendPoint{
			Year:  k.year,
			Month: k.month,
			Total: totals[k],
		})
	}
	return out
}
