package view

import (
	"time"

	"github.com/shopspring/decimal"

	"spendlog/internal/core"
	"spendlog/internal/notify"
	"spendlog/internal/report"
	"spendlog/internal/store"
)

// Overview is what the dashboard renders: the grand total, the per-category
// breakdown and the trailing-months trend.
type Overview struct {
	Total     decimal.Decimal
	Breakdown []core.CategoryAmount
	Trend     []core.TrendPoint
}

// Dashboard derives its overview from the store aggregate; it never runs the
// query pipeline.
type Dashboard struct {
	store       *store.Store
	notifier    *notify.Notifier
	sub         notify.Subscription
	nowFn       func() time.Time
	trendMonths int
}

func NewDashboard(st *store.Store, nowFn func() time.Time) *Dashboard {
	if nowFn == nil {
		nowFn = time.Now
	}
	d := &Dashboard{
		store:       st,
		notifier:    notify.New(),
		nowFn:       nowFn,
		trendMonths: report.DefaultTrendMonths,
	}
	d.sub = st.Subscribe(d.notifier.Publish)
	return d
}

// OnChange registers a callback fired whenever the underlying data changes.
func (d *Dashboard) OnChange(cb notify.Callback) notify.Subscription {
	return d.notifier.Subscribe(cb)
}

// Close detaches the view from the store.
func (d *Dashboard) Close() {
	d.sub.Cancel()
}

// Overview recomputes the dashboard projection.
func (d *Dashboard) Overview() Overview {
	summary := d.store.Summary()
	return Overview{
		Total:     summary.Total,
		Breakdown: summary.Breakdown(),
		Trend:     report.MonthlyTrend(d.store.Snapshot(), d.nowFn(), d.trendMonths),
	}
}
