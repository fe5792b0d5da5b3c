// Package view contains the projections that sit on top of the store: the
// paginated transaction table and the dashboard overview. Each view
// subscribes to the store and re-derives its own output independently.
package view

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"spendlog/internal/cache"
	"spendlog/internal/core"
	"spendlog/internal/log"
	"spendlog/internal/notify"
	"spendlog/internal/query"
	"spendlog/internal/store"
)

// TableConfig tunes a table view. Zero values fall back to sensible
// defaults.
type TableConfig struct {
	PageSize  int
	Bounds    query.Bounds
	CacheSize int
	CacheTTL  time.Duration
	Now       func() time.Time // injectable clock for tests
}

const (
	defaultCacheSize = 64
	defaultCacheTTL  = time.Minute
)

// Table holds the ephemeral criteria bundle for the transaction table and
// runs the query pipeline over store snapshots. Results are cached keyed by
// (store revision, criteria, calendar day), so any mutation or day rollover
// naturally misses the cache; identical concurrent computations are
// coalesced.
type Table struct {
	store    *store.Store
	logger   *log.Logger
	results  *cache.LRU[query.Result]
	group    singleflight.Group
	notifier *notify.Notifier
	sub      notify.Subscription
	nowFn    func() time.Time

	mu       sync.Mutex
	criteria query.Criteria
}

func NewTable(st *store.Store, logger *log.Logger, cfg TableConfig) *Table {
	if cfg.PageSize < 1 {
		cfg.PageSize = query.DefaultPageSize
	}
	if cfg.Bounds.Low.IsZero() && cfg.Bounds.High.IsZero() {
		cfg.Bounds = query.DefaultBounds()
	}
	if cfg.CacheSize < 1 {
		cfg.CacheSize = defaultCacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	t := &Table{
		store:    st,
		logger:   logger.WithComponent("table"),
		results:  cache.NewLRU[query.Result](cfg.CacheSize, cfg.CacheTTL),
		notifier: notify.New(),
		nowFn:    cfg.Now,
		criteria: query.Criteria{
			SortKey:  query.DateDesc,
			Page:     1,
			PageSize: cfg.PageSize,
			Bounds:   cfg.Bounds,
		},
	}
	t.sub = st.Subscribe(t.notifier.Publish)
	return t
}

// OnChange registers a callback fired whenever the underlying data changes.
func (t *Table) OnChange(cb notify.Callback) notify.Subscription {
	return t.notifier.Subscribe(cb)
}

// Close detaches the view from the store and stops its cache.
func (t *Table) Close() {
	t.sub.Cancel()
	t.results.Stop()
}

// Current produces the page for the present criteria over a fresh snapshot.
func (t *Table) Current() query.Result {
	t.mu.Lock()
	c := t.criteria
	t.mu.Unlock()

	now := t.nowFn()
	key := fmt.Sprintf("%d|%s|%s", t.store.Revision(), c.Key(), now.Format(core.DateLayout))

	if res, ok := t.results.Get(key); ok {
		return res
	}

	v, _, _ := t.group.Do(key, func() (any, error) {
		res := query.Run(t.store.Snapshot(), c, now)
		t.results.Set(key, res)
		return res, nil
	})
	return v.(query.Result)
}

// Criteria returns the current criteria bundle.
func (t *Table) Criteria() query.Criteria {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.criteria
}

// Filter and sort setters reset to the first page; pagination controls do
// not.

func (t *Table) SetSearch(s string) {
	t.edit(func(c *query.Criteria) { c.Search = s })
}

func (t *Table) SetDateRange(r query.DateRange) {
	t.edit(func(c *query.Criteria) { c.DateRange = r })
}

func (t *Table) SetCategory(category string) {
	t.edit(func(c *query.Criteria) { c.Category = category })
}

func (t *Table) SetAmountRange(r query.AmountRange) {
	t.edit(func(c *query.Criteria) { c.AmountRange = r })
}

func (t *Table) SetSortKey(k query.SortKey) {
	t.edit(func(c *query.Criteria) { c.SortKey = k })
}

// SetPageSize is a pagination control: it keeps the current page, which the
// pipeline clamps if it now lies past the end.
func (t *Table) SetPageSize(n int) {
	if n < 1 {
		return
	}
	t.mu.Lock()
	t.criteria.PageSize = n
	t.mu.Unlock()
	t.notifier.Publish()
}

func (t *Table) edit(apply func(*query.Criteria)) {
	t.mu.Lock()
	apply(&t.criteria)
	t.criteria.Page = 1
	t.mu.Unlock()
	t.notifier.Publish()
}

// NextPage advances one page if one exists.
func (t *Table) NextPage() {
	res := t.Current()
	t.mu.Lock()
	if res.Page < res.TotalPages {
		t.criteria.Page = res.Page + 1
	}
	t.mu.Unlock()
	t.notifier.Publish()
}

// PrevPage steps one page back, not before the first.
func (t *Table) PrevPage() {
	t.mu.Lock()
	if t.criteria.Page > 1 {
		t.criteria.Page--
	}
	t.mu.Unlock()
	t.notifier.Publish()
}

// CategoryOptions lists the filter choices: the wildcard plus the sorted
// distinct categories of live records.
func (t *Table) CategoryOptions() []string {
	return append([]string{query.AllCategories}, t.store.Categories()...)
}
