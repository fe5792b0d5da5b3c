// Package query is the pure filter→sort→paginate pipeline over a snapshot of
// expense records. It holds no state and performs no I/O; "now" is an
// explicit parameter so date-window membership is deterministic in tests.
package query

import (
	"sort"
	"strings"
	"time"

	"spendlog/internal/core"
)

// Result is one page of the filtered and sorted records plus paging metadata.
type Result struct {
	Records       []core.Record
	Page          int // clamped, 1-based
	TotalPages    int // >= 1 even with no matches
	TotalMatching int
}

// Run applies the criteria to a snapshot. Identical inputs (including now)
// produce identical output.
func Run(records []core.Record, c Criteria, now time.Time) Result {
	c = normalize(c)

	filtered := make([]core.Record, 0, len(records))
	for _, r := range records {
		if matches(r, c, now) {
			filtered = append(filtered, r)
		}
	}

	sortRecords(filtered, c.SortKey)

	total := len(filtered)
	totalPages := (total + c.PageSize - 1) / c.PageSize
	if totalPages == 0 {
		totalPages = 1
	}

	page := c.Page
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * c.PageSize
	end := start + c.PageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return Result{
		Records:       filtered[start:end],
		Page:          page,
		TotalPages:    totalPages,
		TotalMatching: total,
	}
}

func normalize(c Criteria) Criteria {
	if c.PageSize < 1 {
		c.PageSize = DefaultPageSize
	}
	if c.Bounds.Low.IsZero() && c.Bounds.High.IsZero() {
		c.Bounds = DefaultBounds()
	}
	return c
}

// matches is the AND of all active filters.
func matches(r core.Record, c Criteria, now time.Time) bool {
	if !matchesDate(r, c.DateRange, now) {
		return false
	}
	if c.Category != AllCategories && r.Category != c.Category {
		return false
	}
	if !matchesAmount(r, c.AmountRange, c.Bounds) {
		return false
	}
	return matchesSearch(r, c.Search)
}

// matchesDate excludes records whose date cannot be parsed from every window
// except AllTime; a bad date is never an error here.
func matchesDate(r core.Record, dr DateRange, now time.Time) bool {
	if dr == AllTime {
		return true
	}
	d, err := r.ParsedDate()
	if err != nil {
		return false
	}

	switch dr {
	case ThisMonth:
		return d.Year() == now.Year() && d.Month() == now.Month()
	case ThisYear:
		return d.Year() == now.Year()
	case LastMonth:
		firstOfCurrent := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		lastOfPrev := firstOfCurrent.AddDate(0, 0, -1)
		firstOfPrev := time.Date(lastOfPrev.Year(), lastOfPrev.Month(), 1, 0, 0, 0, 0, time.UTC)
		return !d.Before(firstOfPrev) && !d.After(lastOfPrev)
	default:
		return true
	}
}

// matchesAmount applies the bucket bounds: Between is inclusive on both
// edges, below/above are strict. Absent amounts fail every bucket.
func matchesAmount(r core.Record, ar AmountRange, b Bounds) bool {
	if ar == AllAmounts {
		return true
	}
	if !r.Amount.Valid {
		return false
	}
	amt := r.Amount.Decimal

	switch ar {
	case BelowLow:
		return amt.LessThan(b.Low)
	case BetweenBounds:
		return amt.GreaterThanOrEqual(b.Low) && amt.LessThanOrEqual(b.High)
	case AboveHigh:
		return amt.GreaterThan(b.High)
	default:
		return true
	}
}

// matchesSearch matches the lower-cased query as a substring of description
// OR category; either field suffices.
func matchesSearch(r core.Record, search string) bool {
	if search == "" {
		return true
	}
	q := strings.ToLower(search)
	if r.Description != "" && strings.Contains(strings.ToLower(r.Description), q) {
		return true
	}
	return r.Category != "" && strings.Contains(strings.ToLower(r.Category), q)
}

// sortRecords orders in place, stably. Records with an unparseable date or an
// absent amount sink to the end under both directions of their key.
func sortRecords(records []core.Record, key SortKey) {
	switch key {
	case DateDesc, DateAsc:
		type dated struct {
			t  time.Time
			ok bool
		}
		parsed := make([]dated, len(records))
		for i, r := range records {
			t, err := r.ParsedDate()
			parsed[i] = dated{t: t, ok: err == nil}
		}
		idx := make([]int, len(records))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool {
			pa, pb := parsed[idx[a]], parsed[idx[b]]
			if pa.ok != pb.ok {
				return pa.ok
			}
			if !pa.ok {
				return false
			}
			if key == DateDesc {
				return pa.t.After(pb.t)
			}
			return pa.t.Before(pb.t)
		})
		reorder(records, idx)

	case AmountDesc, AmountAsc:
		sort.SliceStable(records, func(a, b int) bool {
			ra, rb := records[a], records[b]
			if ra.Amount.Valid != rb.Amount.Valid {
				return ra.Amount.Valid
			}
			if !ra.Amount.Valid {
				return false
			}
			if key == AmountDesc {
				return ra.Amount.Decimal.GreaterThan(rb.Amount.Decimal)
			}
			return ra.Amount.Decimal.LessThan(rb.Amount.Decimal)
		})
	}
}

func reorder(records []core.Record, idx []int) {
	out := make([]core.Record, len(records))
	for i, j := range idx {
		out[i] = records[j]
	}
	copy(records, out)
}
