package query

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DateRange selects which calendar window a record's date must fall in,
// relative to the "now" passed to Run.
type DateRange int

const (
	AllTime DateRange = iota
	ThisMonth
	LastMonth
	ThisYear
)

func (d DateRange) String() string {
	switch d {
	case AllTime:
		return "All Time"
	case ThisMonth:
		return "This Month"
	case LastMonth:
		return "Last Month"
	case ThisYear:
		return "This Year"
	default:
		return fmt.Sprintf("DateRange(%d)", int(d))
	}
}

// AmountRange buckets records by amount against the configured bounds.
type AmountRange int

const (
	AllAmounts AmountRange = iota
	BelowLow               // strictly below the low bound
	BetweenBounds          // inclusive of both bounds
	AboveHigh              // strictly above the high bound
)

// SortKey selects the stable ordering of the filtered records.
type SortKey int

const (
	DateDesc SortKey = iota
	DateAsc
	AmountDesc
	AmountAsc
)

// AllCategories is the category filter wildcard.
const AllCategories = ""

// DefaultPageSize matches the original table's default.
const DefaultPageSize = 10

// Bounds holds the amount-range thresholds. They are configuration, not
// constants; the defaults mirror the original 50/200 buckets. The bounds are
// deliberately currency-unit-agnostic: the currency symbol only ever reaches
// the display labels, never the comparisons.
type Bounds struct {
	Low  decimal.Decimal
	High decimal.Decimal
}

func DefaultBounds() Bounds {
	return Bounds{
		Low:  decimal.NewFromInt(50),
		High: decimal.NewFromInt(200),
	}
}

// Labels renders the four amount-range options for display, prefixed with the
// configured currency.
func (b Bounds) Labels(currency string) []string {
	return []string{
		"All Amounts",
		fmt.Sprintf("< %s%s", currency, b.Low),
		fmt.Sprintf("%s%s - %s%s", currency, b.Low, currency, b.High),
		fmt.Sprintf("> %s%s", currency, b.High),
	}
}

// Criteria is the full filter/sort/paginate bundle for one table query.
// The zero value means: everything, newest first, first page, default size.
type Criteria struct {
	Search      string // matched lower-cased against description OR category
	DateRange   DateRange
	Category    string // AllCategories or an exact category
	AmountRange AmountRange
	Bounds      Bounds
	SortKey     SortKey
	Page        int // 1-based
	PageSize    int
}

// Key is a compact cache key covering every field that affects the output.
func (c Criteria) Key() string {
	return fmt.Sprintf("s=%s|d=%d|c=%s|a=%d|b=%s:%s|k=%d|p=%d|n=%d",
		c.Search, c.DateRange, c.Category, c.AmountRange,
		c.Bounds.Low, c.Bounds.High, c.SortKey, c.Page, c.PageSize)
}
