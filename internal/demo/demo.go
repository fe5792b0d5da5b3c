// Package demo generates plausible expense records for an empty store, so a
// first run has something to show.
package demo

import (
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"spendlog/internal/core"
)

var categories = []string{
	"Groceries", "Transport", "Utilities", "Entertainment",
	"Dining Out", "Healthcare", "Education", "Shopping", "Other",
}

var descriptions = []string{
	"Weekly stock-up at the supermarket", "Fuel for the weekend road trip",
	"Monthly electricity bill", "Concert tickets for favorite band",
	"Dinner at that new Italian place", "Prescription refill",
	"Online course subscription", "New pair of running shoes",
	"Coffee and a good book", "Public transport fare",
	"Internet service fee", "Streaming service subscription",
	"Lunch with colleagues", "Doctor's visit co-pay",
	"Textbooks for next semester", "Impulse buy from online store",
	"Movie night with friends", "Uber ride to the airport",
	"Water and refuse collection", "Gaming console purchase",
	"Takeaway pizza", "Dental check-up", "Art class fees",
	"Gardening supplies", "Donation to charity",
}

// Generate produces n unassigned-id records dated within the ~18 months
// before now, with amounts between 5 and 500. The same seed reproduces the
// same records.
func Generate(n int, now time.Time, seed int64) []core.Record {
	rng := rand.New(rand.NewSource(seed))
	spanDays := 18 * 30

	out := make([]core.Record, 0, n)
	for i := 0; i < n; i++ {
		date := now.AddDate(0, 0, -rng.Intn(spanDays)).Format(core.DateLayout)
		cents := 500 + rng.Int63n(49500) // 5.00 .. 500.00
		out = append(out, core.NewRecord(
			descriptions[rng.Intn(len(descriptions))],
			core.SomeAmount(decimal.New(cents, -2)),
			categories[rng.Intn(len(categories))],
			date,
		))
	}
	return out
}
