package usage

import (
	"sort"
	"time"
)

// TrendPoint is one period in an ordered time series.
type TrendPoint struct {
	// Date is an ISO calendar day for daily series, a "YYYY-MM" token for
	// monthly ones.
	Date string `json:"date"`

	TokensIn     int64 `json:"tokens_in"`
	TokensOut    int64 `json:"tokens_out"`
	TokensTotal  int64 `json:"tokens_total"`
	MessageCount int64 `json:"message_count"`
	ActiveOwners int   `json:"active_owners"`

	// Delta is the token-total change versus the prior point; always zero on
	// the first point.
	Delta int64 `json:"delta"`

	// DeltaPercent is zero when the prior total is zero, regardless of this
	// point's own total. Division by zero is not "infinite growth".
	DeltaPercent float64 `json:"delta_percent"`

	// Cumulative is the running token total through this point.
	Cumulative int64 `json:"cumulative"`
}

// BuildDaily turns canonical records into an ascending daily series. Records
// without an extractable date are dropped; they still count in non-dated
// views.
func BuildDaily(records []CanonicalRecord) []TrendPoint {
	buckets := Aggregate(records, GroupBy{Date: true})

	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Key.Date < buckets[j].Key.Date
	})

	points := make([]TrendPoint, len(buckets))
	for i, b := range buckets {
		points[i] = TrendPoint{
			Date:         b.Key.Date,
			TokensIn:     b.TokensIn,
			TokensOut:    b.TokensOut,
			TokensTotal:  b.TokensTotal,
			MessageCount: b.MessageCount,
			ActiveOwners: b.DistinctOwners,
		}
	}

	applyDeltas(points)
	return points
}

// applyDeltas fills period-over-period deltas and cumulative totals on an
// already-ordered series.
func applyDeltas(points []TrendPoint) {
	var cumulative int64
	for i := range points {
		cumulative += points[i].TokensTotal
		points[i].Cumulative = cumulative

		if i == 0 {
			continue
		}
		prior := points[i-1].TokensTotal
		points[i].Delta = points[i].TokensTotal - prior
		if prior != 0 {
			points[i].DeltaPercent = float64(points[i].Delta) / float64(prior) * 100
		}
	}
}

// trailingMonths returns the monthsBack trailing month tokens ending at the
// month containing now, oldest first.
func trailingMonths(now time.Time, monthsBack int) []string {
	if monthsBack < 1 {
		monthsBack = 1
	}
	// Anchor on the first of the month so AddDate never rolls over
	// month-end days.
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	months := make([]string, 0, monthsBack)
	for i := monthsBack - 1; i >= 0; i-- {
		months = append(months, first.AddDate(0, -i, 0).Format("2006-01"))
	}
	return months
}
