package usage

import (
	"fmt"
	"sort"
)

// Measure is the numeric measure a ranking sorts on.
type Measure string

const (
	MeasureTokens   Measure = "tokens"
	MeasureMessages Measure = "messages"
	MeasureRecords  Measure = "records"
	MeasureOwners   Measure = "owners"
)

// ParseMeasure validates a caller-supplied measure name.
func ParseMeasure(s string) (Measure, error) {
	switch Measure(s) {
	case MeasureTokens, MeasureMessages, MeasureRecords, MeasureOwners:
		return Measure(s), nil
	default:
		return "", fmt.Errorf("unknown measure %q", s)
	}
}

func measureOf(b Bucket, m Measure) int64 {
	switch m {
	case MeasureMessages:
		return b.MessageCount
	case MeasureRecords:
		return b.RecordCount
	case MeasureOwners:
		return int64(b.DistinctOwners)
	default:
		return b.TokensTotal
	}
}

// TopN returns the n highest buckets by measure, strictly descending. The
// sort is stable, so ties keep their original bucket order; this feeds a
// user-facing ranked list and must be deterministic across invocations.
func TopN(buckets []Bucket, measure Measure, n int) []Bucket {
	out := make([]Bucket, len(buckets))
	copy(out, buckets)

	sort.SliceStable(out, func(i, j int) bool {
		return measureOf(out[i], measure) > measureOf(out[j], measure)
	})

	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}
