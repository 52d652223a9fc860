package usage

import (
	"fmt"
	"regexp"

	"github.com/platinummonkey/tally/pkg/scan"
	"github.com/platinummonkey/tally/pkg/sources"
)

// CanonicalRecord is one usage event in canonical form, derived
// deterministically from a single raw record.
type CanonicalRecord struct {
	SourceID string `json:"source_id"`

	// OwnerID is empty when the record is unattributable. Such records are
	// excluded from owner-centric views but still count toward totals.
	OwnerID string `json:"owner_id,omitempty"`

	// DimensionLabel is the engine/model variant, empty when unresolvable.
	DimensionLabel string `json:"dimension,omitempty"`

	// Date is the ISO calendar day, empty when unextractable.
	Date string `json:"date,omitempty"`

	TokensIn     int64 `json:"tokens_in"`
	TokensOut    int64 `json:"tokens_out"`
	TokensTotal  int64 `json:"tokens_total"`
	MessageCount int64 `json:"message_count"`
}

// SourceResult is the raw outcome of reading one table. A scan failure is
// recorded here, scoped to this location only.
type SourceResult struct {
	SourceID string
	Location string
	Alt      bool
	Records  []scan.Item
	Err      error
}

// SourceStatus is the per-source annotation attached to every derived view,
// so degraded responses are visibly flagged.
type SourceStatus struct {
	SourceID string `json:"source_id"`
	Location string `json:"location"`
	Alt      bool   `json:"alt,omitempty"`
	Records  int    `json:"records"`
	Dropped  int    `json:"dropped,omitempty"`
	Failed   bool   `json:"failed,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Scope selects which sources a query reads.
type Scope struct {
	// SourceID narrows the query to one source; empty means all sources.
	SourceID string

	// AltOnly reads only the secondary-edition table. Valid only with a
	// SourceID that has one.
	AltOnly bool
}

// AllSources is the scope covering every catalog source.
func AllSources() Scope {
	return Scope{}
}

// SingleSource scopes a query to one source id.
func SingleSource(id string) Scope {
	return Scope{SourceID: id}
}

var (
	monthRe = regexp.MustCompile(`^\d{4}-\d{2}$`)
	dayRe   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

type timeFilterKind int

const (
	timeUnbounded timeFilterKind = iota
	timeMonth
	timeRange
)

// TimeFilter bounds a query in time. Month filters push down to a substring
// predicate on the dimension attribute, the only filter primitive the stores
// support. Range filters scan unfiltered and post-filter on the normalized
// date.
type TimeFilter struct {
	kind  timeFilterKind
	month string
	from  string
	to    string
}

// Unbounded is the filter matching every record.
func Unbounded() TimeFilter {
	return TimeFilter{}
}

// Month builds a calendar-month filter from a "YYYY-MM" token.
func Month(token string) (TimeFilter, error) {
	if !monthRe.MatchString(token) {
		return TimeFilter{}, fmt.Errorf("invalid month token %q, want YYYY-MM", token)
	}
	return TimeFilter{kind: timeMonth, month: token}, nil
}

// Range builds a closed date-range filter from ISO day bounds.
func Range(from, to string) (TimeFilter, error) {
	if !dayRe.MatchString(from) || !dayRe.MatchString(to) {
		return TimeFilter{}, fmt.Errorf("invalid date range %q..%q, want YYYY-MM-DD", from, to)
	}
	if from > to {
		return TimeFilter{}, fmt.Errorf("date range start %q is after end %q", from, to)
	}
	return TimeFilter{kind: timeRange, from: from, to: to}, nil
}

// IsUnbounded reports whether the filter matches everything.
func (tf TimeFilter) IsUnbounded() bool {
	return tf.kind == timeUnbounded
}

// scanFilter translates the filter into a source-level predicate for the
// given key layout. Only month filters push down; everything else scans
// unfiltered.
func (tf TimeFilter) scanFilter(layout sources.KeyLayout) *scan.Filter {
	if tf.kind != timeMonth {
		return nil
	}
	return &scan.Filter{Attribute: layout.DimensionField, Contains: tf.month}
}

// includes applies the post-filter on a normalized date. Only range filters
// post-filter; a record with no extractable date fails a bounded range.
func (tf TimeFilter) includes(date string) bool {
	if tf.kind != timeRange {
		return true
	}
	if date == "" {
		return false
	}
	return date >= tf.from && date <= tf.to
}

// String renders the filter for logs.
func (tf TimeFilter) String() string {
	switch tf.kind {
	case timeMonth:
		return "month " + tf.month
	case timeRange:
		return tf.from + ".." + tf.to
	default:
		return "unbounded"
	}
}
