package scan

import "context"

// Item is one raw usage record: a flat attribute bag whose shape varies per
// source. The engine never writes items.
type Item map[string]string

// Filter is a substring-match predicate on a single named attribute. This is
// the only server-side filtering the backing stores support.
type Filter struct {
	Attribute string
	Contains  string
}

// Result is the outcome of scanning one location.
type Result struct {
	Items []Item
	Count int
}

// ItemScanner reads all items from one location, optionally filtered. A scan
// may be arbitrarily expensive; bounding it per source is the caller's job.
type ItemScanner interface {
	Scan(ctx context.Context, location string, filter *Filter) (*Result, error)
}
