package scan

import (
	"context"
	"strings"
	"sync"
)

// MemoryScanner is an in-memory ItemScanner for tests and local development.
// Locations are seeded up front; individual locations can be failed to
// exercise the partial-failure path.
type MemoryScanner struct {
	mu       sync.RWMutex
	tables   map[string][]Item
	failures map[string]error
}

// NewMemoryScanner creates an empty in-memory scanner.
func NewMemoryScanner() *MemoryScanner {
	return &MemoryScanner{
		tables:   make(map[string][]Item),
		failures: make(map[string]error),
	}
}

// Seed replaces the items at a location.
func (m *MemoryScanner) Seed(location string, items []Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[location] = items
}

// Fail makes every scan of a location return err.
func (m *MemoryScanner) Fail(location string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[location] = err
}

// Scan implements ItemScanner with the same substring-filter semantics as the
// production scanner.
func (m *MemoryScanner) Scan(ctx context.Context, location string, filter *Filter) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err, failed := m.failures[location]; failed {
		return nil, err
	}

	result := &Result{}
	for _, item := range m.tables[location] {
		if filter != nil && !strings.Contains(item[filter.Attribute], filter.Contains) {
			continue
		}
		result.Items = append(result.Items, item)
	}
	result.Count = len(result.Items)
	return result, nil
}
