// Package usage tracks daily request counters per connector.
//
// The check-then-increment is atomic: a single call both reserves a slot and
// reports whether the daily limit would be exceeded. The Postgres-backed
// implementation lives in the persist package; Memory backs tests and runs
// without a database.
package usage

import (
	"context"
	"sync"
	"time"
)

// Store is the daily usage counter.
type Store interface {
	// Reserve atomically increments the counter for (connector, UTC day) and
	// reports whether the request is allowed under limit. A limit of zero
	// means unlimited. When the limit is already reached the counter is not
	// incremented and allowed is false.
	Reserve(ctx context.Context, connector string, day time.Time, limit int) (allowed bool, err error)
}

// Day truncates t to its UTC date.
func Day(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

// =============================================================================
// IN-MEMORY STORE
// =============================================================================

// Memory is a process-local usage store.
type Memory struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewMemory creates an empty in-memory usage store.
func NewMemory() *Memory {
	return &Memory{counts: make(map[string]int)}
}

// Reserve implements Store.
func (m *Memory) Reserve(_ context.Context, connector string, day time.Time, limit int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := connector + "|" + Day(day).Format("2006-01-02")
	if limit > 0 && m.counts[key] >= limit {
		return false, nil
	}
	m.counts[key]++
	return true, nil
}

// Count returns the current counter for a connector and day.
func (m *Memory) Count(connector string, day time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[connector+"|"+Day(day).Format("2006-01-02")]
}

var _ Store = (*Memory)(nil)
