package requestlog

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fivetide/phiremock-server/internal/matching"
	"github.com/fivetide/phiremock-server/pkg/expectation"
)

// Journal is the interface the dispatcher and management API consume.
type Journal interface {
	// Append records an entry. Appends are totally ordered.
	Append(entry *Entry)

	// List returns a snapshot of all entries in insertion order.
	List() []*Entry

	// Search returns the entries matching a request pattern, in insertion
	// order.
	Search(pattern *expectation.RequestPattern) []*Entry

	// Count returns the number of entries matching a request pattern.
	Count(pattern *expectation.RequestPattern) int

	// Reset removes all entries.
	Reset()

	// Len returns the number of journaled entries.
	Len() int
}

// InMemoryJournal implements Journal with a bounded FIFO buffer.
// A maxEntries of zero or less means unbounded.
type InMemoryJournal struct {
	mu         sync.RWMutex
	entries    []*Entry
	maxEntries int
}

// NewInMemoryJournal creates a journal holding at most maxEntries entries,
// evicting the oldest once full. Pass 0 for an unbounded journal.
func NewInMemoryJournal(maxEntries int) *InMemoryJournal {
	return &InMemoryJournal{maxEntries: maxEntries}
}

// Append records an entry, assigning an id and timestamp when missing.
func (j *InMemoryJournal) Append(entry *Entry) {
	if entry == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.maxEntries > 0 && len(j.entries) >= j.maxEntries {
		j.entries = j.entries[1:]
	}
	j.entries = append(j.entries, entry)
}

// List returns a snapshot of all entries in insertion order.
func (j *InMemoryJournal) List() []*Entry {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return append([]*Entry(nil), j.entries...)
}

// Search scans a snapshot of the journal for entries matching the pattern.
func (j *InMemoryJournal) Search(pattern *expectation.RequestPattern) []*Entry {
	matched := make([]*Entry, 0)
	for _, entry := range j.List() {
		if matching.Matches(pattern, entry.request()) {
			matched = append(matched, entry)
		}
	}
	return matched
}

// Count returns the number of entries matching the pattern.
func (j *InMemoryJournal) Count(pattern *expectation.RequestPattern) int {
	return len(j.Search(pattern))
}

// Reset removes all entries.
func (j *InMemoryJournal) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = nil
}

// Len returns the number of journaled entries.
func (j *InMemoryJournal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.entries)
}

// Ensure InMemoryJournal implements Journal.
var _ Journal = (*InMemoryJournal)(nil)
