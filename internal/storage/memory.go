package storage

import (
	"sort"
	"sync"

	"github.com/fivetide/phiremock-server/pkg/expectation"
)

// stored pairs an expectation with its insertion sequence, which is the
// matcher's tie-breaker for equal priorities (oldest wins).
type stored struct {
	exp *expectation.Expectation
	seq uint64
}

// InMemoryStore is a thread-safe in-memory implementation of ExpectationStore.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]stored
	nextSeq uint64
}

// NewInMemoryStore creates a new InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[string]stored),
	}
}

// Get retrieves an expectation by ID. Returns nil if not found.
func (s *InMemoryStore) Get(id string) *expectation.Expectation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if entry, ok := s.entries[id]; ok {
		return entry.exp
	}
	return nil
}

// Add stores or replaces an expectation by id and returns the id.
// A replaced expectation keeps its original insertion sequence.
func (s *InMemoryStore) Add(e *expectation.Expectation) string {
	if e == nil {
		return ""
	}
	e.EnsureID()

	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.nextSeq
	if existing, ok := s.entries[e.ID]; ok {
		seq = existing.seq
	} else {
		s.nextSeq++
	}
	s.entries[e.ID] = stored{exp: e, seq: seq}
	return e.ID
}

// Delete removes an expectation by ID. Returns true if deleted.
func (s *InMemoryStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; ok {
		delete(s.entries, id)
		return true
	}
	return false
}

// List returns all stored expectations in insertion order.
func (s *InMemoryStore) List() []*expectation.Expectation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]stored, 0, len(s.entries))
	for _, entry := range s.entries {
		snapshot = append(snapshot, entry)
	}
	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].seq < snapshot[j].seq
	})

	result := make([]*expectation.Expectation, len(snapshot))
	for i, entry := range snapshot {
		result[i] = entry.exp
	}
	return result
}

// Count returns the number of stored expectations.
func (s *InMemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Reset removes all stored expectations.
func (s *InMemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]stored)
}

// Ensure InMemoryStore implements ExpectationStore.
var _ ExpectationStore = (*InMemoryStore)(nil)
