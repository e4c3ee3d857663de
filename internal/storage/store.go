// Package storage provides the concurrent in-memory expectation registry.
package storage

import "github.com/fivetide/phiremock-server/pkg/expectation"

// ExpectationStore is the registry of expectations keyed by id.
// List returns an immutable snapshot in insertion order; callers match
// against the snapshot without holding any store lock.
type ExpectationStore interface {
	// Get retrieves an expectation by ID. Returns nil if not found.
	Get(id string) *expectation.Expectation

	// Add stores or replaces an expectation by its id and returns the id.
	// Replacing keeps the original insertion position.
	Add(e *expectation.Expectation) string

	// Delete removes an expectation by ID. Returns true if it existed.
	Delete(id string) bool

	// List returns a snapshot of all expectations in insertion order.
	List() []*expectation.Expectation

	// Count returns the number of stored expectations.
	Count() int

	// Reset removes all expectations.
	Reset()
}
