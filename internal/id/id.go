// Package id provides identifier generation utilities for expectations.
// Journal entry ids are generated separately, in package requestlog.
package id

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// Content derives a stable identifier from a byte payload. Equal payloads
// always produce the same id, which makes re-registering an identical
// expectation an overwrite rather than a duplicate.
func Content(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:16])
}

// Short generates a short random hex ID (16 characters).
// Suitable for user-facing IDs where brevity matters.
func Short() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
