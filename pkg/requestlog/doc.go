// Package requestlog implements the request journal: an append-only,
// optionally bounded record of every mock request the dispatcher receives,
// queryable with the same request-pattern semantics used for matching.
package requestlog
