// Package engine is the core of the mock server: the per-request
// dispatcher, the priority- and scenario-aware winner selection, the
// response builder (static bodies, body files, delays, proxying), and the
// HTTP/HTTPS listener lifecycle.
//
// The dispatcher routes reserved-prefix requests to the management handler
// and serves everything else from the expectation store. Matching always
// runs against a fresh store snapshot outside any lock; the scenario read
// and the expectation list are not captured atomically, which is accepted —
// scenario transitions are idempotent writes and the worst case is one
// re-evaluation against the newer state.
package engine
