package requestlog

import (
	"net/http"
	"time"

	"github.com/fivetide/phiremock-server/internal/matching"
)

// Entry captures a received mock request at the moment the dispatcher saw
// it. Management requests are never journaled.
type Entry struct {
	// ID is a unique identifier for the journal entry.
	ID string `json:"id"`

	// Timestamp is when the request was received.
	Timestamp time.Time `json:"timestamp"`

	// Method is the HTTP method.
	Method string `json:"method"`

	// Path is the request URL path.
	Path string `json:"path"`

	// QueryString is the raw query string, if any.
	QueryString string `json:"queryString,omitempty"`

	// Headers are the request headers (multi-value).
	Headers map[string][]string `json:"headers,omitempty"`

	// Body is the request body content.
	Body string `json:"body,omitempty"`
}

// FromRequest builds a journal entry from a parsed request snapshot.
func FromRequest(r *matching.Request, receivedAt time.Time) *Entry {
	headers := make(map[string][]string, len(r.Header))
	for name, values := range r.Header {
		headers[name] = append([]string(nil), values...)
	}
	return &Entry{
		Timestamp:   receivedAt,
		Method:      r.Method,
		Path:        r.Path,
		QueryString: r.RawQuery,
		Headers:     headers,
		Body:        string(r.Body),
	}
}

// request rebuilds a matchable snapshot from the journaled data so searches
// evaluate exactly like live matching.
func (e *Entry) request() *matching.Request {
	return &matching.Request{
		Method:   e.Method,
		Path:     e.Path,
		RawQuery: e.QueryString,
		Header:   http.Header(e.Headers),
		Body:     []byte(e.Body),
	}
}
