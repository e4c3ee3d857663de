package matching

import (
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// Request is an immutable snapshot of an incoming HTTP request: uppercase
// method, path, raw query, headers, and the already-read body bytes.
// Form fields are parsed on first access and cached on the snapshot.
type Request struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte

	formOnce sync.Once
	form     url.Values
}

// FromHTTP snapshots a request whose body has already been read.
func FromHTTP(r *http.Request, body []byte) *Request {
	return &Request{
		Method:   strings.ToUpper(r.Method),
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
		Header:   r.Header,
		Body:     body,
	}
}

// URL returns the matchable URL: path plus "?" and the raw query when a
// query is present, bare path otherwise.
func (r *Request) URL() string {
	if r.RawQuery != "" {
		return r.Path + "?" + r.RawQuery
	}
	return r.Path
}

// Form returns the parsed application/x-www-form-urlencoded body fields.
// Requests with a different content type parse as empty.
func (r *Request) Form() url.Values {
	r.formOnce.Do(func() {
		ct := r.Header.Get("Content-Type")
		if ct != "" {
			if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/x-www-form-urlencoded" {
				r.form = url.Values{}
				return
			}
		}
		values, err := url.ParseQuery(string(r.Body))
		if err != nil {
			r.form = url.Values{}
			return
		}
		r.form = values
	})
	return r.form
}
