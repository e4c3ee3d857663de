// Package expectation defines the expectation data model and its JSON wire
// format: request patterns, string matchers, response specs, and the
// validation applied before anything reaches the store.
package expectation

import (
	"encoding/json"
	"fmt"

	"github.com/fivetide/phiremock-server/internal/id"
)

// ScenarioStart is the sentinel state of every scenario that has never been
// set (or has been reset). A scenarioStateIs precondition naming it matches
// scenarios with no recorded state.
const ScenarioStart = "Scenario.START"

// Matcher operation tags. A matcher object carries exactly one of these keys.
const (
	MatcherEqualTo    = "isEqualTo"
	MatcherSameString = "isSameString"
	MatcherMatches    = "matches"
	MatcherContains   = "contains"
)

// Expectation pairs a request pattern with a response or proxy directive and
// optional scenario logic. Optional fields are pointers so the management API
// round-trips absent values as null.
type Expectation struct {
	ID               string          `json:"id,omitempty"`
	ScenarioName     *string         `json:"scenarioName"`
	ScenarioStateIs  *string         `json:"scenarioStateIs"`
	NewScenarioState *string         `json:"newScenarioState"`
	Request          *RequestPattern `json:"request"`
	Response         *Response       `json:"response"`
	ProxyTo          *string         `json:"proxyTo"`
	Priority         int             `json:"priority"`
}

// RequestPattern is the matcher-bearing portion of an expectation. Every
// field is optional; a declared matcher must be satisfied for the pattern
// to match.
type RequestPattern struct {
	Method     *StringMatcher            `json:"method,omitempty"`
	URL        *StringMatcher            `json:"url,omitempty"`
	Body       *StringMatcher            `json:"body,omitempty"`
	Headers    map[string]*StringMatcher `json:"headers,omitempty"`
	FormFields map[string]*StringMatcher `json:"formFields,omitempty"`
}

// Response describes a static HTTP response. DelayMillis is honored even
// when the expectation proxies instead of answering statically.
type Response struct {
	StatusCode   int               `json:"statusCode,omitempty"`
	Body         string            `json:"body,omitempty"`
	BodyFileName string            `json:"bodyFileName,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	DelayMillis  int               `json:"delayMillis,omitempty"`
}

// Static reports whether the response defines anything beyond a delay.
// An expectation carrying only delayMillis alongside proxyTo contributes the
// delay to the proxy call instead of shadowing it.
func (r *Response) Static() bool {
	if r == nil {
		return false
	}
	return r.StatusCode != 0 || r.Body != "" || r.BodyFileName != "" || len(r.Headers) > 0
}

// StringMatcher is a tagged predicate over a string: exactly one of the four
// matcher operations applied to a value.
type StringMatcher struct {
	Op    string
	Value string
}

// matcherOps lists the valid operation tags in wire order.
var matcherOps = []string{MatcherEqualTo, MatcherSameString, MatcherMatches, MatcherContains}

func validMatcherOp(op string) bool {
	for _, known := range matcherOps {
		if op == known {
			return true
		}
	}
	return false
}

// UnmarshalJSON accepts either a tagged single-key object or a bare string.
// A bare string is shorthand for isSameString, which is what gives
// `"method": "get"` its documented case-insensitive behavior.
func (m *StringMatcher) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		m.Op = MatcherSameString
		m.Value = s
		return nil
	}

	var obj map[string]string
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("matcher must be a string or an object with one of %v", matcherOps)
	}
	if len(obj) != 1 {
		return fmt.Errorf("matcher must carry exactly one of %v", matcherOps)
	}
	for op, value := range obj {
		if !validMatcherOp(op) {
			return fmt.Errorf("unknown matcher operation %q", op)
		}
		m.Op = op
		m.Value = value
	}
	return nil
}

// MarshalJSON always emits the tagged-object form, so bare-string shorthand
// normalizes to {"isSameString": ...} on the way back out.
func (m StringMatcher) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{m.Op: m.Value})
}

// Fingerprint derives the content-hash identifier of the expectation,
// ignoring any id it already carries. Identical definitions hash to the
// same id regardless of registration order.
func (e *Expectation) Fingerprint() string {
	clone := *e
	clone.ID = ""
	data, err := json.Marshal(&clone)
	if err != nil {
		// Marshaling a validated expectation cannot fail; fall back to a
		// random id rather than colliding on an empty hash.
		return id.Short()
	}
	return id.Content(data)
}

// EnsureID assigns the content-hash id when none was supplied.
func (e *Expectation) EnsureID() {
	if e.ID == "" {
		e.ID = e.Fingerprint()
	}
}
