package matching

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"github.com/fivetide/phiremock-server/pkg/expectation"
)

// Matches reports whether the request satisfies every matcher the pattern
// declares. A nil or empty pattern matches any request.
func Matches(p *expectation.RequestPattern, r *Request) bool {
	if p == nil {
		return true
	}

	if p.Method != nil && !Eval(p.Method, r.Method) {
		return false
	}
	if p.URL != nil && !Eval(p.URL, r.URL()) {
		return false
	}
	if p.Body != nil && !Eval(p.Body, string(r.Body)) {
		return false
	}

	for name, m := range p.Headers {
		if !matchAny(m, r.Header.Values(name)) {
			return false
		}
	}

	if len(p.FormFields) > 0 {
		form := r.Form()
		for name, m := range p.FormFields {
			if !matchAny(m, form[name]) {
				return false
			}
		}
	}

	return true
}

// matchAny succeeds when any value under the name satisfies the matcher.
// A declared matcher with no values present never matches.
func matchAny(m *expectation.StringMatcher, values []string) bool {
	for _, v := range values {
		if Eval(m, v) {
			return true
		}
	}
	return false
}

// Eval applies a single string matcher to a value.
//
// matches uses RE2 partial-match semantics: the pattern need not anchor the
// whole input. Uncompilable patterns evaluate to no-match; they are rejected
// at registration time and cannot reach a stored expectation.
func Eval(m *expectation.StringMatcher, value string) bool {
	if m == nil {
		return true
	}
	switch m.Op {
	case expectation.MatcherEqualTo:
		return value == m.Value
	case expectation.MatcherSameString:
		return foldEqual(value, m.Value)
	case expectation.MatcherContains:
		return strings.Contains(value, m.Value)
	case expectation.MatcherMatches:
		re, err := regexp.Compile(m.Value)
		if err != nil {
			return false
		}
		return re.MatchString(value)
	default:
		return false
	}
}

// foldEqual compares two strings under Unicode case folding.
func foldEqual(a, b string) bool {
	if a == b {
		return true
	}
	folder := cases.Fold()
	return folder.String(a) == folder.String(b)
}
