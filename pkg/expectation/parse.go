package expectation

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidationError collects the reasons an expectation or pattern was
// rejected. The management API surfaces Details verbatim in its error
// envelope.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Details, "; ")
}

func invalid(details ...string) *ValidationError {
	return &ValidationError{Details: details}
}

// Parse decodes and validates a single expectation from its JSON wire form.
// Malformed JSON, unknown fields, malformed matchers, uncompilable regex
// patterns, and semantically incomplete expectations are all rejected; a
// rejected expectation is never stored.
func Parse(data []byte) (*Expectation, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, invalid("malformed JSON: " + err.Error())
	}

	full, _, err := schemas()
	if err != nil {
		return nil, fmt.Errorf("compiling expectation schema: %w", err)
	}
	if err := full.Validate(doc); err != nil {
		return nil, invalid(schemaDetails(err)...)
	}

	var e Expectation
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, invalid(err.Error())
	}
	if err := e.validate(); err != nil {
		return nil, err
	}
	return &e, nil
}

// ParsePattern decodes and validates a bare request pattern, as carried by
// the journal search endpoints. An empty body is a match-all pattern.
func ParsePattern(data []byte) (*RequestPattern, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return &RequestPattern{}, nil
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, invalid("malformed JSON: " + err.Error())
	}

	_, pattern, err := schemas()
	if err != nil {
		return nil, fmt.Errorf("compiling expectation schema: %w", err)
	}
	if err := pattern.Validate(doc); err != nil {
		return nil, invalid(schemaDetails(err)...)
	}

	var p RequestPattern
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, invalid(err.Error())
	}
	if err := validatePattern(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// validate applies the semantic rules the schema cannot express.
func (e *Expectation) validate() error {
	var details []string

	if e.ScenarioStateIs != nil && e.ScenarioName == nil {
		details = append(details, "scenarioStateIs requires scenarioName")
	}
	if e.NewScenarioState != nil && e.ScenarioName == nil {
		details = append(details, "newScenarioState requires scenarioName")
	}
	if e.Response == nil && e.ProxyTo == nil {
		details = append(details, "expectation must define a response or a proxyTo target")
	}
	if e.ProxyTo != nil {
		if u, err := url.Parse(*e.ProxyTo); err != nil || u.Scheme == "" || u.Host == "" {
			details = append(details, fmt.Sprintf("proxyTo %q is not an absolute URL", *e.ProxyTo))
		}
	}
	if e.Response != nil && e.Response.Body != "" && e.Response.BodyFileName != "" {
		details = append(details, "response cannot set both body and bodyFileName")
	}

	if err := validatePattern(e.Request); err != nil {
		var verr *ValidationError
		if ok := asValidationError(err, &verr); ok {
			details = append(details, verr.Details...)
		} else {
			details = append(details, err.Error())
		}
	}

	if len(details) > 0 {
		return invalid(details...)
	}
	return nil
}

// validatePattern compiles every regex matcher so uncompilable patterns are
// rejected up front and never reach match time.
func validatePattern(p *RequestPattern) error {
	if p == nil {
		return nil
	}
	var details []string

	check := func(where string, m *StringMatcher) {
		if m == nil || m.Op != MatcherMatches {
			return
		}
		if _, err := regexp.Compile(m.Value); err != nil {
			details = append(details, fmt.Sprintf("%s: invalid regex %q: %v", where, m.Value, err))
		}
	}

	check("method", p.Method)
	check("url", p.URL)
	check("body", p.Body)
	for name, m := range p.Headers {
		check("headers."+name, m)
	}
	for name, m := range p.FormFields {
		check("formFields."+name, m)
	}

	if len(details) > 0 {
		return invalid(details...)
	}
	return nil
}

func asValidationError(err error, target **ValidationError) bool {
	verr, ok := err.(*ValidationError)
	if ok {
		*target = verr
	}
	return ok
}

// schemaDetails flattens a jsonschema validation error into the leaf
// messages that actually explain the rejection.
func schemaDetails(err error) []string {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{err.Error()}
	}

	var details []string
	var walk func(v *jsonschema.ValidationError)
	walk = func(v *jsonschema.ValidationError) {
		if len(v.Causes) == 0 {
			loc := v.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			details = append(details, loc+": "+v.Message)
			return
		}
		for _, cause := range v.Causes {
			walk(cause)
		}
	}
	walk(verr)
	return details
}
