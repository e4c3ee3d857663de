package engine

import (
	"github.com/fivetide/phiremock-server/internal/matching"
	"github.com/fivetide/phiremock-server/pkg/expectation"
)

// ScenarioStates is the read surface winner selection needs from the
// scenario store.
type ScenarioStates interface {
	Get(name string) string
}

// SelectWinner picks the winning expectation for a request from a store
// snapshot, or nil when nothing matches.
//
// Candidates must satisfy every declared matcher and, when the expectation
// names a scenario with a state precondition, the scenario's current state.
// Among candidates the highest priority wins; equal priorities break by
// insertion order (the snapshot is insertion-ordered, oldest first), which
// makes selection deterministic under a fixed store state.
func SelectWinner(snapshot []*expectation.Expectation, req *matching.Request, states ScenarioStates) *expectation.Expectation {
	var winner *expectation.Expectation
	for _, e := range snapshot {
		if !eligible(e, req, states) {
			continue
		}
		if winner == nil || e.Priority > winner.Priority {
			winner = e
		}
	}
	return winner
}

func eligible(e *expectation.Expectation, req *matching.Request, states ScenarioStates) bool {
	if !matching.Matches(e.Request, req) {
		return false
	}
	if e.ScenarioName != nil && e.ScenarioStateIs != nil {
		// Unset scenarios read as Scenario.START, so a START precondition
		// matches scenarios that were never touched.
		if states.Get(*e.ScenarioName) != *e.ScenarioStateIs {
			return false
		}
	}
	return true
}
