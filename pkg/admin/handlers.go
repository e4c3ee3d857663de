package admin

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"

	"github.com/fivetide/phiremock-server/pkg/api/types"
	"github.com/fivetide/phiremock-server/pkg/expectation"
	"github.com/fivetide/phiremock-server/pkg/httputil"
)

// scenarioState is the wire shape of a scenario list element and of the
// PUT /scenarios body.
type scenarioState struct {
	Name  string `json:"name,omitempty"`
	State string `json:"state,omitempty"`

	// PUT body field names.
	ScenarioName  string `json:"scenarioName,omitempty"`
	ScenarioState string `json:"scenarioState,omitempty"`
}

// deleteExpectationRequest is the optional body of DELETE /expectations.
type deleteExpectationRequest struct {
	ID string `json:"id"`
}

// --- Expectations ---

func (h *Handler) handleListExpectations(w http.ResponseWriter, _ *http.Request) {
	list := h.store.List()
	if list == nil {
		list = []*expectation.Expectation{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleCreateExpectation(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		return
	}

	e, err := expectation.Parse(body)
	if err != nil {
		h.log.Info("rejected expectation", "error", err)
		writeValidationError(w, err)
		return
	}

	id := h.store.Add(e)
	h.log.Info("expectation registered", "id", id)
	writeJSON(w, http.StatusCreated, types.OKWithID(id))
}

// handleDeleteExpectations resets the store, or deletes a single
// expectation when the body carries an id.
func (h *Handler) handleDeleteExpectations(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		return
	}

	if len(bytes.TrimSpace(body)) == 0 {
		h.store.Reset()
		h.log.Info("expectations reset")
		writeJSON(w, http.StatusOK, types.OK())
		return
	}

	var req deleteExpectationRequest
	if err := decodeStrict(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed delete request: "+err.Error())
		return
	}
	if req.ID == "" {
		h.store.Reset()
		h.log.Info("expectations reset")
		writeJSON(w, http.StatusOK, types.OK())
		return
	}

	if !h.store.Delete(req.ID) {
		h.log.Debug("delete of absent expectation", "id", req.ID)
		writeError(w, http.StatusNotFound, "expectation "+req.ID+" not found")
		return
	}
	h.log.Info("expectation deleted", "id", req.ID)
	writeJSON(w, http.StatusOK, types.OK())
}

// --- Scenarios ---

func (h *Handler) handleListScenarios(w http.ResponseWriter, _ *http.Request) {
	snapshot := h.scenarios.Snapshot()
	list := make([]scenarioState, 0, len(snapshot))
	for name, state := range snapshot {
		list = append(list, scenarioState{Name: name, State: state})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleSetScenario(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		return
	}

	var req scenarioState
	if err := decodeStrict(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed scenario request: "+err.Error())
		return
	}
	if req.ScenarioName == "" {
		writeError(w, http.StatusBadRequest, "scenarioName is required")
		return
	}
	if req.ScenarioState == "" {
		writeError(w, http.StatusBadRequest, "scenarioState is required")
		return
	}

	h.scenarios.Set(req.ScenarioName, req.ScenarioState)
	h.log.Info("scenario forced", "scenario", req.ScenarioName, "state", req.ScenarioState)
	writeJSON(w, http.StatusOK, types.OK())
}

func (h *Handler) handleResetScenarios(w http.ResponseWriter, _ *http.Request) {
	h.scenarios.ResetAll()
	h.log.Info("scenarios reset")
	writeJSON(w, http.StatusOK, types.OK())
}

// --- Executions (journal) ---

func (h *Handler) handleSearchExecutions(w http.ResponseWriter, r *http.Request) {
	pattern, ok := h.readPattern(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.journal.Search(pattern))
}

func (h *Handler) handleCountExecutions(w http.ResponseWriter, r *http.Request) {
	pattern, ok := h.readPattern(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, types.OKWithCount(h.journal.Count(pattern)))
}

func (h *Handler) handleResetExecutions(w http.ResponseWriter, _ *http.Request) {
	h.journal.Reset()
	h.log.Info("journal reset")
	writeJSON(w, http.StatusOK, types.OK())
}

// --- Global reset ---

func (h *Handler) handleResetAll(w http.ResponseWriter, _ *http.Request) {
	h.store.Reset()
	h.scenarios.ResetAll()
	h.journal.Reset()
	h.log.Info("expectations, scenarios, and journal reset")
	writeJSON(w, http.StatusOK, types.OK())
}

// --- Helpers ---

// readPattern parses the request-pattern body shared by the executions
// endpoints. An empty body is a match-all pattern.
func (h *Handler) readPattern(w http.ResponseWriter, r *http.Request) (*expectation.RequestPattern, bool) {
	body, err := readBody(w, r)
	if err != nil {
		return nil, false
	}
	pattern, err := expectation.ParsePattern(body)
	if err != nil {
		h.log.Info("rejected journal pattern", "error", err)
		writeValidationError(w, err)
		return nil, false
	}
	return pattern, true
}

// readBody reads the capped request body, writing the 413 envelope itself
// when the cap is exceeded.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, err
		}
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return nil, err
	}
	return body, nil
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeValidationError(w http.ResponseWriter, err error) {
	var verr *expectation.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, verr.Details...)
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	httputil.WriteJSON(w, status, v)
}

func writeError(w http.ResponseWriter, status int, details ...string) {
	httputil.WriteJSON(w, status, types.Error(details...))
}
