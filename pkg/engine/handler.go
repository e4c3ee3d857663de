// Core HTTP request dispatcher for the mock engine.

package engine

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fivetide/phiremock-server/internal/matching"
	"github.com/fivetide/phiremock-server/internal/storage"
	"github.com/fivetide/phiremock-server/pkg/api/types"
	"github.com/fivetide/phiremock-server/pkg/httputil"
	"github.com/fivetide/phiremock-server/pkg/logging"
	"github.com/fivetide/phiremock-server/pkg/requestlog"
	"github.com/fivetide/phiremock-server/pkg/scenario"
)

// ManagementPrefix is the reserved URL prefix. Requests whose path begins
// with it are management requests and are never journaled or matched.
const ManagementPrefix = "/__phiremock"

// MaxRequestBodySize is the maximum allowed mock request body (10MB).
// This prevents denial-of-service via oversized request bodies.
const MaxRequestBodySize = 10 << 20

// Handler dispatches every incoming request: management traffic to the
// management handler, everything else through journal, matcher, and
// responder.
type Handler struct {
	store     storage.ExpectationStore
	scenarios *scenario.Store
	journal   requestlog.Journal
	admin     http.Handler
	responder *Responder
	log       *slog.Logger
}

// NewHandler creates a dispatcher over the given stores. admin serves the
// reserved prefix.
func NewHandler(store storage.ExpectationStore, scenarios *scenario.Store, journal requestlog.Journal, admin http.Handler, responder *Responder) *Handler {
	return &Handler{
		store:     store,
		scenarios: scenarios,
		journal:   journal,
		admin:     admin,
		responder: responder,
		log:       logging.Nop(),
	}
}

// SetLogger sets the operational logger for the dispatcher.
func (h *Handler) SetLogger(log *slog.Logger) {
	if log != nil {
		h.log = log
	}
}

// ServeHTTP implements the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			h.log.Error("panic serving request", "method", r.Method, "path", r.URL.Path, "panic", rec)
			// Abort the connection without taking the server down.
			panic(http.ErrAbortHandler)
		}
	}()

	if strings.HasPrefix(r.URL.Path, ManagementPrefix) {
		h.admin.ServeHTTP(w, r)
		return
	}

	receivedAt := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.log.Warn("request body too large", "path", r.URL.Path, "limit", MaxRequestBodySize)
			httputil.WriteJSON(w, http.StatusRequestEntityTooLarge,
				types.Error("request body exceeds maximum allowed size"))
			return
		}
		h.log.Warn("failed to read request body", "path", r.URL.Path, "error", err)
	}

	req := matching.FromHTTP(r, body)
	h.journal.Append(requestlog.FromRequest(req, receivedAt))

	winner := SelectWinner(h.store.List(), req, h.scenarios)
	if winner == nil {
		h.log.Debug("no expectation matched", "method", r.Method, "path", r.URL.Path)
		httputil.WriteJSON(w, http.StatusNotFound, types.Error("No expectation matched"))
		return
	}

	// Transition the scenario immediately after winner selection so any
	// match started after this point observes the new state, even while
	// this response is still being delayed or proxied.
	if winner.ScenarioName != nil && winner.NewScenarioState != nil {
		h.scenarios.Set(*winner.ScenarioName, *winner.NewScenarioState)
	}

	h.log.Debug("request matched", "method", r.Method, "path", r.URL.Path, "expectation_id", winner.ID)
	h.responder.Respond(w, r, winner, body)
}
