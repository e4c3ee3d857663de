// Package admin implements the management API served under the reserved
// /__phiremock prefix: expectation CRUD, scenario control, journal queries,
// and full reset. It has no authentication by design; a token-bucket rate
// limit protects it from runaway test loops.
package admin

import (
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/fivetide/phiremock-server/internal/storage"
	"github.com/fivetide/phiremock-server/pkg/api/types"
	"github.com/fivetide/phiremock-server/pkg/httputil"
	"github.com/fivetide/phiremock-server/pkg/logging"
	"github.com/fivetide/phiremock-server/pkg/requestlog"
	"github.com/fivetide/phiremock-server/pkg/scenario"
)

// Prefix is the reserved management URL prefix.
const Prefix = "/__phiremock"

// maxRequestBodySize caps management request bodies (2MB).
const maxRequestBodySize = 2 << 20

// Default rate limit for the management surface.
const (
	DefaultRateLimit float64 = 100
	DefaultBurstSize int     = 200
)

// Handler serves the management API. It mutates the expectation store,
// scenario store, and journal while mock traffic is being served; every
// mutation completes before its HTTP response is written, so subsequent
// mock requests observe it.
type Handler struct {
	store     storage.ExpectationStore
	scenarios *scenario.Store
	journal   requestlog.Journal
	log       *slog.Logger
	limiter   *rate.Limiter
	mux       *http.ServeMux
}

// Option is a functional option for configuring a Handler.
type Option func(*Handler)

// WithRateLimit overrides the default management rate limit.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(h *Handler) {
		if rps <= 0 {
			h.limiter = nil
			return
		}
		h.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewHandler creates the management handler over the given stores.
func NewHandler(store storage.ExpectationStore, scenarios *scenario.Store, journal requestlog.Journal, opts ...Option) *Handler {
	h := &Handler{
		store:     store,
		scenarios: scenarios,
		journal:   journal,
		log:       logging.Nop(),
		limiter:   rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultBurstSize),
	}
	for _, opt := range opts {
		opt(h)
	}

	mux := http.NewServeMux()
	h.registerRoutes(mux)
	h.mux = mux
	return h
}

// SetLogger sets the operational logger.
func (h *Handler) SetLogger(log *slog.Logger) {
	if log != nil {
		h.log = log
	}
}

func (h *Handler) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET "+Prefix+"/expectations", h.handleListExpectations)
	mux.HandleFunc("POST "+Prefix+"/expectations", h.handleCreateExpectation)
	mux.HandleFunc("DELETE "+Prefix+"/expectations", h.handleDeleteExpectations)

	mux.HandleFunc("GET "+Prefix+"/scenarios", h.handleListScenarios)
	mux.HandleFunc("PUT "+Prefix+"/scenarios", h.handleSetScenario)
	mux.HandleFunc("DELETE "+Prefix+"/scenarios", h.handleResetScenarios)

	mux.HandleFunc("GET "+Prefix+"/executions", h.handleSearchExecutions)
	mux.HandleFunc("POST "+Prefix+"/executions/count", h.handleCountExecutions)
	mux.HandleFunc("DELETE "+Prefix+"/executions", h.handleResetExecutions)

	mux.HandleFunc("POST "+Prefix+"/reset", h.handleResetAll)

	// Unknown management paths get the envelope, not the stdlib 404 page.
	mux.HandleFunc(Prefix+"/", h.handleUnknown)
	mux.HandleFunc(Prefix, h.handleUnknown)
}

// ServeHTTP implements the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil && !h.limiter.Allow() {
		httputil.WriteJSON(w, http.StatusTooManyRequests, types.Error("management API rate limit exceeded"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleUnknown(w http.ResponseWriter, r *http.Request) {
	h.log.Debug("unknown management endpoint", "method", r.Method, "path", r.URL.Path)
	httputil.WriteJSON(w, http.StatusNotFound, types.Error("unknown management endpoint "+r.URL.Path))
}
