package engine

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/fivetide/phiremock-server/pkg/api/types"
	"github.com/fivetide/phiremock-server/pkg/expectation"
	"github.com/fivetide/phiremock-server/pkg/httputil"
	"github.com/fivetide/phiremock-server/pkg/logging"
)

// hopByHopHeaders are stripped from proxied requests and responses.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"TE",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Responder realizes a winning expectation into a concrete HTTP response:
// optional delay, then a static response or a proxied upstream call.
type Responder struct {
	client *http.Client
	log    *slog.Logger
}

// NewResponder creates a Responder whose proxy calls are bounded by
// proxyTimeout. The underlying client pools a small number of upstream
// connections.
func NewResponder(proxyTimeout time.Duration) *Responder {
	if proxyTimeout <= 0 {
		proxyTimeout = 30 * time.Second
	}
	return &Responder{
		client: &http.Client{
			Timeout: proxyTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        32,
				MaxIdleConnsPerHost: 8,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		log: logging.Nop(),
	}
}

// SetLogger sets the operational logger.
func (rb *Responder) SetLogger(log *slog.Logger) {
	if log != nil {
		rb.log = log
	}
}

// Respond emits the response for a winning expectation. body is the
// original request body, replayed upstream when proxying. Returns the
// status code written, or 0 when the client disconnected before anything
// was sent.
func (rb *Responder) Respond(w http.ResponseWriter, r *http.Request, exp *expectation.Expectation, body []byte) int {
	if delay := responseDelay(exp); delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			// Client went away during the delay; discard the response.
			return 0
		}
	}

	// A static response shadows proxyTo when both are present. A response
	// carrying only delayMillis does not count as static; its delay has
	// already been applied to the proxy call above.
	if exp.Response.Static() || exp.ProxyTo == nil {
		return rb.respondStatic(w, exp.Response)
	}
	return rb.respondProxy(w, r, *exp.ProxyTo, body)
}

// responseDelay returns the configured delay, if any.
func responseDelay(exp *expectation.Expectation) time.Duration {
	if exp.Response == nil {
		return 0
	}
	return time.Duration(exp.Response.DelayMillis) * time.Millisecond
}

// respondStatic writes the expectation's static response. The body file, if
// referenced, is read at send time; an unreadable file yields a diagnostic
// 500 and leaves the store untouched.
func (rb *Responder) respondStatic(w http.ResponseWriter, resp *expectation.Response) int {
	status := http.StatusOK
	var body []byte

	if resp != nil {
		if resp.StatusCode != 0 {
			status = resp.StatusCode
		}
		body = []byte(resp.Body)
		if resp.BodyFileName != "" {
			data, err := os.ReadFile(resp.BodyFileName)
			if err != nil {
				rb.log.Error("failed to read body file", "file", resp.BodyFileName, "error", err)
				httputil.WriteJSON(w, http.StatusInternalServerError,
					types.Error(fmt.Sprintf("failed to read body file %s: %v", resp.BodyFileName, err)))
				return http.StatusInternalServerError
			}
			body = data
		}
		for name, value := range resp.Headers {
			w.Header().Set(name, value)
		}
	}

	w.WriteHeader(status)
	if len(body) > 0 {
		_, _ = w.Write(body)
	}
	return status
}

// respondProxy forwards the original request to the target URL and mirrors
// the upstream status, headers, and body. A single attempt; timeouts and
// connection failures synthesize a diagnostic 500.
func (rb *Responder) respondProxy(w http.ResponseWriter, r *http.Request, target string, body []byte) int {
	out, err := http.NewRequestWithContext(r.Context(), r.Method, target, bytes.NewReader(body))
	if err != nil {
		rb.log.Warn("invalid proxy target", "target", target, "error", err)
		httputil.WriteJSON(w, http.StatusInternalServerError,
			types.Error(fmt.Sprintf("invalid proxy target %s: %v", target, err)))
		return http.StatusInternalServerError
	}

	copyHeaders(out.Header, r.Header)
	removeHopByHopHeaders(out.Header)
	// Host follows the proxy URL, not the incoming request.
	out.Host = out.URL.Host

	resp, err := rb.client.Do(out)
	if err != nil {
		rb.log.Warn("proxy request failed", "target", target, "error", err)
		httputil.WriteJSON(w, http.StatusInternalServerError,
			types.Error(fmt.Sprintf("proxying to %s failed: %v", target, err)))
		return http.StatusInternalServerError
	}
	defer func() { _ = resp.Body.Close() }()

	copyHeaders(w.Header(), resp.Header)
	removeHopByHopHeaders(w.Header())
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
	return resp.StatusCode
}

// copyHeaders copies headers from src to dst.
func copyHeaders(dst, src http.Header) {
	for key, values := range src {
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}

// removeHopByHopHeaders removes headers that must not cross the proxy.
func removeHopByHopHeaders(h http.Header) {
	for _, header := range hopByHopHeaders {
		h.Del(header)
	}
}
