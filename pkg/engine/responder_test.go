package engine

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetide/phiremock-server/pkg/expectation"
)

func staticExpectation(status int, body string) *expectation.Expectation {
	return &expectation.Expectation{
		Request:  &expectation.RequestPattern{},
		Response: &expectation.Response{StatusCode: status, Body: body},
	}
}

func TestRespond_Static(t *testing.T) {
	rb := NewResponder(0)
	exp := staticExpectation(201, "created")
	exp.Response.Headers = map[string]string{"X-Custom": "yes"}

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/x", nil)
	status := rb.Respond(w, r, exp, nil)

	assert.Equal(t, 201, status)
	assert.Equal(t, 201, w.Code)
	assert.Equal(t, "created", w.Body.String())
	assert.Equal(t, "yes", w.Header().Get("X-Custom"))
}

func TestRespond_StatusDefaultsTo200(t *testing.T) {
	rb := NewResponder(0)
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/x", nil)

	status := rb.Respond(w, r, staticExpectation(0, "hi"), nil)
	assert.Equal(t, 200, status)
	assert.Equal(t, "hi", w.Body.String())
}

func TestRespond_DelayAppliedBeforeSend(t *testing.T) {
	rb := NewResponder(0)
	exp := staticExpectation(200, "slow")
	exp.Response.DelayMillis = 200

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/x", nil)

	start := time.Now()
	rb.Respond(w, r, exp, nil)
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond)
	assert.Equal(t, "slow", w.Body.String())
}

func TestRespond_BodyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "body.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"from":"file"}`), 0644))

	rb := NewResponder(0)
	exp := &expectation.Expectation{
		Request:  &expectation.RequestPattern{},
		Response: &expectation.Response{BodyFileName: path},
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/x", nil)
	status := rb.Respond(w, r, exp, nil)

	assert.Equal(t, 200, status)
	assert.Equal(t, `{"from":"file"}`, w.Body.String())
}

func TestRespond_MissingBodyFile(t *testing.T) {
	rb := NewResponder(0)
	exp := &expectation.Expectation{
		Request:  &expectation.RequestPattern{},
		Response: &expectation.Response{BodyFileName: "/nonexistent/body.json"},
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/x", nil)
	status := rb.Respond(w, r, exp, nil)

	assert.Equal(t, 500, status)
	var envelope map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "ERROR", envelope["result"])
}

func TestRespond_Proxy(t *testing.T) {
	var upstreamReq *http.Request
	var upstreamBody []byte
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamReq = r.Clone(r.Context())
		upstreamBody, _ = io.ReadAll(r.Body)
		w.Header().Set("X-Upstream", "yes")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("from upstream"))
	}))
	defer upstream.Close()

	rb := NewResponder(5 * time.Second)
	target := upstream.URL + "/base/"
	exp := &expectation.Expectation{
		Request: &expectation.RequestPattern{},
		ProxyTo: &target,
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/p", strings.NewReader("payload"))
	r.Header.Set("X-Original", "kept")
	r.Header.Set("Connection", "keep-alive")
	status := rb.Respond(w, r, exp, []byte("payload"))

	// Upstream saw the original method, body, and non-hop-by-hop headers.
	require.NotNil(t, upstreamReq)
	assert.Equal(t, "POST", upstreamReq.Method)
	assert.Equal(t, "/base/", upstreamReq.URL.Path)
	assert.Equal(t, "payload", string(upstreamBody))
	assert.Equal(t, "kept", upstreamReq.Header.Get("X-Original"))

	// Response mirrors upstream status, headers, and body.
	assert.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "from upstream", w.Body.String())
	assert.Equal(t, "yes", w.Header().Get("X-Upstream"))
}

func TestRespond_ProxyFailure(t *testing.T) {
	rb := NewResponder(time.Second)
	target := "http://127.0.0.1:1/unreachable"
	exp := &expectation.Expectation{
		Request: &expectation.RequestPattern{},
		ProxyTo: &target,
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/p", nil)
	status := rb.Respond(w, r, exp, nil)

	assert.Equal(t, 500, status)
	var envelope map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "ERROR", envelope["result"])
}

func TestRespond_ProxyTimeout(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer upstream.Close()

	rb := NewResponder(50 * time.Millisecond)
	exp := &expectation.Expectation{
		Request: &expectation.RequestPattern{},
		ProxyTo: &upstream.URL,
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/p", nil)
	status := rb.Respond(w, r, exp, nil)

	assert.Equal(t, 500, status)
}

func TestRespond_StaticWinsOverProxy(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("proxy target must not be called when a static response is present")
	}))
	defer upstream.Close()

	rb := NewResponder(time.Second)
	exp := staticExpectation(200, "static wins")
	exp.ProxyTo = &upstream.URL

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/x", nil)
	status := rb.Respond(w, r, exp, nil)

	assert.Equal(t, 200, status)
	assert.Equal(t, "static wins", w.Body.String())
}

func TestRespond_DelayOnlyResponseStillProxies(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("proxied"))
	}))
	defer upstream.Close()

	rb := NewResponder(time.Second)
	exp := &expectation.Expectation{
		Request:  &expectation.RequestPattern{},
		Response: &expectation.Response{DelayMillis: 50},
		ProxyTo:  &upstream.URL,
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/p", nil)

	start := time.Now()
	status := rb.Respond(w, r, exp, nil)

	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, 200, status)
	assert.Equal(t, "proxied", w.Body.String())
}
