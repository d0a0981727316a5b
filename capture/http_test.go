package capture

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nasa-jpl/prudaq/pru"
	"github.com/nasa-jpl/prudaq/server/middleware/locker"
)

func router(s *Session) (http.Handler, *locker.Locker) {
	h := NewHTTPSession(s)
	l := locker.New()
	locker.Inject(h, l)
	r := chi.NewRouter()
	r.Use(l.Check)
	h.RT().Bind(r)
	return r, l
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
	return w
}

func TestHTTPBeforeRun(t *testing.T) {
	s := NewSession(&pru.Sim{}, &bytes.Buffer{}, source(t, true, 0, 0, 1), Options{})
	h, _ := router(s)

	w := do(h, http.MethodGet, "/running", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"bool": false}`, w.Body.String())

	w = do(h, http.MethodPost, "/stop", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(h, http.MethodGet, "/endpoints", "")
	var eps []string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&eps))
	assert.Contains(t, eps, "POST /stop")
	assert.Contains(t, eps, "GET /status")
	assert.Contains(t, eps, "POST /lock")
}

func TestHTTPStopHonoursLock(t *testing.T) {
	s, _, _, done := startManual(t)
	h, l := router(s)

	w := do(h, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	var st Stats
	require.NoError(t, json.NewDecoder(w.Body).Decode(&st))
	assert.True(t, st.Running)

	w = do(h, http.MethodGet, "/bytes-read", "")
	assert.JSONEq(t, `{"int": 0}`, w.Body.String())
	w = do(h, http.MethodGet, "/throughput", "")
	assert.JSONEq(t, `{"f64": 0}`, w.Body.String())

	w = do(h, http.MethodPost, "/lock", `{"bool": true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, l.Locked())
	w = do(h, http.MethodPost, "/stop", "")
	assert.Equal(t, http.StatusLocked, w.Code)
	w = do(h, http.MethodGet, "/running", "")
	assert.JSONEq(t, `{"bool": true}`, w.Body.String(), "reads pass a locked server")

	do(h, http.MethodPost, "/lock", `{"bool": false}`)
	w = do(h, http.MethodPost, "/stop", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, <-done)
}
