package server

import (
	"encoding/json"
	"go/types"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHumanPayload(t *testing.T) {
	cases := []struct {
		hp   HumanPayload
		want string
	}{
		{HumanPayload{T: types.Bool, Bool: true}, `{"bool":true}`},
		{HumanPayload{T: types.Float64, Float: 1.5}, `{"f64":1.5}`},
		{HumanPayload{T: types.Int64, Int: 1 << 40}, `{"int":1099511627776}`},
		{HumanPayload{T: types.String, String: "x"}, `{"str":"x"}`},
	}
	for _, c := range cases {
		w := httptest.NewRecorder()
		c.hp.EncodeAndRespond(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, c.want, w.Body.String())
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	}

	w := httptest.NewRecorder()
	HumanPayload{T: types.Complex128}.EncodeAndRespond(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRouteTableBind(t *testing.T) {
	rt := RouteTable{
		Get("/a"):  func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) },
		Post("/a"): func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusAccepted) },
	}
	assert.Equal(t, []string{"GET /a", "POST /a"}, rt.ListEndpoints())

	r := chi.NewRouter()
	rt.Bind(r)
	for method, code := range map[string]int{http.MethodGet: http.StatusTeapot, http.MethodPost: http.StatusAccepted, http.MethodPut: http.StatusMethodNotAllowed} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(method, "/a", nil))
		assert.Equal(t, code, w.Code, method)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/endpoints", nil))
	var eps []string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&eps))
	assert.Equal(t, rt.ListEndpoints(), eps)
}
