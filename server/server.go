// Package server contains misc server utilities.
package server

import (
	"encoding/json"
	"fmt"
	"go/types"
	"net/http"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi"
)

// MethodPath is the key of a route: an HTTP method and a chi pattern
type MethodPath struct {
	Method string
	Path   string
}

// Get is shorthand for a GET route on path
func Get(path string) MethodPath { return MethodPath{Method: http.MethodGet, Path: path} }

// Post is shorthand for a POST route on path
func Post(path string) MethodPath { return MethodPath{Method: http.MethodPost, Path: path} }

// RouteTable maps URL endpoints to handlers
type RouteTable map[MethodPath]http.HandlerFunc

// ListEndpoints lists the endpoints in a RouteTable as "METHOD path", sorted
func (rt RouteTable) ListEndpoints() []string {
	routes := make([]string, 0, len(rt))
	for k := range rt {
		routes = append(routes, k.Method+" "+k.Path)
	}
	sort.Strings(routes)
	return routes
}

// Bind binds every route on r, plus GET /endpoints listing them
func (rt RouteTable) Bind(r chi.Router) {
	for k, h := range rt {
		r.MethodFunc(k.Method, k.Path, h)
	}
	r.Get("/endpoints", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		err := json.NewEncoder(w).Encode(rt.ListEndpoints())
		if err != nil {
			fstr := fmt.Sprintf("error encoding list of routes data to json %q", err)
			log.Error(fstr)
			http.Error(w, fstr, http.StatusInternalServerError)
		}
	})
}

// HTTPer is something that exposes a RouteTable
type HTTPer interface {
	RT() RouteTable
}

// BoolT is a struct with a single Bool field
type BoolT struct {
	Bool bool `json:"bool"`
}

// FloatT is a struct with a single F64 field
type FloatT struct {
	F64 float64 `json:"f64"`
}

// IntT is a struct with a single Int field
type IntT struct {
	Int int64 `json:"int"`
}

// StrT is a struct with a single Str field
type StrT struct {
	Str string `json:"str"`
}

// HumanPayload is a struct containing the basic types of a single value that
// gets encoded as one of the *T types above, chosen by T
type HumanPayload struct {
	Bool   bool
	Float  float64
	Int    int64
	String string

	// T is the kind of value held
	T types.BasicKind
}

// EncodeAndRespond writes the payload as JSON to w
func (hp HumanPayload) EncodeAndRespond(w http.ResponseWriter, r *http.Request) {
	var v interface{}
	switch hp.T {
	case types.Bool:
		v = BoolT{hp.Bool}
	case types.Float64:
		v = FloatT{hp.Float}
	case types.Int, types.Int64:
		v = IntT{hp.Int}
	case types.String:
		v = StrT{hp.String}
	default:
		http.Error(w, fmt.Sprintf("unsupported payload kind %d", hp.T), http.StatusInternalServerError)
		return
	}
	WriteJSON(w, v)
}

// WriteJSON writes v to w as JSON with a 200 status
func WriteJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("encoding response", "err", err)
	}
}
