package capture

import (
	"github.com/nasa-jpl/prudaq/generichttp"
	"github.com/nasa-jpl/prudaq/server"
)

// HTTPSession exposes a Session's status and a stop control over HTTP
type HTTPSession struct {
	s  *Session
	rt server.RouteTable
}

// NewHTTPSession builds the route table for s
func NewHTTPSession(s *Session) HTTPSession {
	h := HTTPSession{s: s, rt: server.RouteTable{}}
	h.rt[server.Get("/status")] = generichttp.GetJSON(func() (interface{}, error) {
		return s.Stats(), nil
	})
	h.rt[server.Get("/throughput")] = generichttp.GetFloat(func() (float64, error) {
		return s.Stats().Last.BytesPerSecond, nil
	})
	h.rt[server.Get("/bytes-read")] = generichttp.GetInt(func() (int64, error) {
		return int64(s.Stats().BytesRead), nil
	})
	h.rt[server.Get("/running")] = generichttp.GetBool(func() (bool, error) {
		return s.Stats().Running, nil
	})
	h.rt[server.Post("/stop")] = generichttp.Do(s.Stop)
	return h
}

// RT satisfies server.HTTPer
func (h HTTPSession) RT() server.RouteTable {
	return h.rt
}
