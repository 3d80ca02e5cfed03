// Package fmptest provides an in-process fake of the Financial Modeling Prep API for tests.
package fmptest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/skosovsky/finagent/fmp"
)

// APIKey is the key the fake expects on every request.
const APIKey = "test-key"

type route struct {
	status int
	body   []byte
}

// Server serves canned responses keyed by path, or by path plus query.
// Unknown routes answer 200 with an empty array, which is how FMP reports unknown symbols.
type Server struct {
	*httptest.Server

	mu     sync.Mutex
	routes map[string]route
	hits   map[string]int
}

// New starts a Server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		routes: make(map[string]route),
		hits:   make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Handle registers a raw response. key is a path ("/profile/AAPL") or a path with
// an encoded query without apikey ("/stock-screener?limit=5&sector=Technology").
func (s *Server) Handle(key string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[key] = route{status: status, body: []byte(body)}
}

// JSON registers v, encoded as JSON, with status 200.
func (s *Server) JSON(key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[key] = route{status: http.StatusOK, body: b}
}

// Hits returns how many requests reached path (query ignored).
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// Client returns an fmp.Client pointed at the fake.
func (s *Server) Client(t testing.TB) *fmp.Client {
	t.Helper()
	c, err := fmp.New(APIKey, fmp.WithBaseURL(s.URL), fmp.WithHTTPClient(s.Server.Client()))
	if err != nil {
		t.Fatalf("fmptest: new client: %v", err)
	}
	return c
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("apikey") != APIKey {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"Error Message":"Invalid API KEY."}`))
		return
	}
	q.Del("apikey")

	s.mu.Lock()
	s.hits[r.URL.Path]++
	rt, ok := s.routes[r.URL.Path+"?"+q.Encode()]
	if !ok {
		rt, ok = s.routes[r.URL.Path]
	}
	s.mu.Unlock()
	if !ok {
		rt = route{status: http.StatusOK, body: []byte("[]")}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rt.status)
	_, _ = w.Write(rt.body)
}
