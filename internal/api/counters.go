package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleListCounters returns every allocator with its last used id.
func (s *Server) handleListCounters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Counters(r.Context()))
}

// handleCounterLast returns the last allocated id of the named counter
// without consuming one. A counter that never allocated reports 0.
func (s *Server) handleCounterLast(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	counter, found, err := s.service.CounterLast(r.Context(), name)
	if err != nil {
		s.respond(w, nil, err)
		return
	}
	result := map[string]any{"name": counter.Name, "lastId": counter.LastID}
	if !found {
		result["allocated"] = false
	}
	writeOK(w, result)
}

// handleCounterNext allocates and returns the next id of the named
// counter.
func (s *Server) handleCounterNext(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	next, err := s.service.CounterNext(r.Context(), name)
	if err != nil {
		s.respond(w, nil, err)
		return
	}
	writeOK(w, map[string]any{"name": name, "nextId": next})
}
