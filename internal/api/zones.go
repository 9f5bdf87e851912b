package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/weftlab/domo-registry/internal/registry"
)

// handleListZones returns every zone, enriched with its parent's name.
func (s *Server) handleListZones(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.ListZones(r.Context()))
}

// handleGetZone returns the named zone.
func (s *Server) handleGetZone(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	doc, err := s.service.GetZone(r.Context(), name)
	s.respond(w, doc, err)
}

// handleZoneChildren returns the zones whose parent is the named zone,
// or the root zones when no name is given.
func (s *Server) handleZoneChildren(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	docs, err := s.service.ZoneChildren(r.Context(), name)
	s.respond(w, docs, err)
}

// handleSetZone creates or updates the named zone, replacing structured
// fields wholesale.
func (s *Server) handleSetZone(w http.ResponseWriter, r *http.Request) {
	s.setZone(w, r, registry.MergeReplace)
}

// handleAddZone creates or updates the named zone, merging structured
// fields additively.
func (s *Server) handleAddZone(w http.ResponseWriter, r *http.Request) {
	s.setZone(w, r, registry.MergeAdd)
}

func (s *Server) setZone(w http.ResponseWriter, r *http.Request, mode registry.MergeMode) {
	name := chi.URLParam(r, "name")
	update, err := decodeBody(r)
	if err != nil {
		writeERR(w, "invalid JSON body")
		return
	}
	doc, err := s.service.SetZone(r.Context(), name, update, mode)
	s.respond(w, doc, err)
}

// handleDeleteZone removes the named zone.
func (s *Server) handleDeleteZone(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	msg, err := s.service.DeleteZone(r.Context(), name)
	s.respond(w, msg, err)
}
