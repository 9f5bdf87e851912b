package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/weftlab/domo-registry/internal/registry"
)

// handleListEquipments returns every equipment, with zoneName resolved.
func (s *Server) handleListEquipments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.ListEquipments(r.Context()))
}

// handleGetEquipment returns the named equipment.
func (s *Server) handleGetEquipment(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	doc, err := s.service.GetEquipment(r.Context(), name)
	s.respond(w, doc, err)
}

// handleEquipmentsByClass returns the equipment of one class; no name
// selects equipment without a class.
func (s *Server) handleEquipmentsByClass(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	writeOK(w, s.service.EquipmentsByClass(r.Context(), name))
}

// handleEquipmentsByZone returns the equipment in one zone; no name
// selects equipment assigned to no zone.
func (s *Server) handleEquipmentsByZone(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	docs, err := s.service.EquipmentsByZone(r.Context(), name)
	s.respond(w, docs, err)
}

func (s *Server) handleSetEquipment(w http.ResponseWriter, r *http.Request) {
	s.setEquipment(w, r, registry.MergeReplace)
}

func (s *Server) handleAddEquipment(w http.ResponseWriter, r *http.Request) {
	s.setEquipment(w, r, registry.MergeAdd)
}

func (s *Server) setEquipment(w http.ResponseWriter, r *http.Request, mode registry.MergeMode) {
	name := chi.URLParam(r, "name")
	update, err := decodeBody(r)
	if err != nil {
		writeERR(w, "invalid JSON body")
		return
	}
	doc, err := s.service.SetEquipment(r.Context(), name, update, mode)
	s.respond(w, doc, err)
}

func (s *Server) handleSetEquipmentByClass(w http.ResponseWriter, r *http.Request) {
	s.setEquipmentByClass(w, r, registry.MergeReplace)
}

func (s *Server) handleAddEquipmentByClass(w http.ResponseWriter, r *http.Request) {
	s.setEquipmentByClass(w, r, registry.MergeAdd)
}

// setEquipmentByClass creates or updates the equipment identified by its
// (className, classId) pair.
func (s *Server) setEquipmentByClass(w http.ResponseWriter, r *http.Request, mode registry.MergeMode) {
	className := chi.URLParam(r, "name")
	classID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || classID == 0 {
		writeERR(w, "Empty class identifier, ignoring request")
		return
	}
	update, err := decodeBody(r)
	if err != nil {
		writeERR(w, "invalid JSON body")
		return
	}
	doc, err := s.service.SetEquipmentByClass(r.Context(), className, classID, update, mode)
	s.respond(w, doc, err)
}

// handleDeleteEquipment removes the named equipment.
func (s *Server) handleDeleteEquipment(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	msg, err := s.service.DeleteEquipment(r.Context(), name)
	s.respond(w, msg, err)
}
