package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/weftlab/domo-registry/internal/registry"
)

// handleListCommands returns every command, with equipName resolved.
func (s *Server) handleListCommands(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.ListCommands(r.Context()))
}

// handleCommandsByEquipment returns the commands of one equipment id.
func (s *Server) handleCommandsByEquipment(w http.ResponseWriter, r *http.Request) {
	equipID, ok := pathID(w, r, "id", "Empty equipment identifier, ignoring request")
	if !ok {
		return
	}
	writeOK(w, s.service.CommandsByEquipment(r.Context(), equipID))
}

func (s *Server) handleSetCommand(w http.ResponseWriter, r *http.Request) {
	s.setCommand(w, r, registry.MergeReplace)
}

func (s *Server) handleAddCommand(w http.ResponseWriter, r *http.Request) {
	s.setCommand(w, r, registry.MergeAdd)
}

// setCommand updates an existing command by its id.
func (s *Server) setCommand(w http.ResponseWriter, r *http.Request, mode registry.MergeMode) {
	cmdID, ok := pathID(w, r, "id", "Empty command identifier, ignoring request")
	if !ok {
		return
	}
	update, err := decodeBody(r)
	if err != nil {
		writeERR(w, "invalid JSON body")
		return
	}
	doc, err := s.service.SetCommand(r.Context(), cmdID, update, mode)
	s.respond(w, doc, err)
}

func (s *Server) handleSetCommandByEquipment(w http.ResponseWriter, r *http.Request) {
	s.setCommandByEquipment(w, r, registry.MergeReplace)
}

func (s *Server) handleAddCommandByEquipment(w http.ResponseWriter, r *http.Request) {
	s.setCommandByEquipment(w, r, registry.MergeAdd)
}

// setCommandByEquipment creates or updates the command identified by its
// (equipId, classId) pair.
func (s *Server) setCommandByEquipment(w http.ResponseWriter, r *http.Request, mode registry.MergeMode) {
	equipID, ok := pathID(w, r, "id", "Empty equipment identifier, ignoring request")
	if !ok {
		return
	}
	classID, ok := pathID(w, r, "subid", "Empty command identifier, ignoring request")
	if !ok {
		return
	}
	update, err := decodeBody(r)
	if err != nil {
		writeERR(w, "invalid JSON body")
		return
	}
	doc, err := s.service.SetCommandByEquipment(r.Context(), equipID, classID, update, mode)
	s.respond(w, doc, err)
}

// handleDeleteCommand removes the command with the given id.
func (s *Server) handleDeleteCommand(w http.ResponseWriter, r *http.Request) {
	cmdID, ok := pathID(w, r, "id", "Empty command identifier, ignoring request")
	if !ok {
		return
	}
	msg, err := s.service.DeleteCommand(r.Context(), cmdID)
	s.respond(w, msg, err)
}

// pathID parses a numeric path parameter. A non-numeric or zero value
// answers the given ERR reason and reports false; no store access is
// attempted.
func pathID(w http.ResponseWriter, r *http.Request, param, reason string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id == 0 {
		writeERR(w, reason)
		return 0, false
	}
	return id, true
}
