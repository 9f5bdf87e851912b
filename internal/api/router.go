package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Zones
		r.Get("/zones", s.handleListZones)
		r.Route("/zone", func(r chi.Router) {
			r.Get("/name/{name}", s.handleGetZone)
			r.Get("/parent", s.handleZoneChildren)
			r.Get("/parent/{name}", s.handleZoneChildren)
			r.Put("/{name}/set", s.handleSetZone)
			r.Put("/{name}/add", s.handleAddZone)
			r.Delete("/{name}", s.handleDeleteZone)
		})

		// Equipment
		r.Get("/equipments", s.handleListEquipments)
		r.Route("/equipment", func(r chi.Router) {
			r.Get("/name/{name}", s.handleGetEquipment)
			r.Get("/class", s.handleEquipmentsByClass)
			r.Get("/class/{name}", s.handleEquipmentsByClass)
			r.Get("/zone", s.handleEquipmentsByZone)
			r.Get("/zone/{name}", s.handleEquipmentsByZone)
			r.Put("/name/{name}/set", s.handleSetEquipment)
			r.Put("/name/{name}/add", s.handleAddEquipment)
			r.Put("/class/{name}/{id}/set", s.handleSetEquipmentByClass)
			r.Put("/class/{name}/{id}/add", s.handleAddEquipmentByClass)
			r.Delete("/{name}", s.handleDeleteEquipment)
		})

		// Commands
		r.Get("/commands", s.handleListCommands)
		r.Get("/commands/equipment/{id}", s.handleCommandsByEquipment)
		r.Route("/command", func(r chi.Router) {
			r.Put("/{id}/set", s.handleSetCommand)
			r.Put("/{id}/add", s.handleAddCommand)
			r.Put("/equipment/{id}/{subid}/set", s.handleSetCommandByEquipment)
			r.Put("/equipment/{id}/{subid}/add", s.handleAddCommandByEquipment)
			r.Delete("/{id}", s.handleDeleteCommand)
		})

		// Counters
		r.Get("/counters", s.handleListCounters)
		r.Get("/counter/{name}", s.handleCounterLast)
		r.Get("/counter/{name}/next", s.handleCounterNext)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
