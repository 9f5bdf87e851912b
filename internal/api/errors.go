package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/weftlab/domo-registry/internal/docstore"
	"github.com/weftlab/domo-registry/internal/registry"
)

// Response contract: every entity operation answers 200 with either the
// result under an "OK" key or a human-readable reason under an "ERR" key.
// List endpoints reply with a bare (possibly empty) array.

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeOK writes a success envelope.
func writeOK(w http.ResponseWriter, v any) {
	writeJSON(w, http.StatusOK, map[string]any{"OK": v})
}

// writeERR writes a failure envelope carrying the rejection reason.
func writeERR(w http.ResponseWriter, reason string) {
	writeJSON(w, http.StatusOK, map[string]any{"ERR": reason})
}

// respond maps an operation outcome to the envelope. Validation
// rejections surface verbatim; anything else is logged and reported
// generically.
func (s *Server) respond(w http.ResponseWriter, result any, err error) {
	if err == nil {
		writeOK(w, result)
		return
	}
	var rejection *registry.RejectionError
	if errors.As(err, &rejection) {
		writeERR(w, rejection.Reason)
		return
	}
	s.logger.Error("operation failed", "error", err)
	writeERR(w, "internal error")
}

// writeInternalError writes a 500 error response. Used by the recovery
// middleware, outside the OK/ERR envelope.
func writeInternalError(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusInternalServerError, map[string]any{"ERR": message})
}

// decodeBody reads the request payload as a partial document. An empty
// body is a valid empty update.
func decodeBody(r *http.Request) (docstore.Document, error) {
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return docstore.Document{}, nil
	}
	var doc docstore.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = docstore.Document{}
	}
	return doc, nil
}
