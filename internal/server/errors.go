package server

import (
	"encoding/json"
	"net/http"

	apperrors "mediagate/pkg/errors"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers with {"detail": ...}. Server-side failures are logged
// with their cause; the cause never reaches the caller.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.StatusCode(err)
	if status >= http.StatusInternalServerError {
		s.logger.WithContext(r.Context()).WithError(err).WarnWithFields("Request failed", map[string]interface{}{
			"path":   r.URL.Path,
			"status": status,
		})
	}
	writeJSON(w, status, errorResponse{Detail: apperrors.Detail(err)})
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, apperrors.NotFound("Not Found"))
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Detail: "Method Not Allowed"})
}
