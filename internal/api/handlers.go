package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/tailorline/settlement-api/internal/models"
	"github.com/tailorline/settlement-api/pkg/errors"
)

// Actor identity headers. The gateway in front of this service
// authenticates the caller and forwards these.
const (
	headerActorID   = "X-Actor-ID"
	headerActorRole = "X-Actor-Role"
)

type ApiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Health represents the health check response
type Health struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// healthCheckHandler handles the health check endpoint
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	health := Health{
		Status:    "ok",
		Version:   "0.1.0",
		Timestamp: time.Now().Format(time.RFC3339),
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    health,
	})
}

// actorFromRequest reads the caller's identity from the request headers
func (s *Server) actorFromRequest(r *http.Request) (models.Actor, error) {
	actor := models.Actor{
		ID:   r.Header.Get(headerActorID),
		Role: models.Role(r.Header.Get(headerActorRole)),
	}

	if actor.ID == "" {
		return models.Actor{}, errors.NewUnauthorizedError("missing X-Actor-ID header")
	}

	if !actor.Role.Valid() {
		return models.Actor{}, errors.NewUnauthorizedError("missing or invalid X-Actor-Role header")
	}

	return actor, nil
}

// respondWithAppError maps a service error onto its HTTP status
func (s *Server) respondWithAppError(w http.ResponseWriter, err error) {
	s.respondWithError(w, errors.StatusCode(err), err.Error())
}

// respondWithError sends a JSON response with an error message
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, ApiResponse{
		Success: false,
		Error:   message,
	})
}

// respondWithJSON sends a JSON response
func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)

	if err != nil {
		s.logger.Error("Failed to marshal response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
