package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/jwebster45206/world-engine/internal/logger"
	"github.com/jwebster45206/world-engine/internal/services"
	"github.com/jwebster45206/world-engine/pkg/world"
)

const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorName = "X-Actor-Name"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// actorFrom identifies the user behind a request. Requests without an actor
// header act as the system.
func actorFrom(r *http.Request) world.Actor {
	id := strings.TrimSpace(r.Header.Get(HeaderActorID))
	if id == "" {
		return world.SystemActor
	}
	name := strings.TrimSpace(r.Header.Get(HeaderActorName))
	if name == "" {
		name = id
	}
	return world.Actor{ID: id, Name: name}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	writeJSON(w, logger, status, ErrorResponse{Error: msg})
}

// writeServiceError maps service errors onto HTTP statuses. Client errors
// carry the service message; anything unexpected is logged and hidden.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status := statusFor(err)
	log = logger.WithActor(logger.WithRequestID(log, chimw.GetReqID(r.Context())), actorFrom(r))
	if status == http.StatusInternalServerError {
		logger.WithError(log, err).Error("Request failed", "method", r.Method, "path", r.URL.Path)
		writeError(w, log, status, "Internal server error")
		return
	}
	log.Debug("Request rejected", "error", err, "status", status)
	writeError(w, log, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrLocationNotFound), errors.Is(err, services.ErrFeatureNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrLocked):
		return http.StatusLocked
	case errors.Is(err, services.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidLocation), errors.Is(err, services.ErrInvalidFeature):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrHistoryUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a request body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, logger *slog.Logger, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		logger.Warn("Invalid JSON in request body", "error", err, "path", r.URL.Path)
		writeError(w, logger, http.StatusBadRequest, "Invalid JSON in request body")
		return false
	}
	return true
}

func parseID(w http.ResponseWriter, logger *slog.Logger, raw, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		logger.Warn("Invalid ID", "id", raw, "kind", what, "error", err)
		writeError(w, logger, http.StatusBadRequest, "Invalid "+what+" ID format")
		return uuid.Nil, false
	}
	return id, true
}
