package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jwebster45206/world-engine/internal/services"
)

// FeatureHandler serves /v1/features.
type FeatureHandler struct {
	service *services.LocationService
	logger  *slog.Logger
}

func NewFeatureHandler(service *services.LocationService, logger *slog.Logger) *FeatureHandler {
	return &FeatureHandler{
		service: service,
		logger:  logger,
	}
}

func (h *FeatureHandler) Routes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleRead)
}

func (h *FeatureHandler) handleList(w http.ResponseWriter, r *http.Request) {
	features, err := h.service.ListFeatures(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, features)
}

func (h *FeatureHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in services.FeatureInput
	if !decodeJSON(w, r, h.logger, &in) {
		return
	}
	f, err := h.service.CreateFeature(r.Context(), actorFrom(r), in)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, f)
}

func (h *FeatureHandler) handleRead(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, h.logger, chi.URLParam(r, "id"), "feature")
	if !ok {
		return
	}
	f, err := h.service.GetFeature(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, f)
}
