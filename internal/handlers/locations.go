package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jwebster45206/world-engine/internal/services"
)

// LocationHandler serves the location endpoints:
//
//	GET    /v1/locations
//	POST   /v1/locations
//	GET    /v1/locations/{id}
//	PUT    /v1/locations/{id}
//	DELETE /v1/locations/{id}
//	GET    /v1/locations/{id}/exits/validate?target={targetID}
//	GET    /v1/locations/{id}/history
type LocationHandler struct {
	service *services.LocationService
	logger  *slog.Logger
}

func NewLocationHandler(service *services.LocationService, logger *slog.Logger) *LocationHandler {
	return &LocationHandler{
		service: service,
		logger:  logger,
	}
}

func (h *LocationHandler) Routes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.handleRead)
		r.Put("/", h.handleUpdate)
		r.Delete("/", h.handleDelete)
		r.Get("/exits/validate", h.handleValidateExit)
		r.Get("/history", h.handleHistory)
	})
}

func (h *LocationHandler) handleList(w http.ResponseWriter, r *http.Request) {
	locs, err := h.service.ListLocations(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, locs)
}

func (h *LocationHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in services.LocationInput
	if !decodeJSON(w, r, h.logger, &in) {
		return
	}
	change, err := h.service.CreateLocation(r.Context(), actorFrom(r), in)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, change)
}

func (h *LocationHandler) handleRead(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, h.logger, chi.URLParam(r, "id"), "location")
	if !ok {
		return
	}
	loc, err := h.service.GetLocation(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, loc)
}

func (h *LocationHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, h.logger, chi.URLParam(r, "id"), "location")
	if !ok {
		return
	}
	var in services.LocationInput
	if !decodeJSON(w, r, h.logger, &in) {
		return
	}
	if in.Coordinates != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Coordinates are assigned by the engine and cannot be edited")
		return
	}
	change, err := h.service.UpdateLocation(r.Context(), actorFrom(r), id, in)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, change)
}

func (h *LocationHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, h.logger, chi.URLParam(r, "id"), "location")
	if !ok {
		return
	}
	if err := h.service.DeleteLocation(r.Context(), actorFrom(r), id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LocationHandler) handleValidateExit(w http.ResponseWriter, r *http.Request) {
	source, ok := parseID(w, h.logger, chi.URLParam(r, "id"), "location")
	if !ok {
		return
	}
	target, ok := parseID(w, h.logger, r.URL.Query().Get("target"), "target")
	if !ok {
		return
	}
	v, err := h.service.ValidateExit(r.Context(), source, target)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, v)
}

func (h *LocationHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, h.logger, chi.URLParam(r, "id"), "location")
	if !ok {
		return
	}
	entries, err := h.service.History(r.Context(), id.String())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, entries)
}
