package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jwebster45206/world-engine/internal/services"
)

// DiagnosticsHandler serves GET /v1/world/diagnostics. Problems are
// reported with a 200; the endpoint never repairs anything.
type DiagnosticsHandler struct {
	service *services.LocationService
	logger  *slog.Logger
}

func NewDiagnosticsHandler(service *services.LocationService, logger *slog.Logger) *DiagnosticsHandler {
	return &DiagnosticsHandler{
		service: service,
		logger:  logger,
	}
}

func (h *DiagnosticsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Diagnose(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, report)
}
