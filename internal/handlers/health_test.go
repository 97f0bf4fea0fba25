package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/world-engine/internal/services"
	"github.com/jwebster45206/world-engine/pkg/storage"
)

func TestHealthHandler_ServeHTTP(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))

	tests := []struct {
		name            string
		storageErr      error
		eventsErr       error
		expectedStatus  int
		expectedHealth  string
		expectedStorage string
		expectedEvents  string
	}{
		{
			name:            "all healthy",
			expectedStatus:  http.StatusOK,
			expectedHealth:  "healthy",
			expectedStorage: "healthy",
			expectedEvents:  "healthy",
		},
		{
			name:            "unhealthy storage",
			storageErr:      errors.New("connection failed"),
			expectedStatus:  http.StatusServiceUnavailable,
			expectedHealth:  "degraded",
			expectedStorage: "unhealthy",
			expectedEvents:  "healthy",
		},
		{
			name:            "unhealthy events",
			eventsErr:       errors.New("pubsub down"),
			expectedStatus:  http.StatusServiceUnavailable,
			expectedHealth:  "degraded",
			expectedStorage: "healthy",
			expectedEvents:  "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMockStorage()
			store.SetPingError(tt.storageErr)
			events := storage.NewMockStorage()
			events.SetPingError(tt.eventsErr)

			handler := NewHealthHandler(map[string]services.HealthChecker{
				"storage": store,
				"events":  events,
			}, logger)

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var response HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.expectedHealth, response.Status)
			assert.Equal(t, "world-engine", response.Service)
			assert.False(t, response.Timestamp.IsZero())
			assert.Equal(t, tt.expectedStorage, response.Components["storage"])
			assert.Equal(t, tt.expectedEvents, response.Components["events"])
		})
	}
}
