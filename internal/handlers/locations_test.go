package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/world-engine/internal/services"
	"github.com/jwebster45206/world-engine/pkg/spatial"
	"github.com/jwebster45206/world-engine/pkg/storage"
	"github.com/jwebster45206/world-engine/pkg/world"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
	store   *storage.MockStorage
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storage.NewMockStorage()
	svc := services.NewLocationService(services.LocationServiceConfig{
		Store:  store,
		Logger: logger,
	})
	return &testServer{
		t:     t,
		store: store,
		handler: NewRouter(RouterConfig{
			Service: svc,
			Health:  map[string]services.HealthChecker{"storage": store},
			Logger:  logger,
		}),
	}
}

// do sends a request as actor and decodes a JSON response into out when it is non-nil.
func (s *testServer) do(method, path, actor string, body any, out any) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if actor != "" {
		req.Header.Set(HeaderActorID, actor)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	if out != nil {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w
}

func TestLocationRoutes_CreatePlacesAndGeneratesWilderness(t *testing.T) {
	s := newTestServer(t)

	var first services.LocationChange
	w := s.do(http.MethodPost, "/v1/locations", "ada", services.LocationInput{Name: "Square"}, &first)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, first.Location.Coordinates)
	assert.Equal(t, world.Coordinates{Area: world.DefaultArea}, *first.Location.Coordinates)

	var second services.LocationChange
	w = s.do(http.MethodPost, "/v1/locations", "ada", map[string]any{
		"name":  "Gate",
		"exits": []map[string]any{{"direction": "west", "target_id": first.Location.ID}},
	}, &second)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, world.Coordinates{X: 1, Y: 0, Area: world.DefaultArea}, *second.Location.Coordinates)
	assert.Len(t, second.Wilderness, 7)

	var all []*world.Location
	w = s.do(http.MethodGet, "/v1/locations", "", nil, &all)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, all, 9)

	var got world.Location
	w = s.do(http.MethodGet, "/v1/locations/"+second.Location.ID.String(), "", nil, &got)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Gate", got.Name)
}

func TestLocationRoutes_ErrorStatuses(t *testing.T) {
	s := newTestServer(t)

	var locked services.LocationChange
	owner := "ada"
	w := s.do(http.MethodPost, "/v1/locations", "ada", services.LocationInput{Name: "Keep", LockedBy: &owner}, &locked)
	require.Equal(t, http.StatusCreated, w.Code)
	keepPath := "/v1/locations/" + locked.Location.ID.String()

	tests := []struct {
		name   string
		method string
		path   string
		actor  string
		body   any
		status int
	}{
		{"bad id", http.MethodGet, "/v1/locations/not-a-uuid", "", nil, http.StatusBadRequest},
		{"missing", http.MethodGet, "/v1/locations/" + uuid.NewString(), "", nil, http.StatusNotFound},
		{"empty name", http.MethodPost, "/v1/locations", "ada", services.LocationInput{Name: ""}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/v1/locations", "ada", map[string]any{"name": "X", "colour": "red"}, http.StatusBadRequest},
		{"locked", http.MethodPut, keepPath, "grace", services.LocationInput{Name: "Mine"}, http.StatusLocked},
		{"version conflict", http.MethodPut, keepPath, "ada", services.LocationInput{Name: "Keep", Version: 42}, http.StatusConflict},
		{"coordinates on update", http.MethodPut, keepPath, "ada", services.LocationInput{Name: "Keep", Coordinates: &world.Coordinates{X: 3}}, http.StatusBadRequest},
		{"delete locked", http.MethodDelete, keepPath, "grace", nil, http.StatusLocked},
		{"history without audit index", http.MethodGet, keepPath + "/history", "", nil, http.StatusServiceUnavailable},
		{"validate without target", http.MethodGet, keepPath + "/exits/validate", "", nil, http.StatusBadRequest},
		{"missing feature", http.MethodGet, "/v1/features/" + uuid.NewString(), "", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp ErrorResponse
			w := s.do(tt.method, tt.path, tt.actor, tt.body, &resp)
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestLocationRoutes_UpdateAndDelete(t *testing.T) {
	s := newTestServer(t)

	var a, b services.LocationChange
	s.do(http.MethodPost, "/v1/locations", "", services.LocationInput{Name: "A"}, &a)
	s.do(http.MethodPost, "/v1/locations", "", services.LocationInput{Name: "B"}, &b)
	require.Nil(t, b.Location.Coordinates)

	var updated services.LocationChange
	w := s.do(http.MethodPut, "/v1/locations/"+a.Location.ID.String(), "", services.LocationInput{
		Name:    "A",
		Exits:   []services.ExitInput{{Direction: "ne", TargetID: b.Location.ID}},
		Version: a.Location.Version,
	}, &updated)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []world.LocationID{b.Location.ID}, updated.Placed)

	var gotB world.Location
	s.do(http.MethodGet, "/v1/locations/"+b.Location.ID.String(), "", nil, &gotB)
	require.NotNil(t, gotB.Coordinates)
	assert.Equal(t, world.Coordinates{X: 1, Y: 1, Area: world.DefaultArea}, *gotB.Coordinates)

	w = s.do(http.MethodDelete, "/v1/locations/"+b.Location.ID.String(), "", nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	var gotA world.Location
	s.do(http.MethodGet, "/v1/locations/"+a.Location.ID.String(), "", nil, &gotA)
	_, stillThere := gotA.ExitTo(b.Location.ID)
	assert.False(t, stillThere)
}

func TestLocationRoutes_ValidateExit(t *testing.T) {
	s := newTestServer(t)

	var a, b services.LocationChange
	s.do(http.MethodPost, "/v1/locations", "", services.LocationInput{Name: "A"}, &a)
	s.do(http.MethodPost, "/v1/locations", "", services.LocationInput{Name: "B"}, &b)

	var v spatial.ExitValidation
	w := s.do(http.MethodGet, "/v1/locations/"+a.Location.ID.String()+"/exits/validate?target="+b.Location.ID.String(), "", nil, &v)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, v.CanCreateExit)
	assert.Len(t, v.ValidDirections, 8)
	assert.False(t, v.TargetHasCoordinates)
}

func TestFeatureRoutes(t *testing.T) {
	s := newTestServer(t)

	var f world.Feature
	w := s.do(http.MethodPost, "/v1/features", "ada", services.FeatureInput{Name: "Old Road"}, &f)
	require.Equal(t, http.StatusCreated, w.Code)

	var got world.Feature
	w = s.do(http.MethodGet, "/v1/features/"+f.ID.String(), "", nil, &got)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Old Road", got.Name)

	var list []world.Feature
	s.do(http.MethodGet, "/v1/features", "", nil, &list)
	assert.Len(t, list, 1)

	var resp ErrorResponse
	w = s.do(http.MethodPost, "/v1/features", "ada", services.FeatureInput{}, &resp)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDiagnosticsRoute(t *testing.T) {
	s := newTestServer(t)
	first := uuid.New()
	second := uuid.New()
	s.store.Seed(
		&world.Location{ID: first, Name: "One", Coordinates: &world.Coordinates{Area: world.DefaultArea}},
		&world.Location{ID: second, Name: "Two", Coordinates: &world.Coordinates{Area: world.DefaultArea}},
	)

	var report spatial.DiagnosticReport
	w := s.do(http.MethodGet, "/v1/world/diagnostics", "", nil, &report)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, report.LocationCount)
	assert.Equal(t, 1, report.Count(spatial.WarningDuplicateCoordinates))
}

func TestHealthRoute(t *testing.T) {
	s := newTestServer(t)
	var resp HealthResponse
	w := s.do(http.MethodGet, "/health", "", nil, &resp)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", resp.Status)
	assert.NotEmpty(t, w.Header().Get("Content-Type"))
}

func TestActorFrom(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, world.SystemActor, actorFrom(req))

	req.Header.Set(HeaderActorID, "u7")
	assert.Equal(t, world.Actor{ID: "u7", Name: "u7"}, actorFrom(req))

	req.Header.Set(HeaderActorName, "Grace")
	assert.Equal(t, world.Actor{ID: "u7", Name: "Grace"}, actorFrom(req))
}
