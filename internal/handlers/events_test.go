package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/world-engine/internal/services/events"
	"github.com/jwebster45206/world-engine/pkg/world"
)

func setupTestBroadcaster(t *testing.T) *events.Broadcaster {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return events.NewBroadcaster(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type sseEvent struct {
	name string
	data string
}

// readEvent returns the next event, skipping keepalive comments.
func readEvent(t *testing.T, r *bufio.Reader) sseEvent {
	t.Helper()
	var ev sseEvent
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			ev.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			ev.data = strings.TrimPrefix(line, "data: ")
		case line == "" && ev.name != "":
			return ev
		}
	}
}

func TestEventsHandler_StreamsWorldEvents(t *testing.T) {
	b := setupTestBroadcaster(t)
	handler := NewEventsHandler(b, slog.New(slog.NewTextHandler(io.Discard, nil)))
	handler.keepalive = 20 * time.Millisecond
	srv := httptest.NewServer(handler)
	defer srv.Close()

	watched := uuid.New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/events?location="+watched.String(), nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	assert.Equal(t, "connected", readEvent(t, reader).name)

	actor := world.Actor{ID: "ada", Name: "Ada"}
	require.NoError(t, b.Publish(ctx, events.LocationDeleted(uuid.New(), "Elsewhere", actor)))
	require.NoError(t, b.Publish(ctx, events.LocationPlaced(watched, world.Coordinates{X: 2, Y: 3, Area: world.DefaultArea}, actor)))

	ev := readEvent(t, reader)
	assert.Equal(t, string(events.EventTypeLocationPlaced), ev.name)
	var got events.Event
	require.NoError(t, json.Unmarshal([]byte(ev.data), &got))
	assert.Equal(t, watched.String(), got.LocationID)
	assert.Equal(t, "ada", got.ActorID)
}

func TestEventsHandler_BadFilter(t *testing.T) {
	b := setupTestBroadcaster(t)
	handler := NewEventsHandler(b, slog.New(slog.NewTextHandler(io.Discard, nil)))

	req := httptest.NewRequest(http.MethodGet, "/v1/events?location=nope", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
