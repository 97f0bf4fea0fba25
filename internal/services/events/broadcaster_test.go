package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jwebster45206/world-engine/pkg/world"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*Broadcaster, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return NewBroadcaster(client, logger), mr
}

func TestBroadcaster_PublishReachesSubscribers(t *testing.T) {
	b, _ := setupTestRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := b.Subscribe(ctx)
	defer sub.Close()
	_, err := sub.Receive(ctx) // subscription confirmation
	require.NoError(t, err)

	loc := &world.Location{ID: uuid.New(), Name: "Gatehouse",
		Coordinates: &world.Coordinates{X: 1, Y: -1, Area: world.DefaultArea}}
	actor := world.Actor{ID: "u1", Name: "Ada"}
	require.NoError(t, b.Publish(ctx, LocationCreated(loc, actor)))

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, Channel, msg.Channel)
		var got Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, EventTypeLocationCreated, got.Type)
		assert.Equal(t, loc.ID.String(), got.LocationID)
		assert.Equal(t, "u1", got.ActorID)
		assert.Equal(t, "Gatehouse", got.Data["name"])
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}
}

func TestBroadcaster_PublishFailsWhenRedisDown(t *testing.T) {
	b, mr := setupTestRedis(t)
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := b.Publish(ctx, LocationDeleted(uuid.New(), "Gone", world.SystemActor))
	assert.Error(t, err)
}

func TestEventConstructors(t *testing.T) {
	id := uuid.New()
	c := world.Coordinates{X: 2, Y: 3, Area: "caves"}

	placed := LocationPlaced(id, c, world.SystemActor)
	assert.Equal(t, EventTypeLocationPlaced, placed.Type)
	assert.Equal(t, c, placed.Data["coordinates"])
	assert.Equal(t, "system", placed.ActorID)

	updated := LocationUpdated(&world.Location{ID: id, Name: "Hall", Version: 4}, world.SystemActor)
	assert.Equal(t, EventTypeLocationUpdated, updated.Type)
	assert.Equal(t, int64(4), updated.Data["version"])

	deleted := LocationDeleted(id, "Hall", world.SystemActor)
	assert.Equal(t, id.String(), deleted.LocationID)
	assert.False(t, deleted.At.IsZero())
}
