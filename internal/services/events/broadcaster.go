package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwebster45206/world-engine/pkg/world"
	"github.com/redis/go-redis/v9"
)

// Channel is the Redis Pub/Sub channel world events are published on.
const Channel = "world-events"

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeLocationCreated EventType = "location.created"
	EventTypeLocationUpdated EventType = "location.updated"
	EventTypeLocationDeleted EventType = "location.deleted"
	EventTypeLocationPlaced  EventType = "location.placed"
)

// Event represents a generic event structure
type Event struct {
	Type       EventType      `json:"type"`
	LocationID string         `json:"location_id,omitempty"`
	ActorID    string         `json:"actor_id,omitempty"`
	At         time.Time      `json:"at"`
	Data       map[string]any `json:"data,omitempty"`
}

// LocationCreated describes a new location, including generated wilderness.
func LocationCreated(loc *world.Location, actor world.Actor) Event {
	return Event{
		Type:       EventTypeLocationCreated,
		LocationID: loc.ID.String(),
		ActorID:    actor.ID,
		At:         time.Now().UTC(),
		Data: map[string]any{
			"name":          loc.Name,
			"coordinates":   loc.Coordinates,
			"is_wilderness": loc.IsWilderness,
		},
	}
}

func LocationUpdated(loc *world.Location, actor world.Actor) Event {
	return Event{
		Type:       EventTypeLocationUpdated,
		LocationID: loc.ID.String(),
		ActorID:    actor.ID,
		At:         time.Now().UTC(),
		Data: map[string]any{
			"name":    loc.Name,
			"version": loc.Version,
		},
	}
}

func LocationDeleted(id world.LocationID, name string, actor world.Actor) Event {
	return Event{
		Type:       EventTypeLocationDeleted,
		LocationID: id.String(),
		ActorID:    actor.ID,
		At:         time.Now().UTC(),
		Data: map[string]any{
			"name": name,
		},
	}
}

// LocationPlaced announces that a location received coordinates.
func LocationPlaced(id world.LocationID, c world.Coordinates, actor world.Actor) Event {
	return Event{
		Type:       EventTypeLocationPlaced,
		LocationID: id.String(),
		ActorID:    actor.ID,
		At:         time.Now().UTC(),
		Data: map[string]any{
			"coordinates": c,
		},
	}
}

// Broadcaster publishes events to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	channel     string
	logger      *slog.Logger
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		channel:     Channel,
		logger:      logger,
	}
}

// Publish publishes event to the world channel.
func (b *Broadcaster) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, b.channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", b.channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", b.channel,
		"event_type", event.Type,
		"location_id", event.LocationID,
	)
	return nil
}

// Subscribe opens a subscription to the world channel. Callers close it.
func (b *Broadcaster) Subscribe(ctx context.Context) *redis.PubSub {
	return b.redisClient.Subscribe(ctx, b.channel)
}
