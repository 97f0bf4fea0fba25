package services

import (
	"context"

	"github.com/jwebster45206/world-engine/internal/services/events"
	"github.com/jwebster45206/world-engine/pkg/world"
)

// HealthChecker defines basic health check capabilities
type HealthChecker interface {
	// Ping tests the service connection
	Ping(ctx context.Context) error
}

// EventPublisher delivers world events to subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// HistoryReader returns the audit trail of one record, oldest first.
type HistoryReader interface {
	History(ctx context.Context, recordID string) ([]world.AuditEntry, error)
}
