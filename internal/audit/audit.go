// Package audit stores the world audit trail: a compressed JSONL log that is
// the complete record, and a SQLite index for per-record history queries.
package audit

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jwebster45206/world-engine/pkg/spatial"
	"github.com/jwebster45206/world-engine/pkg/world"
)

// Sink is an audit destination that can be closed.
type Sink interface {
	spatial.AuditLogger
	Close() error
}

// Multi records every entry to all sinks.
type Multi struct {
	sinks  []Sink
	logger *slog.Logger
}

// Ensure Multi implements AuditLogger interface
var _ spatial.AuditLogger = (*Multi)(nil)

func NewMulti(logger *slog.Logger, sinks ...Sink) *Multi {
	return &Multi{sinks: sinks, logger: logger}
}

// Record writes to every sink even when an earlier one fails and returns the
// joined errors.
func (m *Multi) Record(ctx context.Context, entry world.AuditEntry) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Record(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	m.logger.Debug("Audit entry recorded",
		"record_id", entry.RecordID,
		"record_type", entry.RecordType,
		"action", entry.Action,
		"actor_id", entry.ActorID)
	return nil
}

func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
