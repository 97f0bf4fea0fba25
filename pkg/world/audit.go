package world

import (
	"time"

	"github.com/oklog/ulid/v2"
)

type AuditAction string

const (
	AuditCreate AuditAction = "CREATE"
	AuditUpdate AuditAction = "UPDATE"
	AuditDelete AuditAction = "DELETE"
)

const (
	RecordTypeLocation = "location"
	RecordTypeFeature  = "feature"
)

// AuditEntry is one row of the world audit trail.
type AuditEntry struct {
	ID         ulid.ULID   `json:"id"`
	RecordID   string      `json:"record_id"`
	RecordType string      `json:"record_type"`
	RecordName string      `json:"record_name"`
	Action     AuditAction `json:"action"`
	ActorID    string      `json:"actor_id"`
	ActorName  string      `json:"actor_name"`
	At         time.Time   `json:"at"`
}

// NewLocationAudit builds an audit entry for a change to loc made by actor.
func NewLocationAudit(loc *Location, action AuditAction, actor Actor) AuditEntry {
	return AuditEntry{
		ID:         ulid.Make(),
		RecordID:   loc.ID.String(),
		RecordType: RecordTypeLocation,
		RecordName: loc.Name,
		Action:     action,
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		At:         time.Now().UTC(),
	}
}

// NewFeatureAudit builds an audit entry for a change to f made by actor.
func NewFeatureAudit(f *Feature, action AuditAction, actor Actor) AuditEntry {
	return AuditEntry{
		ID:         ulid.Make(),
		RecordID:   f.ID.String(),
		RecordType: RecordTypeFeature,
		RecordName: f.Name,
		Action:     action,
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		At:         time.Now().UTC(),
	}
}
