package spatial

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jwebster45206/world-engine/pkg/storage"
	"github.com/jwebster45206/world-engine/pkg/world"
	"github.com/stretchr/testify/require"
)

func newLoc(name string) *world.Location {
	return &world.Location{ID: uuid.New(), Name: name}
}

func at(l *world.Location, x, y int) *world.Location {
	l.Coordinates = &world.Coordinates{X: x, Y: y, Area: world.DefaultArea}
	return l
}

func link(from *world.Location, d world.Direction, to *world.Location) {
	from.Exits = append(from.Exits, world.Exit{Direction: d, TargetID: to.ID})
}

func cell(x, y int) world.Coordinates {
	return world.Coordinates{X: x, Y: y, Area: world.DefaultArea}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []world.AuditEntry
}

func (r *recordingAudit) Record(ctx context.Context, entry world.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

type engine struct {
	store      *storage.MockStorage
	audit      *recordingAudit
	wilderness *WildernessGenerator
	cascader   *Cascader
	processor  *ExitChangeProcessor
}

func newEngine(locs ...*world.Location) *engine {
	store := storage.NewMockStorage()
	store.Seed(locs...)
	audit := &recordingAudit{}
	logger := testLogger()
	wild := NewWildernessGenerator(store, store, audit, nil, logger)
	cascader := NewCascader(store, wild, logger)
	return &engine{
		store:      store,
		audit:      audit,
		wilderness: wild,
		cascader:   cascader,
		processor:  NewExitChangeProcessor(cascader, logger),
	}
}

func (e *engine) snapshot(t *testing.T) *world.Snapshot {
	t.Helper()
	all, err := e.store.FindAll(context.Background())
	require.NoError(t, err)
	return world.NewSnapshot(all)
}

func (e *engine) get(t *testing.T, id world.LocationID) *world.Location {
	t.Helper()
	loc, err := e.store.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, loc)
	return loc
}
