package storage

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/world-engine/pkg/world"
)

// MockStorage is an in-memory implementation of Storage for tests and local runs.
// It stores copies, so callers never share memory with it.
type MockStorage struct {
	mu        sync.RWMutex
	locations map[world.LocationID]*world.Location
	order     []world.LocationID
	cells     map[world.Coordinates]world.LocationID
	features  map[uuid.UUID]*world.Feature
	pingError error

	// FailUpdates forces Update to return this error when set.
	FailUpdates error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		locations: make(map[world.LocationID]*world.Location),
		cells:     make(map[world.Coordinates]world.LocationID),
		features:  make(map[uuid.UUID]*world.Feature),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockStorage) Close() error {
	return nil
}

// Seed stores locations as-is, bypassing version and coordinate checks.
// Used to set up pre-existing (possibly inconsistent) worlds.
func (m *MockStorage) Seed(locs ...*world.Location) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, loc := range locs {
		if _, ok := m.locations[loc.ID]; !ok {
			m.order = append(m.order, loc.ID)
		}
		m.locations[loc.ID] = loc.Clone()
		if loc.Coordinates != nil {
			if _, taken := m.cells[*loc.Coordinates]; !taken {
				m.cells[*loc.Coordinates] = loc.ID
			}
		}
	}
}

func (m *MockStorage) FindAll(ctx context.Context) ([]*world.Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*world.Location, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.locations[id].Clone())
	}
	return out, nil
}

func (m *MockStorage) FindByID(ctx context.Context, id world.LocationID) (*world.Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.locations[id].Clone(), nil
}

func (m *MockStorage) FindByCoordinates(ctx context.Context, c world.Coordinates) (*world.Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.cells[c]
	if !ok {
		return nil, nil
	}
	return m.locations[id].Clone(), nil
}

func (m *MockStorage) Create(ctx context.Context, loc *world.Location) error {
	if loc == nil {
		return errors.New("location cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.locations[loc.ID]; ok {
		return fmt.Errorf("location %s: %w", loc.ID, ErrAlreadyExists)
	}
	if loc.Coordinates != nil {
		if _, taken := m.cells[*loc.Coordinates]; taken {
			return fmt.Errorf("location %s at %s: %w", loc.ID, loc.Coordinates, ErrCoordinatesOccupied)
		}
		m.cells[*loc.Coordinates] = loc.ID
	}
	now := time.Now().UTC()
	loc.Version = 1
	loc.CreatedAt = now
	loc.UpdatedAt = now
	m.locations[loc.ID] = loc.Clone()
	m.order = append(m.order, loc.ID)
	return nil
}

func (m *MockStorage) Update(ctx context.Context, loc *world.Location) (bool, error) {
	if loc == nil {
		return false, errors.New("location cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailUpdates != nil {
		return false, m.FailUpdates
	}
	stored, ok := m.locations[loc.ID]
	if !ok || stored.Version != loc.Version {
		return false, nil
	}
	if loc.Coordinates != nil {
		if holder, taken := m.cells[*loc.Coordinates]; taken && holder != loc.ID {
			return false, nil
		}
	}
	if stored.Coordinates != nil && m.cells[*stored.Coordinates] == loc.ID {
		delete(m.cells, *stored.Coordinates)
	}
	if loc.Coordinates != nil {
		m.cells[*loc.Coordinates] = loc.ID
	}
	loc.Version++
	loc.UpdatedAt = time.Now().UTC()
	m.locations[loc.ID] = loc.Clone()
	return true, nil
}

func (m *MockStorage) Delete(ctx context.Context, id world.LocationID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.locations[id]
	if !ok {
		return nil
	}
	if stored.Coordinates != nil && m.cells[*stored.Coordinates] == id {
		delete(m.cells, *stored.Coordinates)
	}
	delete(m.locations, id)
	m.order = slices.DeleteFunc(m.order, func(x world.LocationID) bool { return x == id })
	return nil
}

func (m *MockStorage) FindFeatureByID(ctx context.Context, id uuid.UUID) (*world.Feature, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.features[id]
	if !ok {
		return nil, nil
	}
	c := *f
	return &c, nil
}

func (m *MockStorage) ListFeatures(ctx context.Context) ([]*world.Feature, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*world.Feature, 0, len(m.features))
	for _, f := range m.features {
		c := *f
		out = append(out, &c)
	}
	slices.SortFunc(out, func(a, b *world.Feature) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

func (m *MockStorage) CreateFeature(ctx context.Context, f *world.Feature) error {
	if f == nil {
		return errors.New("feature cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.features[f.ID]; ok {
		return fmt.Errorf("feature %s: %w", f.ID, ErrAlreadyExists)
	}
	c := *f
	m.features[f.ID] = &c
	return nil
}
