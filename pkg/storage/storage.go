package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jwebster45206/world-engine/pkg/world"
)

// ErrCoordinatesOccupied is returned by Create when another location already holds the cell.
var ErrCoordinatesOccupied = errors.New("coordinates already occupied")

// ErrAlreadyExists is returned by Create when the id is taken.
var ErrAlreadyExists = errors.New("record already exists")

// LocationRepository persists locations.
//
// Lookups return (nil, nil) when nothing matches. Update is a compare-and-set:
// it succeeds only when the stored version equals loc.Version and the target
// cell is not held by another location. On success loc.Version is bumped.
type LocationRepository interface {
	FindAll(ctx context.Context) ([]*world.Location, error)
	FindByID(ctx context.Context, id world.LocationID) (*world.Location, error)
	FindByCoordinates(ctx context.Context, c world.Coordinates) (*world.Location, error)
	Create(ctx context.Context, loc *world.Location) error
	Update(ctx context.Context, loc *world.Location) (bool, error)
	Delete(ctx context.Context, id world.LocationID) error
}

// FeatureRepository persists terrain features.
type FeatureRepository interface {
	FindFeatureByID(ctx context.Context, id uuid.UUID) (*world.Feature, error)
	ListFeatures(ctx context.Context) ([]*world.Feature, error)
	CreateFeature(ctx context.Context, f *world.Feature) error
}

// Storage defines a unified interface for all storage operations
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	LocationRepository
	FeatureRepository
}
