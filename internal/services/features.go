package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/jwebster45206/world-engine/pkg/storage"
	"github.com/jwebster45206/world-engine/pkg/world"
)

type FeatureInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateFeature stores a new terrain feature. Feature names drive the
// descriptions of wilderness generated around locations that use them.
func (s *LocationService) CreateFeature(ctx context.Context, actor world.Actor, in FeatureInput) (*world.Feature, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, oops.Wrapf(ErrInvalidFeature, "name is required")
	}
	f := &world.Feature{
		ID:          uuid.New(),
		Name:        name,
		Description: strings.TrimSpace(in.Description),
	}
	if err := s.store.CreateFeature(ctx, f); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, oops.Wrapf(ErrInvalidFeature, "feature %s already exists", f.ID)
		}
		return nil, oops.Wrapf(err, "create feature %s", f.ID)
	}
	s.logger.Info("Feature created", "feature_id", f.ID, "name", f.Name, "actor_id", actor.ID)
	s.record(ctx, world.NewFeatureAudit(f, world.AuditCreate, actor))
	return f, nil
}

func (s *LocationService) GetFeature(ctx context.Context, id uuid.UUID) (*world.Feature, error) {
	f, err := s.store.FindFeatureByID(ctx, id)
	if err != nil {
		return nil, oops.Wrapf(err, "get feature %s", id)
	}
	if f == nil {
		return nil, ErrFeatureNotFound
	}
	return f, nil
}

func (s *LocationService) ListFeatures(ctx context.Context) ([]*world.Feature, error) {
	features, err := s.store.ListFeatures(ctx)
	if err != nil {
		return nil, oops.Wrapf(err, "list features")
	}
	return features, nil
}
