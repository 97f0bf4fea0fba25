package storage

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/world-engine/pkg/storage"
	"github.com/jwebster45206/world-engine/pkg/world"
	"github.com/redis/go-redis/v9"
)

// maxTxRetries bounds optimistic retries for writes that must not be lost
// (creates and deletes). Versioned updates are never retried.
const maxTxRetries = 5

// RedisStorage implements the Storage interface using Redis.
//
// Keys, under a configurable prefix:
//
//	{p}:location:{id}          location JSON
//	{p}:locations              sorted set of location ids, scored by creation sequence
//	{p}:location_seq           creation sequence counter
//	{p}:cell:{area}:{x}:{y}    id of the location holding that cell
//	{p}:feature:{id}           feature JSON
//	{p}:features               set of feature ids
type RedisStorage struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// Ensure RedisStorage implements Storage interface
var _ storage.Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance. redisURL is either a
// redis:// URL or a plain host:port address.
func NewRedisStorage(redisURL, prefix string, logger *slog.Logger) (*RedisStorage, error) {
	opt, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	return NewRedisStorageWithClient(redis.NewClient(opt), prefix, logger), nil
}

// NewRedisStorageWithClient wraps an existing client.
func NewRedisStorageWithClient(client *redis.Client, prefix string, logger *slog.Logger) *RedisStorage {
	if prefix == "" {
		prefix = "world"
	}
	return &RedisStorage{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

func parseRedisURL(redisURL string) (*redis.Options, error) {
	if strings.Contains(redisURL, "://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis URL: %w", err)
		}
		return opt, nil
	}
	return &redis.Options{Addr: redisURL}, nil
}

// Client returns the underlying Redis client, shared with the event broadcaster.
func (r *RedisStorage) Client() *redis.Client {
	return r.client
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Key helpers

func (r *RedisStorage) locationKey(id world.LocationID) string {
	return r.prefix + ":location:" + id.String()
}

func (r *RedisStorage) locationsKey() string {
	return r.prefix + ":locations"
}

func (r *RedisStorage) sequenceKey() string {
	return r.prefix + ":location_seq"
}

func (r *RedisStorage) cellKey(c world.Coordinates) string {
	return fmt.Sprintf("%s:cell:%s:%d:%d", r.prefix, c.Area, c.X, c.Y)
}

func (r *RedisStorage) featureKey(id uuid.UUID) string {
	return r.prefix + ":feature:" + id.String()
}

func (r *RedisStorage) featuresKey() string {
	return r.prefix + ":features"
}

// Location operations

func (r *RedisStorage) FindAll(ctx context.Context) ([]*world.Location, error) {
	ids, err := r.client.ZRange(ctx, r.locationsKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	if len(ids) == 0 {
		return []*world.Location{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.prefix + ":location:" + id
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load locations: %w", err)
	}

	locs := make([]*world.Location, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			// Deleted between ZRANGE and MGET.
			continue
		}
		var loc world.Location
		if err := json.Unmarshal([]byte(s), &loc); err != nil {
			r.logger.Error("Failed to unmarshal location", "id", ids[i], "error", err)
			return nil, fmt.Errorf("failed to unmarshal location %s: %w", ids[i], err)
		}
		locs = append(locs, &loc)
	}
	return locs, nil
}

func (r *RedisStorage) FindByID(ctx context.Context, id world.LocationID) (*world.Location, error) {
	return r.getLocation(ctx, r.client, id)
}

func (r *RedisStorage) FindByCoordinates(ctx context.Context, c world.Coordinates) (*world.Location, error) {
	raw, err := r.client.Get(ctx, r.cellKey(c)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up cell %s: %w", c, err)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("corrupt cell index at %s: %w", c, err)
	}
	return r.getLocation(ctx, r.client, id)
}

func (r *RedisStorage) Create(ctx context.Context, loc *world.Location) error {
	if loc == nil {
		return errors.New("location cannot be nil")
	}

	key := r.locationKey(loc.ID)
	watched := []string{key}
	if loc.Coordinates != nil {
		watched = append(watched, r.cellKey(*loc.Coordinates))
	}

	now := time.Now().UTC()
	next := loc.Clone()
	next.Version = 1
	next.CreatedAt = now
	next.UpdatedAt = now
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to marshal location: %w", err)
	}

	txf := func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists > 0 {
			return fmt.Errorf("location %s: %w", loc.ID, storage.ErrAlreadyExists)
		}
		if loc.Coordinates != nil {
			holder, err := tx.Get(ctx, r.cellKey(*loc.Coordinates)).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if holder != "" {
				return fmt.Errorf("location %s at %s: %w", loc.ID, loc.Coordinates, storage.ErrCoordinatesOccupied)
			}
		}
		seq, err := tx.Incr(ctx, r.sequenceKey()).Result()
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.ZAdd(ctx, r.locationsKey(), redis.Z{Score: float64(seq), Member: loc.ID.String()})
			if loc.Coordinates != nil {
				pipe.Set(ctx, r.cellKey(*loc.Coordinates), loc.ID.String(), 0)
			}
			return nil
		})
		return err
	}

	if err := r.retryWatch(ctx, txf, watched...); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) || errors.Is(err, storage.ErrCoordinatesOccupied) {
			return err
		}
		r.logger.Error("Failed to create location", "id", loc.ID, "error", err)
		return fmt.Errorf("failed to create location: %w", err)
	}

	loc.Version = next.Version
	loc.CreatedAt = next.CreatedAt
	loc.UpdatedAt = next.UpdatedAt
	return nil
}

// Update writes loc if the stored version still equals loc.Version and its
// cell is not held by another location. A concurrent write to either key
// between the check and the commit also reports false.
func (r *RedisStorage) Update(ctx context.Context, loc *world.Location) (bool, error) {
	if loc == nil {
		return false, errors.New("location cannot be nil")
	}

	key := r.locationKey(loc.ID)
	watched := []string{key}
	if loc.Coordinates != nil {
		watched = append(watched, r.cellKey(*loc.Coordinates))
	}

	next := loc.Clone()
	next.Version = loc.Version + 1
	next.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(next)
	if err != nil {
		return false, fmt.Errorf("failed to marshal location: %w", err)
	}

	ok := false
	txf := func(tx *redis.Tx) error {
		stored, err := r.getLocation(ctx, tx, loc.ID)
		if err != nil {
			return err
		}
		if stored == nil || stored.Version != loc.Version {
			return nil
		}
		if loc.Coordinates != nil {
			holder, err := tx.Get(ctx, r.cellKey(*loc.Coordinates)).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if holder != "" && holder != loc.ID.String() {
				return nil
			}
		}

		releaseOld := stored.Coordinates != nil &&
			(loc.Coordinates == nil || *stored.Coordinates != *loc.Coordinates)
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if releaseOld {
				pipe.Del(ctx, r.cellKey(*stored.Coordinates))
			}
			if loc.Coordinates != nil {
				pipe.Set(ctx, r.cellKey(*loc.Coordinates), loc.ID.String(), 0)
			}
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		if err != nil {
			return err
		}
		ok = true
		return nil
	}

	if err := r.client.Watch(ctx, txf, watched...); err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			r.logger.Debug("Location update lost a race", "id", loc.ID)
			return false, nil
		}
		r.logger.Error("Failed to update location", "id", loc.ID, "error", err)
		return false, fmt.Errorf("failed to update location: %w", err)
	}
	if ok {
		loc.Version = next.Version
		loc.UpdatedAt = next.UpdatedAt
	}
	return ok, nil
}

func (r *RedisStorage) Delete(ctx context.Context, id world.LocationID) error {
	key := r.locationKey(id)
	txf := func(tx *redis.Tx) error {
		stored, err := r.getLocation(ctx, tx, id)
		if err != nil {
			return err
		}
		if stored == nil {
			return nil
		}
		var holder string
		if stored.Coordinates != nil {
			holder, err = tx.Get(ctx, r.cellKey(*stored.Coordinates)).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.ZRem(ctx, r.locationsKey(), id.String())
			if holder == id.String() {
				pipe.Del(ctx, r.cellKey(*stored.Coordinates))
			}
			return nil
		})
		return err
	}
	if err := r.retryWatch(ctx, txf, key); err != nil {
		r.logger.Error("Failed to delete location", "id", id, "error", err)
		return fmt.Errorf("failed to delete location: %w", err)
	}
	return nil
}

// Feature operations

func (r *RedisStorage) FindFeatureByID(ctx context.Context, id uuid.UUID) (*world.Feature, error) {
	raw, err := r.client.Get(ctx, r.featureKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load feature: %w", err)
	}
	var f world.Feature
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal feature %s: %w", id, err)
	}
	return &f, nil
}

func (r *RedisStorage) ListFeatures(ctx context.Context) ([]*world.Feature, error) {
	ids, err := r.client.SMembers(ctx, r.featuresKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list features: %w", err)
	}
	features := make([]*world.Feature, 0, len(ids))
	if len(ids) == 0 {
		return features, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.prefix + ":feature:" + id
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load features: %w", err)
	}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var f world.Feature
		if err := json.Unmarshal([]byte(s), &f); err != nil {
			return nil, fmt.Errorf("failed to unmarshal feature %s: %w", ids[i], err)
		}
		features = append(features, &f)
	}
	slices.SortFunc(features, func(a, b *world.Feature) int { return cmp.Compare(a.Name, b.Name) })
	return features, nil
}

func (r *RedisStorage) CreateFeature(ctx context.Context, f *world.Feature) error {
	if f == nil {
		return errors.New("feature cannot be nil")
	}
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal feature: %w", err)
	}
	created, err := r.client.SetNX(ctx, r.featureKey(f.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to save feature: %w", err)
	}
	if !created {
		return fmt.Errorf("feature %s: %w", f.ID, storage.ErrAlreadyExists)
	}
	if err := r.client.SAdd(ctx, r.featuresKey(), f.ID.String()).Err(); err != nil {
		return fmt.Errorf("failed to index feature: %w", err)
	}
	return nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// getLocation reads a location through either the client or a WATCH transaction.
func (r *RedisStorage) getLocation(ctx context.Context, c getter, id world.LocationID) (*world.Location, error) {
	raw, err := c.Get(ctx, r.locationKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load location %s: %w", id, err)
	}
	var loc world.Location
	if err := json.Unmarshal([]byte(raw), &loc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal location %s: %w", id, err)
	}
	return &loc, nil
}

func (r *RedisStorage) retryWatch(ctx context.Context, txf func(*redis.Tx) error, keys ...string) error {
	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, txf, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		r.logger.Debug("Transaction retry", "attempt", i+1, "keys", keys)
	}
	return redis.TxFailedErr
}
