// Package cache holds derived read models keyed by project.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Cache stores opaque values with a TTL. Implementations must be safe for
// concurrent use.
type Cache interface {
	// Get returns the value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// PhasesKey is the key of a project's phase listing.
func PhasesKey(projectID string) string {
	return fmt.Sprintf("project:%s:phases", projectID)
}

// New returns a Redis cache when redisURL is set, otherwise an in-process one.
func New(ctx context.Context, redisURL string) (Cache, error) {
	if redisURL == "" {
		slog.Info("cache backend", slog.String("backend", "memory"))
		return NewMemory(), nil
	}
	c, err := NewRedis(ctx, redisURL)
	if err != nil {
		return nil, err
	}
	slog.Info("cache backend", slog.String("backend", "redis"))
	return c, nil
}
