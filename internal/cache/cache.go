// Package cache stores computed monthly series so repeated dashboard
// requests skip the dataset scan. Values are JSON encoded in every backend.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrMiss is returned when a key is absent or expired.
var ErrMiss = errors.New("cache: key not found")

// Cache defines the operations the analysis layer needs
type Cache interface {
	// Get decodes the value stored under key into dest
	Get(ctx context.Context, key string, dest any) error

	// Set stores value under key for ttl; ttl <= 0 uses the backend default
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Flush removes every key owned by this cache
	Flush(ctx context.Context) error

	Close() error
}

// Config selects and configures a cache backend.
type Config struct {
	Type       string // "memory" or "redis"
	MaxEntries int
	Redis      RedisConfig
}

// New builds the backend named by cfg.Type.
func New(cfg Config) (Cache, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemory(cfg.MaxEntries), nil
	case "redis":
		return NewRedis(cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown cache type %q", cfg.Type)
	}
}
