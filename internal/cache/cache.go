// Package cache stores encoded analysis responses keyed by a hash of the
// request that produced them.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

// Backend names accepted by New.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

const keyPrefix = "realty"

// Cache is a byte-oriented result cache. Implementations are safe for
// concurrent use.
type Cache interface {
	// Get returns the cached value and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value for ttl. A ttl of zero keeps the value until evicted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Backend    string `yaml:"backend,omitempty"`
	RedisAddr  string `yaml:"redisAddr,omitempty"`
	TTL        string `yaml:"ttl,omitempty"`
	MaxEntries int    `yaml:"maxEntries,omitempty"`
}

// New builds the backend named by cfg.Backend. An empty backend disables
// caching.
func New(logger *zap.Logger, cfg Config) (Cache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	switch backend {
	case "", BackendNone:
		return Nop{}, nil
	case BackendMemory:
		return NewMemory(cfg.MaxEntries), nil
	case BackendRedis:
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("cache: redis backend requires redisAddr")
		}
		logger.Info("using redis result cache",
			zap.String("op", "cache.New"),
			zap.String("addr", cfg.RedisAddr),
		)
		return NewRedis(cfg.RedisAddr), nil
	default:
		return nil, fmt.Errorf("cache: unknown backend %q (supported: none, memory, redis)", cfg.Backend)
	}
}

// Key derives a cache key from a namespace, usually the endpoint, and the
// canonical request payload.
func Key(namespace string, payload []byte) string {
	return fmt.Sprintf("%s:%s:%016x", keyPrefix, namespace, xxhash.Sum64(payload))
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (Nop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Nop) Close() error { return nil }
