package cache

import (
	"time"

	appmetering "github.com/bizledger/backend/internal/application/metering"
	"github.com/bizledger/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// StatusCacheFactory creates the status cache appropriate for the
// deployment. Redis is preferred so invalidations propagate across
// instances; when Redis is unreachable the factory can fall back to an
// in-memory cache instead of failing startup.
type StatusCacheFactory struct {
	redisConfig      config.RedisConfig
	ttl              time.Duration
	logger           *zap.Logger
	inMemoryFallback bool
}

// FactoryOption configures the StatusCacheFactory
type FactoryOption func(*StatusCacheFactory)

// WithInMemoryFallback enables falling back to an in-memory cache when
// Redis is unavailable
func WithInMemoryFallback() FactoryOption {
	return func(f *StatusCacheFactory) {
		f.inMemoryFallback = true
	}
}

// NewStatusCacheFactory creates a factory for status caches
func NewStatusCacheFactory(redisConfig config.RedisConfig, ttl time.Duration, logger *zap.Logger, opts ...FactoryOption) *StatusCacheFactory {
	f := &StatusCacheFactory{
		redisConfig: redisConfig,
		ttl:         ttl,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateCache returns a Redis-backed cache when Redis is reachable,
// otherwise an in-memory cache if fallback is enabled
func (f *StatusCacheFactory) CreateCache() (appmetering.StatusCache, error) {
	redisCache, err := NewRedisStatusCache(f.redisConfig, f.ttl, f.logger)
	if err == nil {
		f.logger.Info("using Redis status cache",
			zap.String("addr", f.redisConfig.Addr()))
		return redisCache, nil
	}

	if !f.inMemoryFallback {
		return nil, err
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory status cache",
		zap.String("addr", f.redisConfig.Addr()),
		zap.Error(err))
	return NewInMemoryStatusCache(f.ttl), nil
}
