package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	appmetering "github.com/bizledger/backend/internal/application/metering"
	"github.com/bizledger/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStatusCache caches usage status snapshots in Redis. Suitable for
// distributed deployments where multiple instances serve status reads.
// All operations are best effort: backend failures are logged and the
// caller falls through to the database.
type RedisStatusCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewRedisStatusCache creates a Redis-backed status cache, verifying
// connectivity up front
func NewRedisStatusCache(cfg config.RedisConfig, ttl time.Duration, logger *zap.Logger) (*RedisStatusCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStatusCache{
		client:    client,
		keyPrefix: "metering:status:",
		ttl:       ttl,
		logger:    logger,
	}, nil
}

// NewRedisStatusCacheWithClient creates a cache with an existing client.
// Useful for testing or sharing a client across components.
func NewRedisStatusCacheWithClient(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisStatusCache {
	return &RedisStatusCache{
		client:    client,
		keyPrefix: "metering:status:",
		ttl:       ttl,
		logger:    logger,
	}
}

func (c *RedisStatusCache) key(subscriberID uuid.UUID) string {
	return c.keyPrefix + subscriberID.String()
}

// GetStatus retrieves a cached status snapshot
func (c *RedisStatusCache) GetStatus(ctx context.Context, subscriberID uuid.UUID) (*appmetering.UsageStatusDTO, bool) {
	payload, err := c.client.Get(ctx, c.key(subscriberID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("status cache read failed", zap.Error(err))
		}
		return nil, false
	}

	var status appmetering.UsageStatusDTO
	if err := json.Unmarshal(payload, &status); err != nil {
		c.logger.Warn("status cache entry corrupt, dropping",
			zap.String("subscriber_id", subscriberID.String()),
			zap.Error(err))
		c.client.Del(ctx, c.key(subscriberID))
		return nil, false
	}
	return &status, true
}

// SetStatus stores a status snapshot with the configured TTL
func (c *RedisStatusCache) SetStatus(ctx context.Context, subscriberID uuid.UUID, status *appmetering.UsageStatusDTO) {
	payload, err := json.Marshal(status)
	if err != nil {
		c.logger.Warn("status cache marshal failed", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, c.key(subscriberID), payload, c.ttl).Err(); err != nil {
		c.logger.Warn("status cache write failed", zap.Error(err))
	}
}

// Invalidate drops the cached snapshot after a write to the ledger
func (c *RedisStatusCache) Invalidate(ctx context.Context, subscriberID uuid.UUID) {
	if err := c.client.Del(ctx, c.key(subscriberID)).Err(); err != nil {
		c.logger.Warn("status cache invalidation failed", zap.Error(err))
	}
}

// Close releases the underlying Redis client
func (c *RedisStatusCache) Close() error {
	return c.client.Close()
}

// Ensure RedisStatusCache implements StatusCache
var _ appmetering.StatusCache = (*RedisStatusCache)(nil)
