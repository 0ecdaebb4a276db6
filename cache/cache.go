// Package cache keeps rendered thread forests in Redis, keyed by folder
// and modification sequence so stale entries are never served.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrCacheMiss = errors.New("cache miss")

// Cache stores rendered forests. The folder's highest modseq is part of
// the key: any mailbox change moves the modseq, so entries for older
// states simply age out via TTL instead of needing eager invalidation.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCache creates a thread cache
func NewCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func key(folderID, algorithm string, compact bool, modseq uint64) string {
	return fmt.Sprintf("thread:%s:%s:%t:%d", folderID, algorithm, compact, modseq)
}

// Get returns the cached rendering for the folder state, or ErrCacheMiss.
func (c *Cache) Get(ctx context.Context, folderID, algorithm string, compact bool, modseq uint64) ([]byte, error) {
	val, err := c.client.Get(ctx, key(folderID, algorithm, compact, modseq)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("cache get: %w", err)
	}
	return val, nil
}

// Set stores a rendering. Failures are logged, not propagated: the cache
// is an accelerator, never a dependency.
func (c *Cache) Set(ctx context.Context, folderID, algorithm string, compact bool, modseq uint64, payload []byte) {
	err := c.client.Set(ctx, key(folderID, algorithm, compact, modseq), payload, c.ttl).Err()
	if err != nil {
		c.logger.Warn("Failed to cache thread forest",
			zap.String("folder_id", folderID),
			zap.Error(err))
	}
}

// Invalidate drops every cached rendering for a folder.
func (c *Cache) Invalidate(ctx context.Context, folderID string) error {
	var cursor uint64
	pattern := fmt.Sprintf("thread:%s:*", folderID)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("cache scan: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("cache del: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
