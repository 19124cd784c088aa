// Package cache holds short-lived JSON values such as fee quotes. Values are
// always stored as JSON so every implementation returns independent copies.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

type Cache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Get decodes the cached value into target; a miss is ErrCacheMiss.
	Get(ctx context.Context, key string, target interface{}) error
	Delete(ctx context.Context, key string) error
}

var (
	_ Cache = (*MemoryCache)(nil)
	_ Cache = (*RedisCache)(nil)
	_ Cache = (*MultiLevelCache)(nil)
)
