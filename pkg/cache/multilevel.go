package cache

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"wallet-txcore/pkg/logger"
)

// l1MaxTTL caps how long a value promoted from L2 lives in L1.
const l1MaxTTL = time.Minute

// MultiLevelCache 实现多级缓存 (L1: Memory, L2: Redis)
type MultiLevelCache struct {
	local  Cache
	remote Cache
}

func NewMultiLevelCache(local, remote Cache) *MultiLevelCache {
	return &MultiLevelCache{
		local:  local,
		remote: remote,
	}
}

func (m *MultiLevelCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	// L1 的 TTL 取 L2 的一半
	if err := m.local.Set(ctx, key, value, ttl/2); err != nil {
		logger.Warn("L1 cache set failed", zap.String("key", key), zap.Error(err))
	}
	return m.remote.Set(ctx, key, value, ttl)
}

func (m *MultiLevelCache) Get(ctx context.Context, key string, target interface{}) error {
	if err := m.local.Get(ctx, key, target); err == nil {
		return nil
	}

	err := m.remote.Get(ctx, key, target)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			logger.Warn("L2 cache get failed", zap.String("key", key), zap.Error(err))
		}
		return ErrCacheMiss
	}

	// L2 Hit -> 回写 L1
	_ = m.local.Set(ctx, key, target, l1MaxTTL)
	return nil
}

func (m *MultiLevelCache) Delete(ctx context.Context, key string) error {
	_ = m.local.Delete(ctx, key)
	return m.remote.Delete(ctx, key)
}
