package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// ErrNotHeld is returned by Release when the token no longer owns the key.
var ErrNotHeld = errors.New("lock not held")

// DistributedLock 定义分布式锁接口
type DistributedLock interface {
	// Acquire 尝试获取锁，成功时返回归属 token
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)

	// Release 释放锁，只有持有 token 的一方才能删除
	Release(ctx context.Context, key, token string) error
}

// RedisLock 基于 Redis SET NX 的实现
type RedisLock struct {
	client *redis.Client
}

func NewRedisLock(client *redis.Client) *RedisLock {
	return &RedisLock{client: client}
}

// 检查 value 归属后再删除
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (l *RedisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, "lock:"+key, token, ttl).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

func (l *RedisLock) Release(ctx context.Context, key, token string) error {
	n, err := releaseScript.Run(ctx, l.client, []string{"lock:" + key}, token).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}

// MemoryLock is the single-process variant used when Redis is disabled.
type MemoryLock struct {
	c *gocache.Cache
}

func NewMemoryLock() *MemoryLock {
	return &MemoryLock{c: gocache.New(gocache.NoExpiration, time.Minute)}
}

func (l *MemoryLock) Acquire(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	if err := l.c.Add("lock:"+key, token, ttl); err != nil {
		return "", false, nil
	}
	return token, true, nil
}

func (l *MemoryLock) Release(_ context.Context, key, token string) error {
	v, ok := l.c.Get("lock:" + key)
	if !ok || v.(string) != token {
		return ErrNotHeld
	}
	l.c.Delete("lock:" + key)
	return nil
}
