package transaction

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"wallet-txcore/pkg/address"
	"wallet-txcore/pkg/errno"
	"wallet-txcore/pkg/logger"
	"wallet-txcore/pkg/utils/lock"
)

// Guard extends the duplicate check across processes sharing one Redis: an
// account holds the lock for a chain from registration until its record
// leaves the in-flight states.
type Guard struct {
	locker lock.DistributedLock
	ttl    time.Duration

	mu     sync.Mutex
	tokens map[string]string
}

func NewGuard(locker lock.DistributedLock, ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Guard{locker: locker, ttl: ttl, tokens: make(map[string]string)}
}

func guardKey(chain, addr string) string {
	return "tx:" + chain + ":" + address.Normalize(addr)
}

// Acquire fails with DUPLICATE_TRANSACTION when another holder owns the key.
func (g *Guard) Acquire(ctx context.Context, chain, addr string) error {
	key := guardKey(chain, addr)
	token, ok, err := g.locker.Acquire(ctx, key, g.ttl)
	if err != nil {
		return errno.NewTxError(errno.KindInternalError, "Unable to acquire transaction lock: "+err.Error())
	}
	if !ok {
		return errno.NewTxError(errno.KindDuplicateTransaction, "")
	}
	g.mu.Lock()
	g.tokens[key] = token
	g.mu.Unlock()
	return nil
}

// Release frees the key if this guard holds it.
func (g *Guard) Release(ctx context.Context, chain, addr string) {
	key := guardKey(chain, addr)
	g.mu.Lock()
	token, ok := g.tokens[key]
	delete(g.tokens, key)
	g.mu.Unlock()
	if !ok {
		return
	}
	if err := g.locker.Release(ctx, key, token); err != nil {
		logger.Warn("release transaction lock", zap.String("key", key), zap.Error(err))
	}
}
