package transaction

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-txcore/internal/chain"
	"wallet-txcore/pkg/errno"
	"wallet-txcore/pkg/utils/lock"
)

const (
	evmAddr     = "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"
	dotAddr     = "15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5"
	genericAddr = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
)

func requireKind(t *testing.T, err error, kind errno.Kind) {
	t.Helper()
	require.Error(t, err)
	var txErr *errno.TxError
	require.True(t, errors.As(err, &txErr), "not a TxError: %v", err)
	assert.Equal(t, kind, txErr.Kind, txErr.Message)
}

func record(id, slug, addr string) Record {
	return Record{
		Intent: Intent{Address: addr, Chain: slug, Ledger: chain.LedgerSubstrate, Type: chain.TransferBalance},
		ID:     id,
		Status: StatusPending,
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusPending, true},
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusFail, true},
		{StatusProcessing, StatusSuccess, true},
		{StatusProcessing, StatusPending, false},
		{StatusSuccess, StatusFail, false},
		{StatusFail, StatusProcessing, false},
		{StatusSuccess, StatusSuccess, true},
		{StatusPending, Status("LOST"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestStoreDuplicateAccount(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Insert(record("a", "polkadot", dotAddr)))

	// the same key under another SS58 prefix is the same account
	requireKind(t, s.Insert(record("b", "polkadot", genericAddr)), errno.KindDuplicateTransaction)
	require.NoError(t, s.Insert(record("c", "kusama", dotAddr)))

	_, err := s.Update("a", func(r *Record) { r.Status = StatusFail })
	require.NoError(t, err)
	require.NoError(t, s.Insert(record("b", "polkadot", genericAddr)))

	requireKind(t, s.Insert(record("b", "polkadot", evmAddr)), errno.KindInternalError)
}

func TestStoreConcurrentInsert(t *testing.T) {
	s := NewStore()

	const n = 32
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			// alternate prefixes of the same key
			addr := dotAddr
			if i%2 == 1 {
				addr = genericAddr
			}
			errs[i] = s.Insert(record(fmt.Sprintf("tx-%d", i), "polkadot", addr))
		}(i)
	}
	close(start)
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		requireKind(t, err, errno.KindDuplicateTransaction)
	}
	assert.Equal(t, 1, ok)
	assert.Len(t, s.Snapshot(), 1)
	assert.True(t, s.InFlight("polkadot", genericAddr))
	assert.False(t, s.InFlight("kusama", dotAddr))
}

func TestStoreUpdate(t *testing.T) {
	s := NewStore()
	clock := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }
	require.NoError(t, s.Insert(record("a", "polkadot", dotAddr)))

	clock = clock.Add(time.Minute)
	rec, err := s.Update("a", func(r *Record) {
		r.ID = "hijack"
		r.Status = StatusProcessing
		r.ExtrinsicHash = "0x01"
	})
	require.NoError(t, err)
	assert.Equal(t, "a", rec.ID)
	assert.Equal(t, StatusProcessing, rec.Status)
	assert.Equal(t, clock, rec.UpdatedAt)
	assert.True(t, rec.CreatedAt.Before(rec.UpdatedAt))

	_, err = s.Update("a", func(r *Record) { r.Status = StatusPending })
	requireKind(t, err, errno.KindInternalError)
	got, _ := s.Get("a")
	assert.Equal(t, StatusProcessing, got.Status)

	_, err = s.Update("missing", func(*Record) {})
	assert.ErrorIs(t, err, errno.ErrTransactionNotFound)
}

func TestStoreReturnsCopies(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Insert(record("a", "polkadot", dotAddr)))

	got, _ := s.Get("a")
	got.Errors = append(got.Errors, errno.NewTxError(errno.KindUnableToSend, ""))
	got.Status = StatusFail

	again, _ := s.Get("a")
	assert.Empty(t, again.Errors)
	assert.Equal(t, StatusPending, again.Status)
}

func TestStoreSubscribe(t *testing.T) {
	s := NewStore()
	ch, cancel := s.Subscribe()

	first := <-ch
	assert.Empty(t, first)

	require.NoError(t, s.Insert(record("a", "polkadot", dotAddr)))
	require.NoError(t, s.Insert(record("b", "kusama", dotAddr)))
	// a slow reader only sees the latest snapshot
	snap := <-ch
	require.Len(t, snap, 2)

	_, ok := s.Remove("a")
	require.True(t, ok)
	snap = <-ch
	require.Len(t, snap, 1)
	assert.Equal(t, "b", snap[0].ID)

	cancel()
	_, open := <-ch
	assert.False(t, open)
	_, ok = s.Remove("a")
	assert.False(t, ok)
}

func TestStoreCounts(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Insert(record("a", "polkadot", dotAddr)))
	require.NoError(t, s.Insert(record("b", "kusama", dotAddr)))
	_, err := s.Update("b", func(r *Record) { r.Status = StatusSuccess })
	require.NoError(t, err)

	counts := s.Counts()
	assert.Equal(t, 1, counts[StatusPending])
	assert.Equal(t, 1, counts[StatusSuccess])
	assert.Equal(t, 0, counts[StatusProcessing])
}

func TestGuard(t *testing.T) {
	ctx := context.Background()
	locker := lock.NewMemoryLock()
	a := NewGuard(locker, time.Minute)
	b := NewGuard(locker, time.Minute)

	require.NoError(t, a.Acquire(ctx, "polkadot", dotAddr))
	requireKind(t, b.Acquire(ctx, "polkadot", genericAddr), errno.KindDuplicateTransaction)
	require.NoError(t, b.Acquire(ctx, "kusama", dotAddr))

	// releasing a key held by someone else is a no-op
	b.Release(ctx, "polkadot", dotAddr)
	requireKind(t, b.Acquire(ctx, "polkadot", dotAddr), errno.KindDuplicateTransaction)

	a.Release(ctx, "polkadot", dotAddr)
	require.NoError(t, b.Acquire(ctx, "polkadot", dotAddr))
}
