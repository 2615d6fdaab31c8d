package lock

import (
	"context"
	"stock-service/app/domain"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = domain.AccountKey{TenantID: 1, ProductID: 100}

func newTestLocker(t *testing.T) (*miniredis.Miniredis, domain.Locker) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewRedisLocker(client, time.Second, 5*time.Millisecond)
}

func TestRedisLocker_AcquireRelease(t *testing.T) {
	mr, locker := newTestLocker(t)
	ctx := context.Background()

	l, err := locker.Acquire(ctx, testKey, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, testKey, l.Key())
	assert.True(t, mr.Exists("stock:lock:1:100"))

	_, err = locker.Acquire(ctx, testKey, 30*time.Millisecond)
	assert.ErrorIs(t, err, domain.ErrLockTimeout)

	require.NoError(t, l.Release(ctx))
	assert.False(t, mr.Exists("stock:lock:1:100"))
	// idempotent
	require.NoError(t, l.Release(ctx))

	l2, err := locker.Acquire(ctx, testKey, 30*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, l2.Release(ctx))
}

func TestRedisLocker_DifferentProductsDoNotBlock(t *testing.T) {
	_, locker := newTestLocker(t)
	ctx := context.Background()

	l1, err := locker.Acquire(ctx, testKey, 30*time.Millisecond)
	require.NoError(t, err)
	defer l1.Release(ctx)

	l2, err := locker.Acquire(ctx, domain.AccountKey{TenantID: 1, ProductID: 101}, 30*time.Millisecond)
	require.NoError(t, err)
	defer l2.Release(ctx)

	l3, err := locker.Acquire(ctx, domain.AccountKey{TenantID: 2, ProductID: 100}, 30*time.Millisecond)
	require.NoError(t, err)
	defer l3.Release(ctx)
}

func TestRedisLocker_StaleReleaseKeepsNewHolder(t *testing.T) {
	mr, locker := newTestLocker(t)
	ctx := context.Background()

	stale, err := locker.Acquire(ctx, testKey, 30*time.Millisecond)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)
	require.False(t, mr.Exists("stock:lock:1:100"))

	current, err := locker.Acquire(ctx, testKey, 30*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, stale.Release(ctx))
	assert.True(t, mr.Exists("stock:lock:1:100"))

	require.NoError(t, current.Release(ctx))
	assert.False(t, mr.Exists("stock:lock:1:100"))
}

func TestRedisLocker_WaitsForRelease(t *testing.T) {
	_, locker := newTestLocker(t)
	ctx := context.Background()

	l, err := locker.Acquire(ctx, testKey, 30*time.Millisecond)
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		l.Release(ctx)
	}()

	l2, err := locker.Acquire(ctx, testKey, time.Second)
	require.NoError(t, err)
	require.NoError(t, l2.Release(ctx))
}

func TestRedisLocker_MutualExclusion(t *testing.T) {
	_, locker := newTestLocker(t)
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l, err := locker.Acquire(ctx, testKey, 2*time.Second)
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			assert.NoError(t, l.Release(ctx))
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
}

func TestRedisLocker_StoreUnavailableIsTimeout(t *testing.T) {
	mr, locker := newTestLocker(t)
	mr.Close()

	_, err := locker.Acquire(context.Background(), testKey, 20*time.Millisecond)
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
	assert.True(t, domain.IsRetryable(err))
}
