package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, ttl), s
}

// exerciseMutualExclusion runs n goroutines that each bump a counter
// through a read-sleep-write window while holding key.
func exerciseMutualExclusion(t *testing.T, l Locker, n int) {
	t.Helper()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		counter atomic.Int64
		inside  int
		maxSeen int
		mu      sync.Mutex
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, "work:1")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			v := counter.Load()
			time.Sleep(time.Millisecond)
			counter.Store(v + 1)

			mu.Lock()
			inside--
			mu.Unlock()
			assert.NoError(t, unlock(ctx))
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(n), counter.Load())
	assert.Equal(t, 1, maxSeen)
}

func TestLocalMutualExclusion(t *testing.T) {
	exerciseMutualExclusion(t, NewLocal(), 20)
}

func TestLocalRespectsContext(t *testing.T) {
	l := NewLocal()
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock(context.Background()))
	// A second release is a no-op.
	require.NoError(t, unlock(context.Background()))

	unlock2, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	require.NoError(t, unlock2(context.Background()))
}

func TestLocalKeysAreIndependent(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	u1, err := l.Lock(ctx, "a")
	require.NoError(t, err)
	u2, err := l.Lock(ctx, "b")
	require.NoError(t, err)

	require.NoError(t, u1(ctx))
	require.NoError(t, u2(ctx))
}

// held reports how many keys have a holder or waiter.
func held(l *Local) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}

func TestLocalForgetsReleasedKeys(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "work:gone")
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = l.Lock(waitCtx, "work:gone")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, held(l))

	require.NoError(t, unlock(ctx))
	require.NoError(t, unlock(ctx))
	assert.Equal(t, 0, held(l))

	exerciseMutualExclusion(t, l, 10)
	assert.Equal(t, 0, held(l))
}

func TestRedisMutualExclusion(t *testing.T) {
	l, _ := setupRedis(t, 5*time.Second)
	exerciseMutualExclusion(t, l, 10)
}

func TestRedisTimeout(t *testing.T) {
	l, _ := setupRedis(t, 100*time.Millisecond)
	ctx := context.Background()

	_, err := l.Lock(ctx, "busy")
	require.NoError(t, err)

	// miniredis does not expire keys on its own clock, so the first
	// lease is still held when the second caller gives up.
	_, err = l.Lock(ctx, "busy")
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestRedisLeaseExpires(t *testing.T) {
	l, s := setupRedis(t, time.Second)
	ctx := context.Background()

	stale, err := l.Lock(ctx, "k")
	require.NoError(t, err)

	s.FastForward(2 * time.Second)

	fresh, err := l.Lock(ctx, "k")
	require.NoError(t, err)

	// The expired holder must not release the new lease.
	require.NoError(t, stale(ctx))
	assert.True(t, s.Exists("lock:k"))

	require.NoError(t, fresh(ctx))
	assert.False(t, s.Exists("lock:k"))
}

func TestRedisRenewsHeldLease(t *testing.T) {
	l, s := setupRedis(t, 150*time.Millisecond)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "slow")
	require.NoError(t, err)

	// miniredis only ages keys through FastForward, so age the lease past
	// most of its ttl and let the renewal tick restore it.
	s.FastForward(100 * time.Millisecond)
	require.Eventually(t, func() bool {
		return s.TTL("lock:slow") > 100*time.Millisecond
	}, time.Second, 10*time.Millisecond)

	s.FastForward(100 * time.Millisecond)
	assert.True(t, s.Exists("lock:slow"))

	_, err = l.Lock(ctx, "slow")
	assert.ErrorIs(t, err, ErrTimeout)

	require.NoError(t, unlock(ctx))
	assert.False(t, s.Exists("lock:slow"))
}
