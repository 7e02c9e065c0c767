package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lalith-99/inkwell/internal/ident"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds our token, so a
// holder whose lease expired cannot release someone else's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript pushes the lease out only while we still own it.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Redis is a lease-based lock shared by every instance pointed at the
// same Redis. A lease expires after ttl even if its holder dies.
//
// Why renew the lease? A slow storage call can outlast ttl, and a second
// holder would then enter the critical section with the first still in
// it. While the lock is held a goroutine extends the lease every ttl/3.
// Renewal stops at unlock, on a Redis error, or once the key belongs to
// someone else. A holder paused for longer than ttl can still lose its
// lease; with Postgres storage the works row lock keeps index writes
// serialized even then.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

// NewRedis builds a lock on client. Leases last ttl; callers wait up to
// ttl for a busy key before getting ErrTimeout.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{
		client: client,
		prefix: "lock:",
		ttl:    ttl,
		wait:   ttl,
		retry:  25 * time.Millisecond,
	}
}

func (l *Redis) Lock(ctx context.Context, key string) (Unlock, error) {
	k := l.prefix + key
	token := ident.GenerateToken(24)
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			stop := make(chan struct{})
			go l.renew(k, token, stop)
			return l.unlockFunc(k, token, stop), nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("acquire lock %s: %w", key, ErrTimeout)
		}

		timer := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// renew extends the lease on k until stop is closed or the lease is lost.
func (l *Redis) renew(k, token string, stop <-chan struct{}) {
	period := l.ttl / 3
	if period <= 0 {
		period = time.Millisecond
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), period)
		kept, err := extendScript.Run(ctx, l.client, []string{k}, token, l.ttl.Milliseconds()).Int()
		cancel()
		if err != nil || kept == 0 {
			return
		}
	}
}

func (l *Redis) unlockFunc(k, token string, stop chan struct{}) Unlock {
	var once sync.Once
	return func(ctx context.Context) error {
		once.Do(func() { close(stop) })
		if err := releaseScript.Run(ctx, l.client, []string{k}, token).Err(); err != nil {
			return fmt.Errorf("release lock %s: %w", k, err)
		}
		return nil
	}
}
