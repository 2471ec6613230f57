package lock

import (
	"context"
	"fmt"
	"time"

	"auction-marketplace/utils"

	"github.com/redis/go-redis/v9"
)

// Locker grants short-lived exclusive leases, so that replicas sharing a
// database do not run the same periodic job at the same time.
type Locker interface {
	// TryLock returns ok=false without error when someone else holds key.
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(context.Context), ok bool, err error)
}

// Noop always grants the lease. Used for single-replica deployments.
type Noop struct{}

func (Noop) TryLock(context.Context, string, time.Duration) (func(context.Context), bool, error) {
	return func(context.Context) {}, true, nil
}

// releaseScript deletes the key only if it still carries our token
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX and a token-checked release
type RedisLocker struct {
	client redis.UniversalClient
}

func NewRedisLocker(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: client}
}

// Dial connects to a single redis node and checks it is reachable
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context), bool, error) {
	token := utils.GenerateID()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	unlock := func(ctx context.Context) {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			utils.Warn("lock: release failed", map[string]any{"key": key, "error": err.Error()})
		}
	}
	return unlock, true, nil
}
