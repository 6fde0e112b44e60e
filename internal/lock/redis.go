package lock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL  = 30 * time.Second
	pollEvery   = 200 * time.Millisecond
	keyTemplate = "voidinvestor:lock:%s"
)

// releaseScript deletes the key only if we still own it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every process pointed at the same server. A
// held lock expires after ttl so a crashed holder cannot wedge the others.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ Locker = (*Redis)(nil)

// NewRedis connects to url (redis://...) and checks the connection.
func NewRedis(ctx context.Context, url string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Redis{rdb: rdb, ttl: ttl}, nil
}

func (r *Redis) Close() error { return r.rdb.Close() }

func (r *Redis) Acquire(ctx context.Context, name string) (func(), error) {
	key := fmt.Sprintf(keyTemplate, name)
	owner := uuid.NewString()

	ticker := time.NewTicker(pollEvery)
	defer ticker.Stop()
	for {
		ok, err := r.rdb.SetNX(ctx, key, owner, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("setnx failed: %w", err)
		}
		if ok {
			var once sync.Once
			return func() {
				once.Do(func() {
					// the caller's ctx may already be done
					relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := releaseScript.Run(relCtx, r.rdb, []string{key}, owner).Err(); err != nil {
						slog.Warn("failed to release redis lock", "key", key, "error", err)
					}
				})
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrNotAcquired, ctx.Err())
		case <-ticker.C:
		}
	}
}
