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
	DefaultTTL          = 5 * time.Minute
	defaultRetryBackoff = 50 * time.Millisecond
	releaseTimeout      = 5 * time.Second
)

// releaseScript deletes the key only while it still holds our token.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`

// Redis is a lease lock shared by every instance using the same Redis.
// The TTL must outlast the longest critical section, ledger calls included.
type Redis struct {
	client   redis.Cmdable
	ttl      time.Duration
	backoff  time.Duration
	newToken func() string
	logger   *slog.Logger
}

func NewRedis(client redis.Cmdable, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{
		client:   client,
		ttl:      ttl,
		backoff:  defaultRetryBackoff,
		newToken: uuid.NewString,
		logger:   slog.Default().With("module", "lock", "layer", "adapter"),
	}
}

func (r *Redis) Lock(ctx context.Context, key string) (Unlock, error) {
	redisKey := "lock:event:" + key
	token := r.newToken()

	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", redisKey, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.backoff):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()
			if err := r.client.Eval(releaseCtx, releaseScript, []string{redisKey}, token).Err(); err != nil {
				r.logger.Error("release lock failed",
					"operation", "unlock",
					"outcome", "failure",
					"key", redisKey,
					"error", err.Error(),
				)
			}
		})
	}, nil
}
