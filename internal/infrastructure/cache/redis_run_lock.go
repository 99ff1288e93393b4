package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/magpieiq/backend/internal/application/ingest"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the lock only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisRunLock keeps sync runs exclusive across processes with SET NX PX.
// The TTL bounds how long a crashed holder can block other instances.
type RedisRunLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisRunLock creates a run lock held for at most ttl
func NewRedisRunLock(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisRunLock {
	return &RedisRunLock{
		client: client,
		key:    KeyPrefix + "sync:lock",
		ttl:    ttl,
		logger: logger,
	}
}

// TryAcquire takes the lock. acquired is false while another holder owns it.
func (l *RedisRunLock) TryAcquire(ctx context.Context) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
			l.logger.Warn("Failed to release run lock", zap.Error(err))
		}
	}
	return release, true, nil
}

var _ ingest.RunLock = (*RedisRunLock)(nil)
