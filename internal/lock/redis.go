package lock

import (
	"context"
	"fmt"
	"time"

	"account_system/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// unlockScript deletes the key only while it still holds our token, so an
// expired lease never releases somebody else's lock.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is an AccountLocker shared by every instance pointing at the same Redis.
type RedisLocker struct {
	client *redis.Client
	wait   time.Duration
	lease  time.Duration
}

// NewRedisLocker creates a RedisLocker. wait bounds how long Lock polls,
// lease bounds how long a crashed holder can keep the account blocked.
func NewRedisLocker(client *redis.Client, wait, lease time.Duration) *RedisLocker {
	if wait <= 0 {
		wait = DefaultWait
	}
	if lease <= 0 {
		lease = DefaultLease
	}
	return &RedisLocker{client: client, wait: wait, lease: lease}
}

// Lock acquires the account's lock or fails with domain.ErrAccountTransactionLock.
func (l *RedisLocker) Lock(ctx context.Context, accountNumber string) (func(), error) {
	key := Key(accountNumber)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.lease).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			logrus.WithField("lock_key", key).Debug("Account lock acquired")
			return func() { l.unlock(key, token) }, nil
		}
		if time.Now().After(deadline) {
			logrus.WithField("lock_key", key).Warn("Account lock wait elapsed")
			return nil, domain.ErrAccountTransactionLock
		}
		select {
		case <-time.After(retryInterval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// unlock runs detached from the request context so a cancelled request still releases.
func (l *RedisLocker) unlock(key, token string) {
	if err := unlockScript.Run(context.Background(), l.client, []string{key}, token).Err(); err != nil {
		logrus.WithFields(logrus.Fields{
			"lock_key": key,
			"error":    err.Error(),
		}).Error("Failed to release account lock")
		return
	}
	logrus.WithField("lock_key", key).Debug("Account lock released")
}
