package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrLocked is returned by TryLock when the key is already held.
var ErrLocked = errors.New("lock is already held")

// Locker hands out exclusive per-key locks. The returned unlock func must be called.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SyncLockKey is the lock key guarding ingestion of one channel.
func SyncLockKey(channelRef string) string {
	return "channeldesk:sync:" + channelRef
}

const unlockScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`

// RedisLocker implements Locker with SET NX EX so that several API
// replicas and the queue worker share one lock per channel.
type RedisLocker struct {
	r *Redis
}

// NewRedisLocker returns a Locker backed by r.
func NewRedisLocker(r *Redis) *RedisLocker {
	return &RedisLocker{r: r}
}

// TryLock acquires key for ttl, or returns ErrLocked.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	ok, err := l.r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("cache lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return func() {
		// Background context: the lock must be released even if the request was cancelled.
		_ = l.r.client.Eval(context.Background(), unlockScript, []string{key}, token).Err()
	}, nil
}

// LocalLocker is an in-process Locker used when Redis is not configured.
// TTLs are ignored; locks live until unlocked.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalLocker returns an empty LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

// TryLock acquires key, or returns ErrLocked.
func (l *LocalLocker) TryLock(_ context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return nil, ErrLocked
	}
	l.held[key] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, nil
}
