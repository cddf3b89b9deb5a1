package propertystore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store using Redis as the shared key-value backend.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to addr and returns a RedisStore, probing the
// connection with a short-lived ping before returning.
func NewRedisStore(addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client, prefix: "gasdb:"}, nil
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get from Redis: %w", err)
	}
	return val, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set in Redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete from Redis: %w", err)
	}
	return nil
}

// releaseScript performs a compare-and-delete: only the holder that set
// lockToken may release the lock, the standard go-redis distributed lock
// idiom.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

// RedisLock implements AdvisoryLock as a Redis-backed distributed lock using
// SET NX PX for acquisition and a Lua compare-and-delete for release, so only
// the holder that set the current token can release the lock.
type RedisLock struct {
	client *redis.Client
	key    string
	token  string
}

// NewRedisLock creates a lock bound to lockKey on the given Redis address.
func NewRedisLock(addr string, lockKey string) (*RedisLock, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	return &RedisLock{client: client, key: "gasdb:lock:" + lockKey}, nil
}

func (l *RedisLock) TryAcquire(ctx context.Context, timeout time.Duration) (bool, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(timeout)

	for {
		ok, err := l.client.SetNX(ctx, l.key, token, timeout).Result()
		if err != nil {
			return false, fmt.Errorf("failed to acquire Redis lock: %w", err)
		}
		if ok {
			l.token = token
			return true, nil
		}

		if time.Now().After(deadline) {
			return false, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func (l *RedisLock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	if err := l.client.Eval(ctx, releaseScript, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("failed to release Redis lock: %w", err)
	}
	l.token = ""
	return nil
}
