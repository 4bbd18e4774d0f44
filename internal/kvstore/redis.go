package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	casDeleted  = 1
	casMissing  = 0
	casMismatch = -1
)

// compareAndDelete returns 1 when the key matched and was deleted, 0 when the
// key is absent and -1 when the stored value differs.
var compareAndDelete = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if not current then
	return 0
end
if current == ARGV[1] then
	redis.call("DEL", KEYS[1])
	return 1
end
return -1
`)

// RedisStore implements Store on top of Redis.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps an open Redis client. The client lifecycle stays with
// the caller.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Set stores value with the given TTL.
func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return unavailable("set", err)
	}
	return nil
}

// Get fetches the value stored under key.
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", unavailable("get", err)
	}
	return value, nil
}

// Delete removes key if present.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return unavailable("del", err)
	}
	return nil
}

// GetDel returns and removes the value in a single GETDEL round trip.
func (s *RedisStore) GetDel(ctx context.Context, key string) (string, error) {
	value, err := s.client.GetDel(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", unavailable("getdel", err)
	}
	return value, nil
}

// CompareAndDelete runs the compare-and-delete script so that concurrent
// callers cannot both observe a match.
func (s *RedisStore) CompareAndDelete(ctx context.Context, key, expected string) error {
	res, err := compareAndDelete.Run(ctx, s.client, []string{key}, expected).Int()
	if err != nil {
		return unavailable("compare-and-delete", err)
	}
	switch res {
	case casDeleted:
		return nil
	case casMissing:
		return ErrNotFound
	case casMismatch:
		return ErrMismatch
	default:
		return fmt.Errorf("%w: unexpected script result %d", ErrUnavailable, res)
	}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}
