package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisMaxRetries      = 3
	redisMinRetryBackoff = 50 * time.Millisecond
	redisMaxRetryBackoff = 500 * time.Millisecond
	redisDialTimeout     = 3 * time.Second
	redisIOTimeout       = time.Second
)

// NewRedisClient configures a Redis client and verifies connectivity. Commands
// are retried with bounded backoff by the client before an error reaches the
// caller.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis url is required")
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	applyRetryPolicy(opt)

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// applyRetryPolicy fills in retry and timeout settings the URL did not set.
func applyRetryPolicy(opt *redis.Options) {
	if opt.MaxRetries == 0 {
		opt.MaxRetries = redisMaxRetries
	}
	if opt.MinRetryBackoff == 0 {
		opt.MinRetryBackoff = redisMinRetryBackoff
	}
	if opt.MaxRetryBackoff == 0 {
		opt.MaxRetryBackoff = redisMaxRetryBackoff
	}
	if opt.DialTimeout == 0 {
		opt.DialTimeout = redisDialTimeout
	}
	if opt.ReadTimeout == 0 {
		opt.ReadTimeout = redisIOTimeout
	}
	if opt.WriteTimeout == 0 {
		opt.WriteTimeout = redisIOTimeout
	}
}
