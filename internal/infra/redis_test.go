package infra

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestNewRedisClientAppliesRetryPolicy(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	opt := client.Options()
	if opt.MaxRetries != redisMaxRetries {
		t.Fatalf("MaxRetries = %d, want %d", opt.MaxRetries, redisMaxRetries)
	}
	if opt.MaxRetryBackoff != redisMaxRetryBackoff {
		t.Fatalf("MaxRetryBackoff = %v, want %v", opt.MaxRetryBackoff, redisMaxRetryBackoff)
	}
}

func TestNewRedisClientRequiresURL(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

func TestNewRedisClientFailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := NewRedisClient(ctx, "redis://"+addr+"/0"); err == nil {
		t.Fatalf("expected ping failure against closed server")
	}
}
