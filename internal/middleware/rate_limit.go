package middleware

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "rl:"

// PhoneRateLimit caps requests per phone number per minute under scope, using
// a fixed one-minute window in Redis. Requests without a phone fall back to the
// client IP. It is a no-op without Redis and fails open on cache errors.
func PhoneRateLimit(cache *redis.Client, scope string, maxPerMin int, logger *slog.Logger) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		var req struct {
			Phone string `json:"phone"`
		}
		_ = c.BodyParser(&req)
		subject := strings.TrimSpace(req.Phone)
		if subject == "" {
			subject = c.IP()
		}

		key := rateLimitPrefix + scope + ":" + subject
		ctx := c.UserContext()
		cnt, ttl, err := hitWindow(ctx, cache, key)
		if err != nil {
			logger.WarnContext(ctx, "rate limit check failed", slog.String("scope", scope), slog.Any("error", err))
			return c.Next()
		}
		if cnt > int64(maxPerMin) {
			if ttl > 0 {
				c.Set(fiber.HeaderRetryAfter, strconv.FormatInt(int64(math.Ceil(ttl.Seconds())), 10))
			}
			return fiber.NewError(http.StatusTooManyRequests, "too many attempts, try again later")
		}
		return c.Next()
	}
}

// hitWindow counts one request against key and returns the new count with the
// time left in the window. A counter found without a TTL, whether new or left
// behind by a failed EXPIRE, gets a fresh window.
func hitWindow(ctx context.Context, cache *redis.Client, key string) (int64, time.Duration, error) {
	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := cache.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		ttl = pipe.TTL(ctx, key)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	left := ttl.Val()
	if left < 0 {
		if err := cache.Expire(ctx, key, time.Minute).Err(); err != nil {
			return 0, 0, err
		}
		left = time.Minute
	}
	return incr.Val(), left, nil
}
