package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	idempotencyPrefix    = "idempotency:v1:"
	inProgressMarker     = "__in_progress__"
	maxIdempotencyKeyLen = 128
)

// replay is the part of an OTP answer a retry needs to see again.
type replay struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Idempotency replays the first successful answer to a POST that repeats an
// Idempotency-Key header, so a retried OTP request does not send a second SMS.
// Failed attempts are forgotten and may be retried with the same key. Requests
// without the header, or without Redis, pass straight through.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get(idempotencyKeyHeader)
		if cache == nil || key == "" || c.Method() != fiber.MethodPost {
			return c.Next()
		}
		if len(key) > maxIdempotencyKeyLen {
			return fiber.NewError(fiber.StatusBadRequest, "Idempotency-Key too long")
		}

		ctx := c.UserContext()
		slot := idempotencyPrefix + c.Path() + ":" + key
		log := logger.With(slog.String("idempotency_key", key))

		reserved, err := cache.SetNX(ctx, slot, inProgressMarker, ttl).Result()
		if err != nil {
			log.ErrorContext(ctx, "idempotency reservation failed", slog.Any("error", err))
			return fiber.NewError(fiber.StatusServiceUnavailable, "idempotency store unavailable")
		}
		if !reserved {
			return replayStored(c, cache, slot, log)
		}

		if err := c.Next(); err != nil {
			release(cache, slot)
			return err
		}
		if c.Response().StatusCode() >= fiber.StatusBadRequest {
			release(cache, slot)
			return nil
		}

		payload, _ := json.Marshal(replay{
			Status:      c.Response().StatusCode(),
			ContentType: string(c.Response().Header.ContentType()),
			Body:        c.Response().Body(),
		})
		if err := cache.Set(ctx, slot, payload, ttl).Err(); err != nil {
			// The SMS already went out; the client still gets its answer.
			log.ErrorContext(ctx, "idempotent response not stored", slog.Any("error", err))
			release(cache, slot)
		}
		return nil
	}
}

func replayStored(c *fiber.Ctx, cache *redis.Client, slot string, log *slog.Logger) error {
	ctx := c.UserContext()
	raw, err := cache.Get(ctx, slot).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return fiber.NewError(fiber.StatusConflict, "duplicate request, retry")
	case err != nil:
		log.ErrorContext(ctx, "idempotency lookup failed", slog.Any("error", err))
		return fiber.NewError(fiber.StatusServiceUnavailable, "idempotency store unavailable")
	case string(raw) == inProgressMarker:
		return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
	}

	var stored replay
	if err := json.Unmarshal(raw, &stored); err != nil {
		log.WarnContext(ctx, "stored idempotent response unreadable", slog.Any("error", err))
		return fiber.NewError(fiber.StatusConflict, "duplicate request")
	}
	if stored.ContentType != "" {
		c.Set(fiber.HeaderContentType, stored.ContentType)
	}
	return c.Status(stored.Status).Send(stored.Body)
}

// release frees a reservation even when the request context is done.
func release(cache *redis.Client, slot string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	cache.Del(ctx, slot)
}
