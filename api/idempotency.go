package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const headerIdempotencyKey = "Idempotency-Key"

// Deduper records idempotency keys so a retried add is not applied twice.
type Deduper interface {
	Add(ctx context.Context, userID, key string) (bool, error)
	Remove(ctx context.Context, userID, key string) error
}

// RedisDeduper stores processed idempotency keys in Redis so all instances
// share them.
type RedisDeduper struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisDeduper creates a deduper using the provided Redis client and TTL.
func NewRedisDeduper(client *redis.Client, prefix string, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisDeduper) key(userID, key string) string {
	return fmt.Sprintf("%sidempotency:%s:%s", r.prefix, userID, key)
}

// Add records the key if it does not already exist. It returns true when the
// key was newly added.
func (r *RedisDeduper) Add(ctx context.Context, userID, key string) (bool, error) {
	return r.client.SetNX(ctx, r.key(userID, key), 1, r.ttl).Result()
}

// Remove deletes a previously recorded key so a failed request may be retried.
func (r *RedisDeduper) Remove(ctx context.Context, userID, key string) error {
	return r.client.Del(ctx, r.key(userID, key)).Err()
}

// idempotent rejects a repeated Idempotency-Key with 409. Keys of requests
// that fail are released again.
func idempotent(d Deduper, logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if d == nil {
			return next
		}
		return func(c echo.Context) error {
			key := c.Request().Header.Get(headerIdempotencyKey)
			if key == "" {
				return next(c)
			}
			ctx := c.Request().Context()
			user := userFrom(c)
			added, err := d.Add(ctx, user, key)
			if err != nil {
				logger.WithFields(log.Fields{"key": key, "error": err}).Warn("idempotency check failed")
				return next(c)
			}
			if !added {
				setErrorStage(c, "duplicate")
				return c.JSON(http.StatusConflict, errorResponse{Error: "duplicate request"})
			}
			err = next(c)
			if err != nil || c.Response().Status >= http.StatusBadRequest {
				if rerr := d.Remove(context.WithoutCancel(ctx), user, key); rerr != nil {
					logger.WithFields(log.Fields{"key": key, "error": rerr}).Warn("release idempotency key failed")
				}
			}
			return err
		}
	}
}
