package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Invalidator drops cached entries identified by tags after a state
// transition commits. Best-effort: callers log failures and move on.
type Invalidator interface {
	Invalidate(ctx context.Context, tags ...string) error
}

// CartTag names the cached cart entry for a registered user.
func CartTag(userID int64) string {
	return "cart:user:" + strconv.FormatInt(userID, 10)
}

// ProductTag names the cached product page for a catalog product.
func ProductTag(productID int64) string {
	return "product:" + strconv.FormatInt(productID, 10)
}

// RedisInvalidator implements Invalidator on a shared Redis instance where
// the storefront keeps its rendered-fragment cache.
type RedisInvalidator struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisInvalidator(client *redis.Client, logger *slog.Logger) *RedisInvalidator {
	return &RedisInvalidator{client: client, logger: logger}
}

func (r *RedisInvalidator) Invalidate(ctx context.Context, tags ...string) error {
	if len(tags) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, tags...).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	r.logger.Debug("cache invalidated", slog.Int("tags", len(tags)))
	return nil
}

func (r *RedisInvalidator) Close() error {
	return r.client.Close()
}
