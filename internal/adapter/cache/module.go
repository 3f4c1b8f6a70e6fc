package cache

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/Adrien490/synclune-sub005/internal/config"
)

// Module wires the Redis cache invalidator.
var Module = fx.Options(
	fx.Provide(newInvalidator),
	fx.Provide(func(r *RedisInvalidator) Invalidator { return r }),
	fx.Invoke(registerLifecycle),
)

type invalidatorParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newInvalidator(p invalidatorParams) *RedisInvalidator {
	client := redis.NewClient(&redis.Options{Addr: p.Config.RedisAddress})
	return NewRedisInvalidator(client, p.Logger)
}

func registerLifecycle(lc fx.Lifecycle, invalidator *RedisInvalidator) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return invalidator.Close()
		},
	})
}
