package notifier

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/Adrien490/synclune-sub005/internal/config"
)

// Module wires the Kafka-backed notifier.
var Module = fx.Options(
	fx.Provide(newNotifier),
	fx.Provide(func(n *KafkaNotifier) Notifier { return n }),
	fx.Invoke(registerLifecycle),
)

type notifierParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newNotifier(p notifierParams) *KafkaNotifier {
	return NewKafkaNotifier(p.Config.KafkaBrokers, p.Config.NotificationTopic, p.Logger)
}

func registerLifecycle(lc fx.Lifecycle, n *KafkaNotifier) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return n.Close()
		},
	})
}
