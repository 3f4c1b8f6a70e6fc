package di

import (
	"go.uber.org/fx"

	"github.com/Adrien490/synclune-sub005/internal/adapter/cache"
	"github.com/Adrien490/synclune-sub005/internal/adapter/payment"
	"github.com/Adrien490/synclune-sub005/internal/app"
	"github.com/Adrien490/synclune-sub005/internal/config"
	"github.com/Adrien490/synclune-sub005/internal/logger"
	"github.com/Adrien490/synclune-sub005/internal/notifier"
	"github.com/Adrien490/synclune-sub005/internal/server/http/handlers"
	"github.com/Adrien490/synclune-sub005/internal/server/http/router"
	"github.com/Adrien490/synclune-sub005/internal/storage/postgres"
	"github.com/Adrien490/synclune-sub005/internal/usecase"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		postgres.Module,
		payment.Module,
		cache.Module,
		notifier.Module,
		usecase.Module,
		fx.Provide(func(client payment.Client) usecase.PaymentProvider { return client }),
		fx.Provide(func(v *payment.Verifier) app.EventVerifier { return v }),
		fx.Provide(func(f *app.WebhookFacade) handlers.WebhookFacade { return f }),
		fx.Provide(func(s *postgres.Storage) handlers.HealthChecker { return s }),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
