package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/Adrien490/synclune-sub005/internal/adapter/cache"
	"github.com/Adrien490/synclune-sub005/internal/config"
	"github.com/Adrien490/synclune-sub005/internal/notifier"
	"github.com/Adrien490/synclune-sub005/internal/usecase"
	"github.com/Adrien490/synclune-sub005/internal/worker"
)

// Module wires application services, runtime components, and lifecycle hooks.
var Module = fx.Options(
	fx.Provide(
		NewWebhookFacade,
		func(u *usecase.ReconcileUseCase) Reconciler { return u },
		newEffectRunner,
		func(r *worker.EffectRunner) EffectExecutor { return r },
		newHTTPServer,
	),
	fx.Invoke(registerLifecycle),
)

type runnerParams struct {
	fx.In

	Notifier    notifier.Notifier
	Cache       cache.Invalidator
	Compensator usecase.Compensator
	Config      *config.Config
	Logger      *slog.Logger
}

func newEffectRunner(p runnerParams) *worker.EffectRunner {
	return worker.NewEffectRunner(
		p.Notifier,
		p.Cache,
		p.Compensator,
		p.Config.EffectTimeout,
		p.Config.EffectWorkers,
		p.Logger,
	)
}

type serverParams struct {
	fx.In

	Config *config.Config
	Router *gin.Engine
}

func newHTTPServer(p serverParams) *http.Server {
	return &http.Server{
		Addr:    p.Config.RunAddress,
		Handler: p.Router,
	}
}

type lifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *slog.Logger
	Server     *http.Server
	Config     *config.Config
}

func registerLifecycle(p lifecycleParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Info("starting payment webhook service", slog.String("addr", p.Server.Addr))
			go func() {
				if err := p.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("http server terminated", slog.String("error", err.Error()))
					_ = p.Shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx := ctx
			cancel := func() {}
			if _, ok := ctx.Deadline(); !ok {
				shutdownCtx, cancel = context.WithTimeout(ctx, p.Config.ShutdownTimeout)
			}
			defer cancel()

			if err := p.Server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			p.Logger.Info("payment webhook service stopped")
			return nil
		},
	})
}
