package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adrien490/synclune-sub005/internal/adapter/cache"
	"github.com/Adrien490/synclune-sub005/internal/notifier"
	"github.com/Adrien490/synclune-sub005/internal/usecase"
)

// EffectRunner executes the post-commit effect list a transition produced.
// Every effect runs under its own timeout and failures are logged, never
// propagated: a dead mail queue or cache must not turn a committed state
// transition into a provider-visible error.
type EffectRunner struct {
	notifier    notifier.Notifier
	cache       cache.Invalidator
	compensator usecase.Compensator
	timeout     time.Duration
	workers     int
	logger      *slog.Logger
}

// NewEffectRunner constructs the runner with a per-effect timeout and a
// bounded worker count for the best-effort effects.
func NewEffectRunner(n notifier.Notifier, c cache.Invalidator, comp usecase.Compensator, timeout time.Duration, workers int, logger *slog.Logger) *EffectRunner {
	if workers <= 0 {
		workers = 1
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &EffectRunner{
		notifier:    n,
		cache:       c,
		compensator: comp,
		timeout:     timeout,
		workers:     workers,
		logger:      logger,
	}
}

// Run executes all effects for the outcome and returns once they finished or
// timed out. The refund runs first and alone: it moves money and its failure
// handling (admin alert) lives in the compensator.
func (r *EffectRunner) Run(ctx context.Context, outcome *usecase.Outcome) {
	if outcome == nil || outcome.Effects.Empty() {
		return
	}

	if req := outcome.Effects.Refund; req != nil {
		refundCtx, cancel := context.WithTimeout(ctx, r.timeout)
		r.compensator.MaybeRefund(refundCtx, *req)
		cancel()
	}

	jobs := make(chan func(context.Context), len(outcome.Effects.Notifications)+1)

	for _, n := range outcome.Effects.Notifications {
		jobs <- r.notificationJob(outcome.OrderID, n)
	}
	if tags := outcome.Effects.CacheTags; len(tags) > 0 {
		jobs <- func(jobCtx context.Context) {
			if err := r.cache.Invalidate(jobCtx, tags...); err != nil {
				r.logger.Error("cache invalidation failed",
					slog.Int64("order_id", outcome.OrderID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				jobCtx, cancel := context.WithTimeout(ctx, r.timeout)
				job(jobCtx)
				cancel()
			}
		}()
	}
	wg.Wait()
}

func (r *EffectRunner) notificationJob(orderID int64, n usecase.Notification) func(context.Context) {
	return func(jobCtx context.Context) {
		var err error
		switch n.Kind {
		case notifier.KindCustomerOrderConfirmation:
			err = r.notifier.SendCustomerOrderConfirmation(jobCtx, n.Payload)
		case notifier.KindAdminNewOrder:
			err = r.notifier.SendAdminNewOrder(jobCtx, n.Payload)
		case notifier.KindAdminRefundFailed:
			err = r.notifier.SendAdminRefundFailedAlert(jobCtx, n.Payload)
		default:
			r.logger.Warn("unknown notification kind", slog.String("kind", string(n.Kind)))
			return
		}
		if err != nil {
			r.logger.Error("notification send failed",
				slog.Int64("order_id", orderID),
				slog.String("kind", string(n.Kind)),
				slog.String("error", err.Error()),
			)
		}
	}
}
