package app

import (
	"context"
	"errors"
	"log/slog"

	domainErrors "github.com/Adrien490/synclune-sub005/internal/domain/errors"
	"github.com/Adrien490/synclune-sub005/internal/domain/model"
	"github.com/Adrien490/synclune-sub005/internal/usecase"
)

// Acknowledgement statuses returned to the provider.
const (
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
	StatusIgnored   = "ignored"
	StatusNotFound  = "order_not_found"
)

// EventVerifier authenticates and decodes a raw webhook delivery.
type EventVerifier interface {
	Verify(body []byte, sigHeader string) (*model.Event, error)
}

// Reconciler is the order state machine surface the dispatcher routes to.
type Reconciler interface {
	HandleCheckoutCompleted(ctx context.Context, event *model.Event) (*usecase.Outcome, error)
	HandlePaymentSucceeded(ctx context.Context, event *model.Event) (*usecase.Outcome, error)
	HandlePaymentFailed(ctx context.Context, event *model.Event) (*usecase.Outcome, error)
	HandlePaymentCanceled(ctx context.Context, event *model.Event) (*usecase.Outcome, error)
	HandleCheckoutExpired(ctx context.Context, event *model.Event) (*usecase.Outcome, error)
	HandleChargeRefunded(ctx context.Context, event *model.Event) (*usecase.Outcome, error)
}

// EffectExecutor runs a transition's post-commit effect list.
type EffectExecutor interface {
	Run(ctx context.Context, outcome *usecase.Outcome)
}

// WebhookFacade is the top-level event dispatcher: verify, route to exactly
// one transition, execute post-commit effects, acknowledge.
type WebhookFacade struct {
	verifier  EventVerifier
	reconcile Reconciler
	effects   EffectExecutor
	logger    *slog.Logger
}

// NewWebhookFacade constructs the dispatcher.
func NewWebhookFacade(verifier EventVerifier, reconcile Reconciler, effects EffectExecutor, logger *slog.Logger) *WebhookFacade {
	return &WebhookFacade{verifier: verifier, reconcile: reconcile, effects: effects, logger: logger}
}

// Handle processes one raw webhook delivery and returns the acknowledgement
// status. Errors it returns are either permanently-invalid-request sentinels
// (signature, malformed payload) or genuine processing failures that should
// make the provider retry; every other condition resolves to a success ack.
func (f *WebhookFacade) Handle(ctx context.Context, body []byte, sigHeader string) (string, error) {
	event, err := f.verifier.Verify(body, sigHeader)
	if err != nil {
		if errors.Is(err, domainErrors.ErrSignatureInvalid) {
			f.logger.Warn("webhook signature rejected", slog.String("error", err.Error()))
		}
		return "", err
	}

	outcome, err := f.route(ctx, event)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			// Nothing to reconcile against; a provider retry cannot help.
			f.logger.Warn("event references unknown order",
				slog.String("event_id", event.ID),
				slog.String("event_type", string(event.Type)),
			)
			return StatusNotFound, nil
		}
		f.logger.Error("event processing failed",
			slog.String("event_id", event.ID),
			slog.String("event_type", string(event.Type)),
			slog.String("error", err.Error()),
		)
		return "", err
	}

	if outcome == nil {
		f.logger.Info("unhandled event type acknowledged", slog.String("event_id", event.ID))
		return StatusIgnored, nil
	}

	if outcome.Skipped != "" {
		f.logger.Info("event skipped",
			slog.String("event_id", event.ID),
			slog.String("event_type", string(event.Type)),
			slog.Int64("order_id", outcome.OrderID),
			slog.String("reason", outcome.Skipped),
		)
		return StatusSkipped, nil
	}

	f.effects.Run(ctx, outcome)

	f.logger.Info("event processed",
		slog.String("event_id", event.ID),
		slog.String("event_type", string(event.Type)),
		slog.Int64("order_id", outcome.OrderID),
	)
	return StatusProcessed, nil
}

func (f *WebhookFacade) route(ctx context.Context, event *model.Event) (*usecase.Outcome, error) {
	switch event.Type {
	case model.EventTypeCheckoutCompleted:
		return f.reconcile.HandleCheckoutCompleted(ctx, event)
	case model.EventTypePaymentSucceeded:
		return f.reconcile.HandlePaymentSucceeded(ctx, event)
	case model.EventTypePaymentFailed:
		return f.reconcile.HandlePaymentFailed(ctx, event)
	case model.EventTypePaymentCanceled:
		return f.reconcile.HandlePaymentCanceled(ctx, event)
	case model.EventTypeCheckoutExpired:
		return f.reconcile.HandleCheckoutExpired(ctx, event)
	case model.EventTypeChargeRefunded:
		return f.reconcile.HandleChargeRefunded(ctx, event)
	default:
		return nil, nil
	}
}
