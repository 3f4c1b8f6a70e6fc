package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	domainErrors "github.com/Adrien490/synclune-sub005/internal/domain/errors"
	"github.com/Adrien490/synclune-sub005/internal/domain/model"
	"github.com/Adrien490/synclune-sub005/internal/domain/repository"
	"github.com/Adrien490/synclune-sub005/internal/notifier"
)

// RefundOutcome reports what the compensation attempt achieved.
type RefundOutcome struct {
	Issued           bool
	ProviderRefundID string
}

// Compensator issues compensating refunds after a failure or cancellation
// transition has committed.
type Compensator interface {
	MaybeRefund(ctx context.Context, req RefundRequest) RefundOutcome
}

// CompensationDispatcher attempts automatic refunds when a failed or canceled
// payment had already captured funds. Automatic refunds are a convenience,
// not a guarantee: a failed attempt is routed to an admin alert and never
// retried by this core, and it never unwinds the committed cancellation.
type CompensationDispatcher struct {
	store    repository.UnitOfWork
	payments PaymentProvider
	notifier notifier.Notifier
	logger   *slog.Logger
}

// NewCompensationDispatcher constructs the dispatcher.
func NewCompensationDispatcher(store repository.UnitOfWork, payments PaymentProvider, n notifier.Notifier, logger *slog.Logger) *CompensationDispatcher {
	return &CompensationDispatcher{store: store, payments: payments, notifier: n, logger: logger}
}

// MaybeRefund requests a provider refund for the captured amount and records
// it locally. All failure paths resolve to logging or an admin alert.
func (d *CompensationDispatcher) MaybeRefund(ctx context.Context, req RefundRequest) RefundOutcome {
	refund, err := d.payments.CreateRefund(ctx, req.PaymentIntentID, "requested_by_customer", map[string]string{
		"order_id":     formatID(req.OrderID),
		"order_number": req.OrderNumber,
		"cause":        req.Reason,
	})
	if err != nil {
		d.logger.Error("automatic refund failed",
			slog.Int64("order_id", req.OrderID),
			slog.String("payment_intent_id", req.PaymentIntentID),
			slog.Int64("amount", req.Amount),
			slog.String("error", err.Error()),
		)
		d.alertRefundFailure(ctx, req, err)
		return RefundOutcome{}
	}

	d.logger.Info("automatic refund issued",
		slog.Int64("order_id", req.OrderID),
		slog.String("provider_refund_id", refund.ID),
		slog.Int64("amount", req.Amount),
	)

	status := model.RefundStatusPending
	if refund.Status == "succeeded" {
		status = model.RefundStatusCompleted
	}

	err = d.store.Reconcile(ctx, func(tx repository.ReconcileTx) error {
		providerID := refund.ID
		_, err := tx.CreateRefund(ctx, repository.RefundFields{
			OrderID:          req.OrderID,
			ProviderRefundID: &providerID,
			Amount:           req.Amount,
			Currency:         req.Currency,
			Status:           status,
			Note:             "automatic refund: " + req.Reason,
		})
		return err
	})
	if err != nil && !errors.Is(err, domainErrors.ErrAlreadyExists) {
		// The provider refund stands; the charge_refunded event will recreate
		// the local record reactively.
		d.logger.Error("refund record write failed",
			slog.Int64("order_id", req.OrderID),
			slog.String("provider_refund_id", refund.ID),
			slog.String("error", err.Error()),
		)
	}

	return RefundOutcome{Issued: true, ProviderRefundID: refund.ID}
}

func (d *CompensationDispatcher) alertRefundFailure(ctx context.Context, req RefundRequest, cause error) {
	payload := map[string]any{
		"order_id":          req.OrderID,
		"order_number":      req.OrderNumber,
		"payment_intent_id": req.PaymentIntentID,
		"amount":            req.Amount,
		"currency":          req.Currency,
		"error":             cause.Error(),
	}
	if err := d.notifier.SendAdminRefundFailedAlert(ctx, payload); err != nil {
		d.logger.Error("refund failure alert undeliverable",
			slog.Int64("order_id", req.OrderID),
			slog.String("error", err.Error()),
		)
	}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
