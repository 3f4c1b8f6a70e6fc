package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Adrien490/synclune-sub005/internal/adapter/cache"
	domainErrors "github.com/Adrien490/synclune-sub005/internal/domain/errors"
	"github.com/Adrien490/synclune-sub005/internal/domain/model"
	"github.com/Adrien490/synclune-sub005/internal/domain/repository"
	"github.com/Adrien490/synclune-sub005/internal/notifier"
)

// Skip reasons reported through Outcome.Skipped.
const (
	skipDuplicateEvent  = "duplicate event"
	skipAlreadyPaid     = "already paid"
	skipAlreadyResolved = "already resolved"
	skipStockRestored   = "stock already restored"
	skipSyncFailed      = "refund sync failed"
)

// ReconcileUseCase applies provider payment events to the order aggregate.
// Every transition runs inside a single transaction spanning the dedup
// ledger, the locked order read, the idempotency check and all mutations;
// side effects are returned as an Effects list for post-commit execution.
type ReconcileUseCase struct {
	store    repository.UnitOfWork
	payments PaymentProvider
	logger   *slog.Logger
	now      func() time.Time
}

// NewReconcileUseCase constructs the state machine over the given unit of work.
func NewReconcileUseCase(store repository.UnitOfWork, payments PaymentProvider, logger *slog.Logger) *ReconcileUseCase {
	return &ReconcileUseCase{
		store:    store,
		payments: payments,
		logger:   logger,
		now:      time.Now,
	}
}

// HandleCheckoutCompleted confirms payment for a checkout-driven order: it
// re-validates reserved items, marks the order paid and processing, delists
// depleted variants and clears the buyer's cart.
func (u *ReconcileUseCase) HandleCheckoutCompleted(ctx context.Context, event *model.Event) (*Outcome, error) {
	session := event.CheckoutSession
	if session == nil {
		return nil, fmt.Errorf("checkout completed without session payload: %w", domainErrors.ErrMalformedEvent)
	}

	// The session in the event may carry an unexpanded shipping rate; the
	// re-fetch happens before the transaction so no lock is held across the
	// network call. On failure the event payload is used as-is.
	shipping := session.ShippingCost
	if shipping == nil || shipping.ShippingRateName == "" {
		if fetched, err := u.payments.RetrieveCheckoutSession(ctx, session.ID, "shipping_cost.shipping_rate"); err != nil {
			u.logger.Warn("session re-fetch failed, using event payload",
				slog.String("session_id", session.ID),
				slog.String("error", err.Error()),
			)
		} else if fetched.ShippingCost != nil {
			shipping = fetched.ShippingCost
		}
	}

	outcome := &Outcome{}
	err := u.store.Reconcile(ctx, func(tx repository.ReconcileTx) error {
		fresh, err := tx.MarkEventProcessed(ctx, event.ID, event.Type)
		if err != nil {
			return err
		}
		if !fresh {
			outcome.Skipped = skipDuplicateEvent
			return nil
		}

		orderID, err := resolveSessionOrder(ctx, tx, session)
		if err != nil {
			return err
		}
		outcome.OrderID = orderID

		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		if !ShouldConfirm(order.PaymentStatus) {
			outcome.Skipped = skipAlreadyPaid
			return nil
		}

		// Funds are authorized at this point: any item whose variant vanished
		// or oversold is an operational anomaly that needs a human, not a
		// silent downgrade of a paid order.
		for _, item := range order.Items {
			if item.Variant == nil {
				return fmt.Errorf("order %d item %d: variant %d missing: %w",
					order.ID, item.ID, item.VariantID, domainErrors.ErrStockConflict)
			}
			if !item.Variant.IsActive {
				return fmt.Errorf("order %d item %d: variant %d inactive: %w",
					order.ID, item.ID, item.VariantID, domainErrors.ErrStockConflict)
			}
			if item.Variant.Inventory < 0 {
				return fmt.Errorf("order %d item %d: variant %d oversold: %w",
					order.ID, item.ID, item.VariantID, domainErrors.ErrStockConflict)
			}
		}

		patch := confirmPatch(u.now())
		patch.CheckoutSessionID = &session.ID
		if session.PaymentIntentID != "" {
			patch.PaymentIntentID = &session.PaymentIntentID
		}
		if session.CustomerID != "" {
			patch.CustomerID = &session.CustomerID
		}
		if shipping != nil {
			patch.ShippingCost = &shipping.AmountTotal
			if shipping.ShippingRateName != "" {
				patch.ShippingMethod = &shipping.ShippingRateName
			}
		}
		if err := tx.UpdateOrder(ctx, order.ID, patch); err != nil {
			return err
		}

		for _, item := range order.Items {
			if item.Variant.Inventory == 0 && item.Variant.IsActive {
				if err := tx.DeactivateVariant(ctx, item.VariantID); err != nil {
					return err
				}
				u.logger.Info("variant delisted on depletion",
					slog.Int64("order_id", order.ID),
					slog.Int64("variant_id", item.VariantID),
				)
			}
		}

		if order.UserID != nil {
			if err := tx.DeleteCartItems(ctx, *order.UserID); err != nil {
				return err
			}
			outcome.Effects.CacheTags = append(outcome.Effects.CacheTags, cache.CartTag(*order.UserID))
		}

		outcome.Effects.Notifications = []Notification{
			{Kind: notifier.KindCustomerOrderConfirmation, Payload: confirmationPayload(order)},
			{Kind: notifier.KindAdminNewOrder, Payload: adminOrderPayload(order)},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// HandlePaymentSucceeded confirms payment for intent-centric flows: the same
// target state as checkout completion without re-validation or cart clearing.
func (u *ReconcileUseCase) HandlePaymentSucceeded(ctx context.Context, event *model.Event) (*Outcome, error) {
	intent := event.PaymentIntent
	if intent == nil {
		return nil, fmt.Errorf("payment succeeded without intent payload: %w", domainErrors.ErrMalformedEvent)
	}

	outcome := &Outcome{}
	err := u.store.Reconcile(ctx, func(tx repository.ReconcileTx) error {
		fresh, err := tx.MarkEventProcessed(ctx, event.ID, event.Type)
		if err != nil {
			return err
		}
		if !fresh {
			outcome.Skipped = skipDuplicateEvent
			return nil
		}

		orderID, err := resolveIntentOrder(ctx, tx, intent)
		if err != nil {
			return err
		}
		outcome.OrderID = orderID

		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		if !ShouldConfirm(order.PaymentStatus) {
			outcome.Skipped = skipAlreadyPaid
			return nil
		}

		patch := confirmPatch(u.now())
		patch.PaymentIntentID = &intent.ID
		if err := tx.UpdateOrder(ctx, order.ID, patch); err != nil {
			return err
		}

		outcome.Effects.Notifications = []Notification{
			{Kind: notifier.KindCustomerOrderConfirmation, Payload: confirmationPayload(order)},
			{Kind: notifier.KindAdminNewOrder, Payload: adminOrderPayload(order)},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// HandlePaymentFailed cancels the order, restores reserved stock and, when
// funds were already captured, requests a compensating refund.
func (u *ReconcileUseCase) HandlePaymentFailed(ctx context.Context, event *model.Event) (*Outcome, error) {
	return u.cancelOnIntent(ctx, event, "payment failed")
}

// HandlePaymentCanceled mirrors HandlePaymentFailed for explicit cancellation.
func (u *ReconcileUseCase) HandlePaymentCanceled(ctx context.Context, event *model.Event) (*Outcome, error) {
	return u.cancelOnIntent(ctx, event, "payment canceled")
}

func (u *ReconcileUseCase) cancelOnIntent(ctx context.Context, event *model.Event, cause string) (*Outcome, error) {
	intent := event.PaymentIntent
	if intent == nil {
		return nil, fmt.Errorf("%s without intent payload: %w", cause, domainErrors.ErrMalformedEvent)
	}

	outcome := &Outcome{}
	err := u.store.Reconcile(ctx, func(tx repository.ReconcileTx) error {
		fresh, err := tx.MarkEventProcessed(ctx, event.ID, event.Type)
		if err != nil {
			return err
		}
		if !fresh {
			outcome.Skipped = skipDuplicateEvent
			return nil
		}

		orderID, err := resolveIntentOrder(ctx, tx, intent)
		if err != nil {
			return err
		}
		outcome.OrderID = orderID

		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		if !ShouldRestoreStock(order.PaymentStatus) {
			outcome.Skipped = skipStockRestored
			return nil
		}

		if err := u.restoreStock(ctx, tx, order); err != nil {
			return err
		}

		if err := tx.UpdateOrder(ctx, order.ID, cancelPatch(u.now())); err != nil {
			return err
		}

		if intent.Captured() {
			outcome.Effects.Refund = &RefundRequest{
				OrderID:         order.ID,
				OrderNumber:     order.Number,
				PaymentIntentID: intent.ID,
				Amount:          intent.AmountReceived,
				Currency:        intent.Currency,
				Reason:          cause,
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// HandleCheckoutExpired releases the reservation for an abandoned checkout.
// No capture ever occurred, so no refund is attempted.
func (u *ReconcileUseCase) HandleCheckoutExpired(ctx context.Context, event *model.Event) (*Outcome, error) {
	session := event.CheckoutSession
	if session == nil {
		return nil, fmt.Errorf("checkout expired without session payload: %w", domainErrors.ErrMalformedEvent)
	}

	outcome := &Outcome{}
	err := u.store.Reconcile(ctx, func(tx repository.ReconcileTx) error {
		fresh, err := tx.MarkEventProcessed(ctx, event.ID, event.Type)
		if err != nil {
			return err
		}
		if !fresh {
			outcome.Skipped = skipDuplicateEvent
			return nil
		}

		orderID, err := resolveSessionOrder(ctx, tx, session)
		if err != nil {
			return err
		}
		outcome.OrderID = orderID

		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		if !ShouldExpire(order.PaymentStatus) {
			outcome.Skipped = skipAlreadyResolved
			return nil
		}

		if err := u.restoreStock(ctx, tx, order); err != nil {
			return err
		}

		if err := tx.UpdateOrder(ctx, order.ID, cancelPatch(u.now())); err != nil {
			return err
		}

		seen := make(map[int64]struct{})
		for _, item := range order.Items {
			if item.Variant == nil {
				continue
			}
			if _, ok := seen[item.Variant.ProductID]; ok {
				continue
			}
			seen[item.Variant.ProductID] = struct{}{}
			outcome.Effects.CacheTags = append(outcome.Effects.CacheTags, cache.ProductTag(item.Variant.ProductID))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// HandleChargeRefunded syncs provider-side refunds into local records and
// flips the order to refunded when the cumulative amount covers the total.
// This is a reconciliation/audit path: its own failures are logged and
// swallowed so the webhook is never blocked on accounting bookkeeping.
func (u *ReconcileUseCase) HandleChargeRefunded(ctx context.Context, event *model.Event) (*Outcome, error) {
	charge := event.Charge
	if charge == nil {
		return nil, fmt.Errorf("charge refunded without charge payload: %w", domainErrors.ErrMalformedEvent)
	}

	outcome := &Outcome{}
	err := u.store.Reconcile(ctx, func(tx repository.ReconcileTx) error {
		fresh, err := tx.MarkEventProcessed(ctx, event.ID, event.Type)
		if err != nil {
			return err
		}
		if !fresh {
			outcome.Skipped = skipDuplicateEvent
			return nil
		}

		orderID, err := resolveChargeOrder(ctx, tx, charge)
		if err != nil {
			return err
		}
		outcome.OrderID = orderID

		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		for _, pr := range charge.Refunds {
			if err := u.syncRefund(ctx, tx, order, pr); err != nil {
				return err
			}
		}

		refunded, err := tx.SumCompletedRefunds(ctx, order.ID)
		if err != nil {
			return err
		}
		if refunded >= order.Total && order.PaymentStatus != model.PaymentStatusRefunded {
			status := model.PaymentStatusRefunded
			if err := tx.UpdateOrder(ctx, order.ID, repository.OrderPatch{PaymentStatus: &status}); err != nil {
				return err
			}
			u.logger.Info("order fully refunded",
				slog.Int64("order_id", order.ID),
				slog.Int64("refunded", refunded),
				slog.Int64("total", order.Total),
			)
		}
		return nil
	})
	if err != nil {
		u.logger.Error("refund sync failed",
			slog.String("event_id", event.ID),
			slog.String("charge_id", charge.ID),
			slog.String("error", err.Error()),
		)
		return &Outcome{OrderID: outcome.OrderID, Skipped: skipSyncFailed}, nil
	}
	return outcome, nil
}

func (u *ReconcileUseCase) syncRefund(ctx context.Context, tx repository.ReconcileTx, order *model.Order, pr model.ProviderRefund) error {
	local, err := tx.FindRefundByProviderID(ctx, pr.ID)
	switch {
	case err == nil:
		if local.Status == model.RefundStatusCompleted {
			return nil
		}
		status := model.RefundStatusCompleted
		return tx.UpdateRefund(ctx, local.ID, repository.RefundPatch{Status: &status})
	case isNotFound(err):
		providerID := pr.ID
		_, err := tx.CreateRefund(ctx, repository.RefundFields{
			OrderID:          order.ID,
			ProviderRefundID: &providerID,
			Amount:           pr.Amount,
			Currency:         pr.Currency,
			Status:           model.RefundStatusCompleted,
			Note:             "synced from provider-side refund",
		})
		return err
	default:
		return err
	}
}

// restoreStock returns each item's reserved quantity to its variant counter,
// logging before/after values for audit.
func (u *ReconcileUseCase) restoreStock(ctx context.Context, tx repository.ReconcileTx, order *model.Order) error {
	for _, item := range order.Items {
		after, err := tx.AdjustVariantInventory(ctx, item.VariantID, item.Quantity)
		if err != nil {
			return fmt.Errorf("restore stock for order %d variant %d: %w", order.ID, item.VariantID, err)
		}
		u.logger.Info("stock restored",
			slog.Int64("order_id", order.ID),
			slog.Int64("variant_id", item.VariantID),
			slog.Int64("quantity", item.Quantity),
			slog.Int64("inventory_before", after-item.Quantity),
			slog.Int64("inventory_after", after),
		)
	}
	return nil
}

func confirmPatch(now time.Time) repository.OrderPatch {
	status := model.OrderStatusProcessing
	paymentStatus := model.PaymentStatusPaid
	return repository.OrderPatch{
		Status:        &status,
		PaymentStatus: &paymentStatus,
		PaidAt:        &now,
	}
}

func cancelPatch(now time.Time) repository.OrderPatch {
	status := model.OrderStatusCancelled
	paymentStatus := model.PaymentStatusFailed
	return repository.OrderPatch{
		Status:        &status,
		PaymentStatus: &paymentStatus,
		CancelledAt:   &now,
	}
}

func resolveSessionOrder(ctx context.Context, tx repository.ReconcileTx, session *model.CheckoutSession) (int64, error) {
	if id, ok := parseOrderReference(session.OrderReference()); ok {
		return id, nil
	}
	return tx.FindOrderIDByCheckoutSession(ctx, session.ID)
}

func resolveIntentOrder(ctx context.Context, tx repository.ReconcileTx, intent *model.PaymentIntent) (int64, error) {
	if id, ok := parseOrderReference(intent.OrderReference()); ok {
		return id, nil
	}
	return tx.FindOrderIDByPaymentIntent(ctx, intent.ID)
}

func resolveChargeOrder(ctx context.Context, tx repository.ReconcileTx, charge *model.Charge) (int64, error) {
	if id, ok := parseOrderReference(charge.OrderReference()); ok {
		return id, nil
	}
	return tx.FindOrderIDByPaymentIntent(ctx, charge.PaymentIntentID)
}

func parseOrderReference(ref string) (int64, bool) {
	if ref == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func isNotFound(err error) bool {
	return errors.Is(err, domainErrors.ErrNotFound)
}
