package repository

import (
	"context"
	"time"

	"github.com/Adrien490/synclune-sub005/internal/domain/model"
)

// OrderPatch carries the mutable order fields a transition may update.
// Nil fields are left untouched.
type OrderPatch struct {
	Status            *model.OrderStatus
	PaymentStatus     *model.PaymentStatus
	PaymentIntentID   *string
	CheckoutSessionID *string
	CustomerID        *string
	ShippingCost      *int64
	ShippingMethod    *string
	PaidAt            *time.Time
	CancelledAt       *time.Time
}

// RefundFields describes a refund record to create.
type RefundFields struct {
	OrderID          int64
	ProviderRefundID *string
	Amount           int64
	Currency         string
	Status           model.RefundStatus
	Note             string
}

// RefundPatch carries mutable refund fields. Nil fields are left untouched.
type RefundPatch struct {
	Status           *model.RefundStatus
	ProviderRefundID *string
	Note             *string
}

// ReconcileTx exposes the persistence operations available inside a single
// reconciliation transaction. Every mutation either commits together with the
// rest of the transition or not at all.
type ReconcileTx interface {
	// MarkEventProcessed records the provider event id in the dedup ledger.
	// It returns false when the id was already recorded, meaning the event
	// was fully processed by an earlier delivery.
	MarkEventProcessed(ctx context.Context, eventID string, eventType model.EventType) (bool, error)

	FindOrderIDByCheckoutSession(ctx context.Context, sessionID string) (int64, error)
	FindOrderIDByPaymentIntent(ctx context.Context, intentID string) (int64, error)

	// GetOrderForUpdate loads the order with its items and live variant
	// counters, taking a row lock that serializes concurrent transitions.
	GetOrderForUpdate(ctx context.Context, orderID int64) (*model.Order, error)
	UpdateOrder(ctx context.Context, orderID int64, patch OrderPatch) error

	// AdjustVariantInventory atomically applies delta to the variant counter
	// and returns the resulting value. It fails with ErrStockConflict when
	// the adjustment would drive the counter negative.
	AdjustVariantInventory(ctx context.Context, variantID int64, delta int64) (int64, error)
	DeactivateVariant(ctx context.Context, variantID int64) error

	DeleteCartItems(ctx context.Context, userID int64) error

	CreateRefund(ctx context.Context, fields RefundFields) (*model.Refund, error)
	UpdateRefund(ctx context.Context, refundID int64, patch RefundPatch) error
	FindRefundByProviderID(ctx context.Context, providerRefundID string) (*model.Refund, error)
	SumCompletedRefunds(ctx context.Context, orderID int64) (int64, error)
}

// UnitOfWork runs a reconciliation function inside one database transaction
// with isolation strict enough to prevent two concurrent transitions from
// both observing an unprocessed order.
type UnitOfWork interface {
	Reconcile(ctx context.Context, fn func(ReconcileTx) error) error
}
