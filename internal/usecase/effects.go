package usecase

import (
	"context"

	"github.com/Adrien490/synclune-sub005/internal/domain/model"
	"github.com/Adrien490/synclune-sub005/internal/notifier"
)

// Notification is a send request for the side-effect notifier.
type Notification struct {
	Kind    notifier.Kind
	Payload map[string]any
}

// RefundRequest asks the compensation dispatcher to return captured funds.
type RefundRequest struct {
	OrderID         int64
	OrderNumber     string
	PaymentIntentID string
	Amount          int64
	Currency        string
	Reason          string
}

// Effects is the post-commit side-effect list a transition produces. The
// state machine itself never performs side effects; the dispatcher executes
// this list after the transaction commits, each entry individually
// time-bounded and failure-isolated.
type Effects struct {
	CacheTags     []string
	Notifications []Notification
	Refund        *RefundRequest
}

// Empty reports whether the transition produced no side effects.
func (e Effects) Empty() bool {
	return len(e.CacheTags) == 0 && len(e.Notifications) == 0 && e.Refund == nil
}

// Outcome is the result of applying one event to the order aggregate.
type Outcome struct {
	OrderID int64
	// Skipped carries the idempotency short-circuit reason; empty when the
	// transition actually mutated state.
	Skipped string
	Effects Effects
}

// PaymentProvider is the subset of the provider API the core calls outside
// its transactions.
type PaymentProvider interface {
	RetrieveCheckoutSession(ctx context.Context, sessionID string, expand ...string) (*model.CheckoutSession, error)
	CreateRefund(ctx context.Context, paymentIntentID, reason string, metadata map[string]string) (*model.ProviderRefund, error)
}

func confirmationPayload(order *model.Order) map[string]any {
	payload := map[string]any{
		"order_id":     order.ID,
		"order_number": order.Number,
		"total":        order.Total,
		"currency":     order.Currency,
	}
	if order.UserID != nil {
		payload["user_id"] = *order.UserID
	}
	return payload
}

func adminOrderPayload(order *model.Order) map[string]any {
	payload := confirmationPayload(order)
	payload["items"] = len(order.Items)
	return payload
}
