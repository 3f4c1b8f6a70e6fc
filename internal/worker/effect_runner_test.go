package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Adrien490/synclune-sub005/internal/notifier"
	testhelpers "github.com/Adrien490/synclune-sub005/internal/test"
	"github.com/Adrien490/synclune-sub005/internal/usecase"
)

type compensatorStub struct {
	mu       sync.Mutex
	requests []usecase.RefundRequest
	outcome  usecase.RefundOutcome
}

func (c *compensatorStub) MaybeRefund(_ context.Context, req usecase.RefundRequest) usecase.RefundOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	return c.outcome
}

func (c *compensatorStub) calls() []usecase.RefundRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]usecase.RefundRequest, len(c.requests))
	copy(out, c.requests)
	return out
}

func newRunner(n *testhelpers.NotifierStub, inv *testhelpers.InvalidatorStub, comp *compensatorStub) *EffectRunner {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEffectRunner(n, inv, comp, time.Second, 2, logger)
}

func TestRunExecutesAllEffects(t *testing.T) {
	notifierStub := &testhelpers.NotifierStub{}
	invalidator := &testhelpers.InvalidatorStub{}
	comp := &compensatorStub{}

	outcome := &usecase.Outcome{
		OrderID: 42,
		Effects: usecase.Effects{
			CacheTags: []string{"cart:user:9"},
			Notifications: []usecase.Notification{
				{Kind: notifier.KindCustomerOrderConfirmation, Payload: map[string]any{"order_id": int64(42)}},
				{Kind: notifier.KindAdminNewOrder, Payload: map[string]any{"order_id": int64(42)}},
			},
			Refund: &usecase.RefundRequest{OrderID: 42, PaymentIntentID: "pi_1", Amount: 13400},
		},
	}

	newRunner(notifierStub, invalidator, comp).Run(context.Background(), outcome)

	if calls := comp.calls(); len(calls) != 1 || calls[0].PaymentIntentID != "pi_1" {
		t.Fatalf("expected one refund call, got %v", calls)
	}
	if sent := notifierStub.Sent(); len(sent) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(sent))
	}
	if tags := invalidator.Tags(); len(tags) != 1 || tags[0] != "cart:user:9" {
		t.Fatalf("expected cart tag invalidated, got %v", tags)
	}
}

func TestRunNilOutcomeIsNoOp(t *testing.T) {
	notifierStub := &testhelpers.NotifierStub{}
	invalidator := &testhelpers.InvalidatorStub{}
	comp := &compensatorStub{}

	runner := newRunner(notifierStub, invalidator, comp)
	runner.Run(context.Background(), nil)
	runner.Run(context.Background(), &usecase.Outcome{OrderID: 1})

	if len(notifierStub.Sent()) != 0 || len(invalidator.Tags()) != 0 || len(comp.calls()) != 0 {
		t.Fatal("empty outcome must trigger nothing")
	}
}

func TestRunFailuresAreIsolated(t *testing.T) {
	notifierStub := &testhelpers.NotifierStub{
		SendFn: func(string, map[string]any) error { return errors.New("mail queue down") },
	}
	invalidator := &testhelpers.InvalidatorStub{Err: errors.New("redis down")}
	comp := &compensatorStub{}

	outcome := &usecase.Outcome{
		OrderID: 42,
		Effects: usecase.Effects{
			CacheTags: []string{"product:3"},
			Notifications: []usecase.Notification{
				{Kind: notifier.KindCustomerOrderConfirmation, Payload: map[string]any{"order_id": int64(42)}},
			},
		},
	}

	// Must return despite every effect failing.
	newRunner(notifierStub, invalidator, comp).Run(context.Background(), outcome)

	if len(notifierStub.Sent()) != 1 {
		t.Fatal("notification should still have been attempted")
	}
	if len(invalidator.Tags()) != 1 {
		t.Fatal("invalidation should still have been attempted")
	}
}

func TestRunUnknownKindIsSkipped(t *testing.T) {
	notifierStub := &testhelpers.NotifierStub{}
	outcome := &usecase.Outcome{
		OrderID: 42,
		Effects: usecase.Effects{
			Notifications: []usecase.Notification{{Kind: "telegram", Payload: map[string]any{}}},
		},
	}

	newRunner(notifierStub, &testhelpers.InvalidatorStub{}, &compensatorStub{}).Run(context.Background(), outcome)

	if len(notifierStub.Sent()) != 0 {
		t.Fatal("unknown kinds must not be dispatched")
	}
}

func TestRunRefundBeforeNotifications(t *testing.T) {
	var order []string
	var mu sync.Mutex

	notifierStub := &testhelpers.NotifierStub{
		SendFn: func(string, map[string]any) error {
			mu.Lock()
			order = append(order, "notify")
			mu.Unlock()
			return nil
		},
	}
	comp := &compensatorStub{}

	runner := NewEffectRunner(
		notifierStub,
		&testhelpers.InvalidatorStub{},
		&orderedCompensator{inner: comp, mu: &mu, order: &order},
		time.Second, 1,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	outcome := &usecase.Outcome{
		OrderID: 42,
		Effects: usecase.Effects{
			Notifications: []usecase.Notification{
				{Kind: notifier.KindCustomerOrderConfirmation, Payload: map[string]any{}},
			},
			Refund: &usecase.RefundRequest{OrderID: 42, PaymentIntentID: "pi_1"},
		},
	}
	runner.Run(context.Background(), outcome)

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "refund" || order[1] != "notify" {
		t.Fatalf("expected refund before notifications, got %v", order)
	}
}

type orderedCompensator struct {
	inner *compensatorStub
	mu    *sync.Mutex
	order *[]string
}

func (c *orderedCompensator) MaybeRefund(ctx context.Context, req usecase.RefundRequest) usecase.RefundOutcome {
	c.mu.Lock()
	*c.order = append(*c.order, "refund")
	c.mu.Unlock()
	return c.inner.MaybeRefund(ctx, req)
}
