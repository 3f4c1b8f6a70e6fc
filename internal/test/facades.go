package test

import (
	"context"
	"sync"

	"github.com/Adrien490/synclune-sub005/internal/domain/model"
)

// RefundCall records one provider refund request.
type RefundCall struct {
	PaymentIntentID string
	Reason          string
	Metadata        map[string]string
}

// PaymentProviderStub provides controllable payment API behaviour.
type PaymentProviderStub struct {
	RetrieveSessionFn func(context.Context, string, ...string) (*model.CheckoutSession, error)
	CreateRefundFn    func(context.Context, string, string, map[string]string) (*model.ProviderRefund, error)

	mu          sync.Mutex
	refundCalls []RefundCall
}

// RetrieveCheckoutSession delegates to the configured function or echoes a
// session with the requested id.
func (s *PaymentProviderStub) RetrieveCheckoutSession(ctx context.Context, sessionID string, expand ...string) (*model.CheckoutSession, error) {
	if s.RetrieveSessionFn != nil {
		return s.RetrieveSessionFn(ctx, sessionID, expand...)
	}
	return &model.CheckoutSession{ID: sessionID}, nil
}

// CreateRefund records the call and delegates or returns a succeeded refund.
func (s *PaymentProviderStub) CreateRefund(ctx context.Context, paymentIntentID, reason string, metadata map[string]string) (*model.ProviderRefund, error) {
	s.mu.Lock()
	s.refundCalls = append(s.refundCalls, RefundCall{PaymentIntentID: paymentIntentID, Reason: reason, Metadata: metadata})
	s.mu.Unlock()
	if s.CreateRefundFn != nil {
		return s.CreateRefundFn(ctx, paymentIntentID, reason, metadata)
	}
	return &model.ProviderRefund{ID: "re_" + paymentIntentID, Status: "succeeded"}, nil
}

// RefundCalls returns recorded refund requests.
func (s *PaymentProviderStub) RefundCalls() []RefundCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RefundCall, len(s.refundCalls))
	copy(out, s.refundCalls)
	return out
}

// SentNotification records one notifier send.
type SentNotification struct {
	Kind    string
	Payload map[string]any
}

// NotifierStub records notification sends.
type NotifierStub struct {
	SendFn func(kind string, payload map[string]any) error

	mu   sync.Mutex
	sent []SentNotification
}

func (s *NotifierStub) SendCustomerOrderConfirmation(ctx context.Context, payload map[string]any) error {
	return s.record("customer_order_confirmation", payload)
}

func (s *NotifierStub) SendAdminNewOrder(ctx context.Context, payload map[string]any) error {
	return s.record("admin_new_order", payload)
}

func (s *NotifierStub) SendAdminRefundFailedAlert(ctx context.Context, payload map[string]any) error {
	return s.record("admin_refund_failed", payload)
}

func (s *NotifierStub) record(kind string, payload map[string]any) error {
	s.mu.Lock()
	s.sent = append(s.sent, SentNotification{Kind: kind, Payload: payload})
	s.mu.Unlock()
	if s.SendFn != nil {
		return s.SendFn(kind, payload)
	}
	return nil
}

// Sent returns recorded notifications.
func (s *NotifierStub) Sent() []SentNotification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SentNotification, len(s.sent))
	copy(out, s.sent)
	return out
}

// InvalidatorStub records cache invalidation tags.
type InvalidatorStub struct {
	Err error

	mu   sync.Mutex
	tags []string
}

func (s *InvalidatorStub) Invalidate(ctx context.Context, tags ...string) error {
	s.mu.Lock()
	s.tags = append(s.tags, tags...)
	s.mu.Unlock()
	return s.Err
}

// Tags returns every invalidated tag in call order.
func (s *InvalidatorStub) Tags() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.tags))
	copy(out, s.tags)
	return out
}
