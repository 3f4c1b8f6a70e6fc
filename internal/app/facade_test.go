package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	domainErrors "github.com/Adrien490/synclune-sub005/internal/domain/errors"
	"github.com/Adrien490/synclune-sub005/internal/domain/model"
	"github.com/Adrien490/synclune-sub005/internal/usecase"
)

type verifierStub struct {
	event *model.Event
	err   error
}

func (s verifierStub) Verify([]byte, string) (*model.Event, error) {
	return s.event, s.err
}

type reconcilerStub struct {
	outcome *usecase.Outcome
	err     error
	calls   []model.EventType
}

func (s *reconcilerStub) handle(event *model.Event) (*usecase.Outcome, error) {
	s.calls = append(s.calls, event.Type)
	return s.outcome, s.err
}

func (s *reconcilerStub) HandleCheckoutCompleted(_ context.Context, e *model.Event) (*usecase.Outcome, error) {
	return s.handle(e)
}
func (s *reconcilerStub) HandlePaymentSucceeded(_ context.Context, e *model.Event) (*usecase.Outcome, error) {
	return s.handle(e)
}
func (s *reconcilerStub) HandlePaymentFailed(_ context.Context, e *model.Event) (*usecase.Outcome, error) {
	return s.handle(e)
}
func (s *reconcilerStub) HandlePaymentCanceled(_ context.Context, e *model.Event) (*usecase.Outcome, error) {
	return s.handle(e)
}
func (s *reconcilerStub) HandleCheckoutExpired(_ context.Context, e *model.Event) (*usecase.Outcome, error) {
	return s.handle(e)
}
func (s *reconcilerStub) HandleChargeRefunded(_ context.Context, e *model.Event) (*usecase.Outcome, error) {
	return s.handle(e)
}

type executorStub struct {
	outcomes []*usecase.Outcome
}

func (s *executorStub) Run(_ context.Context, outcome *usecase.Outcome) {
	s.outcomes = append(s.outcomes, outcome)
}

func newFacade(v EventVerifier, r Reconciler, e EffectExecutor) *WebhookFacade {
	return NewWebhookFacade(v, r, e, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHandleProcessedRunsEffects(t *testing.T) {
	event := &model.Event{ID: "evt_1", Type: model.EventTypeCheckoutCompleted}
	outcome := &usecase.Outcome{OrderID: 42}
	reconciler := &reconcilerStub{outcome: outcome}
	executor := &executorStub{}

	status, err := newFacade(verifierStub{event: event}, reconciler, executor).
		Handle(context.Background(), []byte("{}"), "t=1,v1=x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusProcessed {
		t.Fatalf("expected %q, got %q", StatusProcessed, status)
	}
	if len(reconciler.calls) != 1 || reconciler.calls[0] != model.EventTypeCheckoutCompleted {
		t.Fatalf("unexpected routing: %v", reconciler.calls)
	}
	if len(executor.outcomes) != 1 || executor.outcomes[0] != outcome {
		t.Fatal("effects were not executed")
	}
}

func TestHandleRoutesEveryEventType(t *testing.T) {
	types := []model.EventType{
		model.EventTypeCheckoutCompleted,
		model.EventTypePaymentSucceeded,
		model.EventTypePaymentFailed,
		model.EventTypePaymentCanceled,
		model.EventTypeCheckoutExpired,
		model.EventTypeChargeRefunded,
	}
	for _, typ := range types {
		reconciler := &reconcilerStub{outcome: &usecase.Outcome{OrderID: 1}}
		facade := newFacade(verifierStub{event: &model.Event{ID: "e", Type: typ}}, reconciler, &executorStub{})
		if _, err := facade.Handle(context.Background(), nil, ""); err != nil {
			t.Fatalf("%s: %v", typ, err)
		}
		if len(reconciler.calls) != 1 || reconciler.calls[0] != typ {
			t.Fatalf("%s not routed: %v", typ, reconciler.calls)
		}
	}
}

func TestHandleSignatureFailure(t *testing.T) {
	facade := newFacade(verifierStub{err: domainErrors.ErrSignatureInvalid}, &reconcilerStub{}, &executorStub{})
	if _, err := facade.Handle(context.Background(), nil, "bad"); !errors.Is(err, domainErrors.ErrSignatureInvalid) {
		t.Fatalf("expected signature error, got %v", err)
	}
}

func TestHandleUnknownTypeAcknowledged(t *testing.T) {
	event := &model.Event{ID: "evt_1", Type: model.EventTypeUnknown}
	reconciler := &reconcilerStub{}
	executor := &executorStub{}

	status, err := newFacade(verifierStub{event: event}, reconciler, executor).
		Handle(context.Background(), nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusIgnored {
		t.Fatalf("expected %q, got %q", StatusIgnored, status)
	}
	if len(reconciler.calls) != 0 {
		t.Fatal("unknown events must not reach the state machine")
	}
}

func TestHandleUnknownOrderAcknowledged(t *testing.T) {
	event := &model.Event{ID: "evt_1", Type: model.EventTypePaymentSucceeded}
	reconciler := &reconcilerStub{err: domainErrors.ErrNotFound}

	status, err := newFacade(verifierStub{event: event}, reconciler, &executorStub{}).
		Handle(context.Background(), nil, "")
	if err != nil {
		t.Fatalf("not-found must not be returned to the provider: %v", err)
	}
	if status != StatusNotFound {
		t.Fatalf("expected %q, got %q", StatusNotFound, status)
	}
}

func TestHandleSkippedOutcome(t *testing.T) {
	event := &model.Event{ID: "evt_1", Type: model.EventTypePaymentSucceeded}
	reconciler := &reconcilerStub{outcome: &usecase.Outcome{OrderID: 42, Skipped: "already paid"}}
	executor := &executorStub{}

	status, err := newFacade(verifierStub{event: event}, reconciler, executor).
		Handle(context.Background(), nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusSkipped {
		t.Fatalf("expected %q, got %q", StatusSkipped, status)
	}
	if len(executor.outcomes) != 0 {
		t.Fatal("skipped outcomes must not run effects")
	}
}

func TestHandleProcessingFailurePropagates(t *testing.T) {
	event := &model.Event{ID: "evt_1", Type: model.EventTypeCheckoutCompleted}
	cause := errors.New("db down")
	reconciler := &reconcilerStub{err: cause}

	if _, err := newFacade(verifierStub{event: event}, reconciler, &executorStub{}).
		Handle(context.Background(), nil, ""); !errors.Is(err, cause) {
		t.Fatalf("expected processing error, got %v", err)
	}
}
