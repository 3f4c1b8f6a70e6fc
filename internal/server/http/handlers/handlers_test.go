package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/Adrien490/synclune-sub005/internal/domain/errors"
	"github.com/Adrien490/synclune-sub005/internal/server/http/dto"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type facadeStub struct {
	status string
	err    error

	body   []byte
	header string
}

func (s *facadeStub) Handle(_ context.Context, body []byte, sigHeader string) (string, error) {
	s.body = body
	s.header = sigHeader
	return s.status, s.err
}

type healthStub struct {
	err error
}

func (s healthStub) HealthCheck(context.Context) error {
	return s.err
}

func performRequest(t *testing.T, method, path string, handler gin.HandlerFunc, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	router := gin.New()
	router.Handle(method, path, handler)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeAck(t *testing.T, w *httptest.ResponseRecorder) dto.Acknowledgement {
	t.Helper()
	var ack dto.Acknowledgement
	if err := json.Unmarshal(w.Body.Bytes(), &ack); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return ack
}

func TestWebhookHandlerSuccess(t *testing.T) {
	facade := &facadeStub{status: "processed"}
	handler := NewWebhookHandler(facade, time.Second)

	w := performRequest(t, http.MethodPost, "/api/webhooks/payment", handler.Handle,
		[]byte(`{"id":"evt_1"}`), map[string]string{SignatureHeader: "t=1,v1=abc"})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	ack := decodeAck(t, w)
	if !ack.Received || ack.Status != "processed" {
		t.Fatalf("unexpected ack: %+v", ack)
	}
	if string(facade.body) != `{"id":"evt_1"}` {
		t.Fatalf("body not forwarded: %s", facade.body)
	}
	if facade.header != "t=1,v1=abc" {
		t.Fatalf("signature header not forwarded: %q", facade.header)
	}
}

func TestWebhookHandlerInvalidSignature(t *testing.T) {
	facade := &facadeStub{err: domainErrors.ErrSignatureInvalid}
	handler := NewWebhookHandler(facade, time.Second)

	w := performRequest(t, http.MethodPost, "/api/webhooks/payment", handler.Handle, []byte(`{}`), nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if ack := decodeAck(t, w); ack.Error == "" {
		t.Fatal("expected error message in response")
	}
}

func TestWebhookHandlerMalformedPayload(t *testing.T) {
	facade := &facadeStub{err: domainErrors.ErrMalformedEvent}
	handler := NewWebhookHandler(facade, time.Second)

	w := performRequest(t, http.MethodPost, "/api/webhooks/payment", handler.Handle, []byte(`nope`), nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestWebhookHandlerProcessingFailure(t *testing.T) {
	facade := &facadeStub{err: errors.New("db down")}
	handler := NewWebhookHandler(facade, time.Second)

	w := performRequest(t, http.MethodPost, "/api/webhooks/payment", handler.Handle, []byte(`{}`), nil)

	// 5xx asks the provider to redeliver later.
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	handler := NewHealthHandler(healthStub{})
	w := performRequest(t, http.MethodGet, "/healthz", handler.Check, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	handler = NewHealthHandler(healthStub{err: errors.New("pool exhausted")})
	w = performRequest(t, http.MethodGet, "/healthz", handler.Check, nil, nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}
