package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/Adrien490/synclune-sub005/internal/domain/model"
)

// ProviderError represents a non-success response from the payment provider API.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e ProviderError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.StatusCode, e.Message)
}

// Client exposes the payment provider operations the reconciliation core needs.
type Client interface {
	RetrieveCheckoutSession(ctx context.Context, sessionID string, expand ...string) (*model.CheckoutSession, error)
	CreateRefund(ctx context.Context, paymentIntentID, reason string, metadata map[string]string) (*model.ProviderRefund, error)
}

// HTTPClient implements Client via the provider's HTTP API.
type HTTPClient struct {
	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPClient creates the provider client with default timeout.
func NewHTTPClient(baseURL, apiKey string, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse provider url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("provider url must be absolute")
	}
	return &HTTPClient{
		baseURL: parsed,
		apiKey:  apiKey,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// RetrieveCheckoutSession fetches the session with the requested expansions;
// the expanded shipping rate carries the authoritative shipping method name.
func (c *HTTPClient) RetrieveCheckoutSession(ctx context.Context, sessionID string, expand ...string) (*model.CheckoutSession, error) {
	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/v1/checkout/sessions/", sessionID)

	query := endpoint.Query()
	for _, e := range expand {
		query.Add("expand[]", e)
	}
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.readError(resp)
	}

	var payload sessionPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return payload.toModel(), nil
}

// CreateRefund asks the provider to return the captured funds for the intent.
// Each call carries a fresh idempotency key so a transport-level retry cannot
// double-refund.
func (c *HTTPClient) CreateRefund(ctx context.Context, paymentIntentID, reason string, metadata map[string]string) (*model.ProviderRefund, error) {
	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/v1/refunds")

	body, err := json.Marshal(map[string]any{
		"payment_intent": paymentIntentID,
		"reason":         reason,
		"metadata":       metadata,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.readError(resp)
	}

	var payload refundPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode refund: %w", err)
	}
	return &model.ProviderRefund{
		ID:       payload.ID,
		Amount:   payload.Amount,
		Currency: payload.Currency,
		Status:   payload.Status,
		Reason:   payload.Reason,
	}, nil
}

func (c *HTTPClient) authorize(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}

func (c *HTTPClient) readError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	c.logger.Error("provider request failed",
		slog.Int("status", resp.StatusCode),
		slog.String("body", string(body)),
	)
	return ProviderError{StatusCode: resp.StatusCode, Message: resp.Status}
}
