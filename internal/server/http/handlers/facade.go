package handlers

import "context"

// WebhookFacade is the processing capability the webhook endpoint requires.
type WebhookFacade interface {
	Handle(ctx context.Context, body []byte, sigHeader string) (string, error)
}

// HealthChecker verifies backing-store connectivity.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
