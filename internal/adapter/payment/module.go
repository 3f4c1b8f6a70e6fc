package payment

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/Adrien490/synclune-sub005/internal/config"
)

// Module exposes the webhook verifier and provider client to the fx graph.
var Module = fx.Provide(newVerifier, newClient)

func newVerifier(cfg *config.Config) *Verifier {
	return NewVerifier(cfg.WebhookSecret)
}

type clientParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newClient(p clientParams) (Client, error) {
	return NewHTTPClient(p.Config.PaymentAPIAddress, p.Config.PaymentAPIKey, p.Logger)
}
