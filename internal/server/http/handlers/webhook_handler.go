package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/Adrien490/synclune-sub005/internal/domain/errors"
	"github.com/Adrien490/synclune-sub005/internal/server/http/dto"
)

// SignatureHeader carries the provider's payload signature.
const SignatureHeader = "X-Payment-Signature"

// WebhookHandler serves the payment provider webhook endpoint.
type WebhookHandler struct {
	facade     WebhookFacade
	ackTimeout time.Duration
}

// NewWebhookHandler constructs WebhookHandler with the acknowledgement budget.
func NewWebhookHandler(facade WebhookFacade, ackTimeout time.Duration) *WebhookHandler {
	if ackTimeout <= 0 {
		ackTimeout = 5 * time.Second
	}
	return &WebhookHandler{facade: facade, ackTimeout: ackTimeout}
}

// Handle handles POST /api/webhooks/payment. A 4xx tells the provider the
// delivery is permanently invalid; a 5xx asks it to retry later.
func (h *WebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.Acknowledgement{Error: "unreadable body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.ackTimeout)
	defer cancel()

	status, err := h.facade.Handle(ctx, body, c.GetHeader(SignatureHeader))
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrSignatureInvalid):
			c.JSON(http.StatusBadRequest, dto.Acknowledgement{Error: "invalid signature"})
		case errors.Is(err, domainErrors.ErrMalformedEvent):
			c.JSON(http.StatusBadRequest, dto.Acknowledgement{Error: "malformed payload"})
		default:
			c.JSON(http.StatusInternalServerError, dto.Acknowledgement{Error: "processing failed"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.Acknowledgement{Received: true, Status: status})
}
