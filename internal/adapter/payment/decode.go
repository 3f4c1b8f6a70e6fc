package payment

import (
	"encoding/json"
	"fmt"
	"time"

	domainErrors "github.com/Adrien490/synclune-sub005/internal/domain/errors"
	"github.com/Adrien490/synclune-sub005/internal/domain/model"
)

// Wire shapes for the provider event envelope. Decoding happens exactly once
// here; downstream components only see the typed model.Event union.

type eventEnvelope struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type sessionPayload struct {
	ID                string               `json:"id"`
	PaymentIntent     string               `json:"payment_intent"`
	Customer          string               `json:"customer"`
	ClientReferenceID string               `json:"client_reference_id"`
	AmountTotal       int64                `json:"amount_total"`
	Currency          string               `json:"currency"`
	PaymentStatus     string               `json:"payment_status"`
	ShippingCost      *shippingCostPayload `json:"shipping_cost"`
	Metadata          map[string]string    `json:"metadata"`
}

type shippingCostPayload struct {
	AmountTotal  int64 `json:"amount_total"`
	ShippingRate *struct {
		DisplayName string `json:"display_name"`
	} `json:"shipping_rate"`
}

type intentPayload struct {
	ID             string            `json:"id"`
	Amount         int64             `json:"amount"`
	AmountReceived int64             `json:"amount_received"`
	Currency       string            `json:"currency"`
	Status         string            `json:"status"`
	LatestCharge   string            `json:"latest_charge"`
	Metadata       map[string]string `json:"metadata"`
}

type chargePayload struct {
	ID             string            `json:"id"`
	PaymentIntent  string            `json:"payment_intent"`
	Amount         int64             `json:"amount"`
	AmountRefunded int64             `json:"amount_refunded"`
	Currency       string            `json:"currency"`
	Metadata       map[string]string `json:"metadata"`
	Refunds        struct {
		Data []refundPayload `json:"data"`
	} `json:"refunds"`
}

type refundPayload struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Reason   string `json:"reason"`
}

func decodeEvent(body []byte) (*model.Event, error) {
	var envelope eventEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", domainErrors.ErrMalformedEvent)
	}
	if envelope.ID == "" || envelope.Type == "" {
		return nil, fmt.Errorf("envelope missing id or type: %w", domainErrors.ErrMalformedEvent)
	}

	event := &model.Event{
		ID:        envelope.ID,
		CreatedAt: time.Unix(envelope.Created, 0),
	}

	switch eventType := model.EventType(envelope.Type); eventType {
	case model.EventTypeCheckoutCompleted, model.EventTypeCheckoutExpired:
		var payload sessionPayload
		if err := json.Unmarshal(envelope.Data.Object, &payload); err != nil {
			return nil, fmt.Errorf("decode session payload: %w", domainErrors.ErrMalformedEvent)
		}
		event.Type = eventType
		event.CheckoutSession = payload.toModel()
	case model.EventTypePaymentSucceeded, model.EventTypePaymentFailed, model.EventTypePaymentCanceled:
		var payload intentPayload
		if err := json.Unmarshal(envelope.Data.Object, &payload); err != nil {
			return nil, fmt.Errorf("decode intent payload: %w", domainErrors.ErrMalformedEvent)
		}
		event.Type = eventType
		event.PaymentIntent = payload.toModel()
	case model.EventTypeChargeRefunded:
		var payload chargePayload
		if err := json.Unmarshal(envelope.Data.Object, &payload); err != nil {
			return nil, fmt.Errorf("decode charge payload: %w", domainErrors.ErrMalformedEvent)
		}
		event.Type = eventType
		event.Charge = payload.toModel()
	default:
		// Unrecognized event kinds are acknowledged and ignored upstream.
		event.Type = model.EventTypeUnknown
	}

	return event, nil
}

func (p sessionPayload) toModel() *model.CheckoutSession {
	session := &model.CheckoutSession{
		ID:                p.ID,
		PaymentIntentID:   p.PaymentIntent,
		CustomerID:        p.Customer,
		ClientReferenceID: p.ClientReferenceID,
		AmountTotal:       p.AmountTotal,
		Currency:          p.Currency,
		PaymentStatus:     p.PaymentStatus,
		Metadata:          p.Metadata,
	}
	if p.ShippingCost != nil {
		cost := &model.ShippingCost{AmountTotal: p.ShippingCost.AmountTotal}
		if p.ShippingCost.ShippingRate != nil {
			cost.ShippingRateName = p.ShippingCost.ShippingRate.DisplayName
		}
		session.ShippingCost = cost
	}
	return session
}

func (p intentPayload) toModel() *model.PaymentIntent {
	return &model.PaymentIntent{
		ID:             p.ID,
		Amount:         p.Amount,
		AmountReceived: p.AmountReceived,
		Currency:       p.Currency,
		Status:         p.Status,
		LatestChargeID: p.LatestCharge,
		Metadata:       p.Metadata,
	}
}

func (p chargePayload) toModel() *model.Charge {
	charge := &model.Charge{
		ID:              p.ID,
		PaymentIntentID: p.PaymentIntent,
		Amount:          p.Amount,
		AmountRefunded:  p.AmountRefunded,
		Currency:        p.Currency,
		Metadata:        p.Metadata,
	}
	for _, r := range p.Refunds.Data {
		charge.Refunds = append(charge.Refunds, model.ProviderRefund{
			ID:       r.ID,
			Amount:   r.Amount,
			Currency: r.Currency,
			Status:   r.Status,
			Reason:   r.Reason,
		})
	}
	return charge
}
