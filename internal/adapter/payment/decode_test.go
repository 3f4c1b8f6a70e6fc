package payment

import (
	"errors"
	"testing"

	domainErrors "github.com/Adrien490/synclune-sub005/internal/domain/errors"
	"github.com/Adrien490/synclune-sub005/internal/domain/model"
)

func TestDecodeCheckoutSessionEvent(t *testing.T) {
	body := []byte(`{
		"id": "evt_1",
		"type": "checkout_completed",
		"created": 1756382400,
		"data": {"object": {
			"id": "cs_1",
			"payment_intent": "pi_1",
			"customer": "cus_1",
			"client_reference_id": "42",
			"amount_total": 13400,
			"currency": "eur",
			"payment_status": "paid",
			"shipping_cost": {"amount_total": 500, "shipping_rate": {"display_name": "Colissimo"}},
			"metadata": {"order_id": "42"}
		}}
	}`)

	event, err := decodeEvent(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Type != model.EventTypeCheckoutCompleted {
		t.Fatalf("unexpected type %s", event.Type)
	}
	session := event.CheckoutSession
	if session == nil {
		t.Fatal("session payload missing")
	}
	if session.ID != "cs_1" || session.PaymentIntentID != "pi_1" || session.AmountTotal != 13400 {
		t.Fatalf("session fields wrong: %+v", session)
	}
	if session.ShippingCost == nil || session.ShippingCost.ShippingRateName != "Colissimo" {
		t.Fatalf("shipping not decoded: %+v", session.ShippingCost)
	}
	if session.OrderReference() != "42" {
		t.Fatalf("order reference %q", session.OrderReference())
	}
}

func TestDecodeChargeRefundedEvent(t *testing.T) {
	body := []byte(`{
		"id": "evt_2",
		"type": "charge_refunded",
		"created": 1756382400,
		"data": {"object": {
			"id": "ch_1",
			"payment_intent": "pi_1",
			"amount": 13400,
			"amount_refunded": 13400,
			"currency": "eur",
			"refunds": {"data": [{"id": "re_1", "amount": 13400, "currency": "eur", "status": "succeeded", "reason": "requested_by_customer"}]}
		}}
	}`)

	event, err := decodeEvent(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	charge := event.Charge
	if charge == nil || charge.ID != "ch_1" || charge.PaymentIntentID != "pi_1" {
		t.Fatalf("charge not decoded: %+v", charge)
	}
	if len(charge.Refunds) != 1 || charge.Refunds[0].ID != "re_1" {
		t.Fatalf("refund list not decoded: %+v", charge.Refunds)
	}
}

func TestDecodeUnknownEventType(t *testing.T) {
	body := []byte(`{"id": "evt_3", "type": "customer_created", "created": 1756382400, "data": {"object": {}}}`)

	event, err := decodeEvent(body)
	if err != nil {
		t.Fatalf("unknown types must decode, got %v", err)
	}
	if event.Type != model.EventTypeUnknown {
		t.Fatalf("expected unknown type, got %s", event.Type)
	}
	if event.CheckoutSession != nil || event.PaymentIntent != nil || event.Charge != nil {
		t.Fatal("unknown events carry no payload")
	}
}

func TestDecodeRejectsBadInput(t *testing.T) {
	cases := [][]byte{
		[]byte(`not json`),
		[]byte(`{"type": "payment_succeeded"}`),
		[]byte(`{"id": "evt_4", "type": "payment_succeeded", "data": {"object": "oops"}}`),
	}
	for _, body := range cases {
		if _, err := decodeEvent(body); !errors.Is(err, domainErrors.ErrMalformedEvent) {
			t.Errorf("body %s: expected malformed error, got %v", body, err)
		}
	}
}
