package model

import "time"

// EventType identifies the payment provider event kind.
type EventType string

const (
	EventTypeCheckoutCompleted EventType = "checkout_completed"
	EventTypePaymentSucceeded  EventType = "payment_succeeded"
	EventTypePaymentFailed     EventType = "payment_failed"
	EventTypePaymentCanceled   EventType = "payment_canceled"
	EventTypeCheckoutExpired   EventType = "checkout_expired"
	EventTypeChargeRefunded    EventType = "charge_refunded"
	EventTypeUnknown           EventType = "unknown"
)

// Event is a verified provider webhook event. Exactly one of the payload
// pointers is set, matching Type; unknown event types carry no payload.
type Event struct {
	ID        string
	Type      EventType
	CreatedAt time.Time

	CheckoutSession *CheckoutSession
	PaymentIntent   *PaymentIntent
	Charge          *Charge
}

// CheckoutSession is the provider-side checkout session payload.
type CheckoutSession struct {
	ID                string
	PaymentIntentID   string
	CustomerID        string
	ClientReferenceID string
	AmountTotal       int64
	Currency          string
	PaymentStatus     string
	ShippingCost      *ShippingCost
	Metadata          map[string]string
}

// ShippingCost carries the provider-computed shipping detail.
type ShippingCost struct {
	AmountTotal      int64
	ShippingRateName string
}

// PaymentIntent is the provider-side payment payload.
type PaymentIntent struct {
	ID             string
	Amount         int64
	AmountReceived int64
	Currency       string
	Status         string
	LatestChargeID string
	Metadata       map[string]string
}

// Charge is the provider-side charge payload, including its refund list.
type Charge struct {
	ID              string
	PaymentIntentID string
	Amount          int64
	AmountRefunded  int64
	Currency        string
	Metadata        map[string]string
	Refunds         []ProviderRefund
}

// ProviderRefund is a single refund entry on a provider charge.
type ProviderRefund struct {
	ID       string
	Amount   int64
	Currency string
	Status   string
	Reason   string
}

// orderIDMetadataKey is the metadata field the storefront stamps on provider
// objects at checkout initiation.
const orderIDMetadataKey = "order_id"

// OrderReference returns the local order identifier carried in session
// metadata, falling back to the client reference field.
func (s *CheckoutSession) OrderReference() string {
	if s == nil {
		return ""
	}
	if id := s.Metadata[orderIDMetadataKey]; id != "" {
		return id
	}
	return s.ClientReferenceID
}

// OrderReference returns the local order identifier carried in intent metadata.
func (p *PaymentIntent) OrderReference() string {
	if p == nil {
		return ""
	}
	return p.Metadata[orderIDMetadataKey]
}

// OrderReference returns the local order identifier carried in charge metadata.
func (c *Charge) OrderReference() string {
	if c == nil {
		return ""
	}
	return c.Metadata[orderIDMetadataKey]
}

// Captured reports whether the provider actually collected funds for the
// intent, which decides whether a compensating refund is required.
func (p *PaymentIntent) Captured() bool {
	return p != nil && p.AmountReceived > 0
}
