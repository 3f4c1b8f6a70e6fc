package model

import "time"

// OrderStatus describes the order fulfilment lifecycle.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// PaymentStatus tracks the payment side of the order independently of
// fulfilment. Once PAID it never silently regresses; REFUNDED is terminal.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// Order is the central aggregate reconciled against provider events.
// Monetary fields are integer minor-currency units.
type Order struct {
	ID     int64
	Number string
	UserID *int64

	Status        OrderStatus
	PaymentStatus PaymentStatus

	Subtotal     int64
	Discount     int64
	ShippingCost int64
	Tax          int64
	Total        int64
	Currency     string

	ShippingMethod  string
	ShippingAddress string

	PaymentIntentID   string
	CheckoutSessionID string
	CustomerID        string

	PaidAt      *time.Time
	CancelledAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Items []OrderItem
}

// OrderItem is an immutable historical snapshot of a purchased line; it is
// never re-derived from the live catalog after order creation.
type OrderItem struct {
	ID         int64
	OrderID    int64
	VariantID  int64
	Title      string
	Attributes string
	Quantity   int64
	UnitPrice  int64

	// Variant holds the live counter state joined at load time; nil when the
	// variant no longer exists.
	Variant *ProductVariant
}
