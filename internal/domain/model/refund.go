package model

import "time"

// RefundStatus describes refund reconciliation state.
type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "PENDING"
	RefundStatusCompleted RefundStatus = "COMPLETED"
)

// Refund records money returned for an order. At most one record exists per
// provider refund id. Rows are created proactively by the compensation path
// or reactively when a provider-side refund is first observed.
type Refund struct {
	ID              int64
	OrderID         int64
	ProviderRefundID *string
	Amount          int64
	Currency        string
	Status          RefundStatus
	Note            string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
