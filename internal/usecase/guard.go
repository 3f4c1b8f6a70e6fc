package usecase

import "github.com/Adrien490/synclune-sub005/internal/domain/model"

// State-based idempotency guards. Each transition re-reads the order's
// payment status under a row lock and proceeds only while its precondition
// still holds, so a duplicate or out-of-order delivery degrades to a no-op.

// ShouldConfirm reports whether a success event still has work to do.
func ShouldConfirm(status model.PaymentStatus) bool {
	return status != model.PaymentStatusPaid
}

// ShouldExpire reports whether an expiry event may cancel the order. Any
// status other than pending means the order already resolved through another
// path and expiry must not undo it.
func ShouldExpire(status model.PaymentStatus) bool {
	return status == model.PaymentStatusPending
}

// ShouldRestoreStock reports whether reserved stock is still held by the
// order. Reservation happens at checkout initiation and is released exactly
// once: a second failure event on an already-failed order must not
// double-increment inventory.
func ShouldRestoreStock(status model.PaymentStatus) bool {
	return status == model.PaymentStatusPending || status == model.PaymentStatusPaid
}
