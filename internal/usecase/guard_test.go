package usecase

import (
	"testing"

	"github.com/Adrien490/synclune-sub005/internal/domain/model"
)

func TestShouldConfirm(t *testing.T) {
	cases := []struct {
		status model.PaymentStatus
		want   bool
	}{
		{model.PaymentStatusPending, true},
		{model.PaymentStatusFailed, true},
		{model.PaymentStatusRefunded, true},
		{model.PaymentStatusPaid, false},
	}
	for _, c := range cases {
		if got := ShouldConfirm(c.status); got != c.want {
			t.Errorf("ShouldConfirm(%s) = %v, want %v", c.status, got, c.want)
		}
	}
}

func TestShouldExpire(t *testing.T) {
	cases := []struct {
		status model.PaymentStatus
		want   bool
	}{
		{model.PaymentStatusPending, true},
		{model.PaymentStatusPaid, false},
		{model.PaymentStatusFailed, false},
		{model.PaymentStatusRefunded, false},
	}
	for _, c := range cases {
		if got := ShouldExpire(c.status); got != c.want {
			t.Errorf("ShouldExpire(%s) = %v, want %v", c.status, got, c.want)
		}
	}
}

func TestShouldRestoreStock(t *testing.T) {
	cases := []struct {
		status model.PaymentStatus
		want   bool
	}{
		{model.PaymentStatusPending, true},
		{model.PaymentStatusPaid, true},
		{model.PaymentStatusFailed, false},
		{model.PaymentStatusRefunded, false},
	}
	for _, c := range cases {
		if got := ShouldRestoreStock(c.status); got != c.want {
			t.Errorf("ShouldRestoreStock(%s) = %v, want %v", c.status, got, c.want)
		}
	}
}
