package services

import (
	"errors"
	"testing"
	"time"

	domain "github.com/storefront/api/internal/domain"
)

func TestCanTransitionStatus(t *testing.T) {
	all := []domain.OrderStatus{
		domain.OrderStatusPending, domain.OrderStatusConfirmed, domain.OrderStatusProcessing,
		domain.OrderStatusShipped, domain.OrderStatusDelivered, domain.OrderStatusCancelled,
		domain.OrderStatusRefunded,
	}
	allowed := map[[2]domain.OrderStatus]bool{
		{domain.OrderStatusPending, domain.OrderStatusConfirmed}:    true,
		{domain.OrderStatusPending, domain.OrderStatusCancelled}:    true,
		{domain.OrderStatusConfirmed, domain.OrderStatusProcessing}: true,
		{domain.OrderStatusConfirmed, domain.OrderStatusCancelled}:  true,
		{domain.OrderStatusProcessing, domain.OrderStatusShipped}:   true,
		{domain.OrderStatusShipped, domain.OrderStatusDelivered}:    true,
	}
	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]domain.OrderStatus{from, to}]
			if got := CanTransitionStatus(from, to); got != want {
				t.Errorf("CanTransitionStatus(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
	for _, terminal := range []domain.OrderStatus{domain.OrderStatusDelivered, domain.OrderStatusCancelled, domain.OrderStatusRefunded} {
		if !IsTerminalStatus(terminal) {
			t.Errorf("expected %s to be terminal", terminal)
		}
	}
}

func TestCanTransitionPayment(t *testing.T) {
	cases := []struct {
		from, to domain.PaymentStatus
		want     bool
	}{
		{domain.PaymentStatusPending, domain.PaymentStatusProcessing, true},
		{domain.PaymentStatusProcessing, domain.PaymentStatusCompleted, true},
		{domain.PaymentStatusProcessing, domain.PaymentStatusFailed, true},
		{domain.PaymentStatusCompleted, domain.PaymentStatusRefunded, true},
		{domain.PaymentStatusCompleted, domain.PaymentStatusPartiallyRefunded, true},
		{domain.PaymentStatusPending, domain.PaymentStatusCompleted, false},
		{domain.PaymentStatusFailed, domain.PaymentStatusProcessing, false},
		{domain.PaymentStatusRefunded, domain.PaymentStatusCompleted, false},
		{domain.PaymentStatusPartiallyRefunded, domain.PaymentStatusRefunded, false},
		{domain.PaymentStatusPending, domain.PaymentStatusPending, false},
	}
	for _, tc := range cases {
		if got := CanTransitionPayment(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransitionPayment(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestApplyLifecycleChangeRejectsRegression(t *testing.T) {
	now := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	order := domain.Order{
		Status:        domain.OrderStatusDelivered,
		PaymentStatus: domain.PaymentStatusCompleted,
		StatusHistory: []domain.StatusHistoryEntry{{Note: "Order created"}},
	}
	pending := domain.OrderStatusPending

	next := cloneOrder(order)
	_, err := applyLifecycleChange(&next, lifecycleChange{status: &pending}, now)
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if order.Status != domain.OrderStatusDelivered || len(order.StatusHistory) != 1 {
		t.Fatalf("original order mutated: %+v", order)
	}
}

func TestApplyLifecycleChangeCancelledPaymentCannotProgress(t *testing.T) {
	order := domain.Order{Status: domain.OrderStatusCancelled, PaymentStatus: domain.PaymentStatusPending}
	processing := domain.PaymentStatusProcessing

	_, err := applyLifecycleChange(&order, lifecycleChange{paymentStatus: &processing}, time.Now())
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestApplyLifecycleChangeCancelClaimsReleaseOnce(t *testing.T) {
	order := domain.Order{Status: domain.OrderStatusPending, PaymentStatus: domain.PaymentStatusPending}
	cancelled := domain.OrderStatusCancelled

	result, err := applyLifecycleChange(&order, lifecycleChange{status: &cancelled, actor: "user-1"}, time.Now())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !result.releaseStock || !order.StockReleased {
		t.Fatalf("expected stock release claimed")
	}
	if result.previousStatus != domain.OrderStatusPending || !result.statusChanged || result.paymentChanged {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestApplyLifecycleChangeTrackingOnlyAddsNoHistory(t *testing.T) {
	order := domain.Order{Status: domain.OrderStatusShipped, PaymentStatus: domain.PaymentStatusCompleted}
	tracking := " 1Z999 "
	carrier := "UPS"

	result, err := applyLifecycleChange(&order, lifecycleChange{trackingNumber: &tracking, carrier: &carrier}, time.Now())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.statusChanged || result.paymentChanged || len(order.StatusHistory) != 0 {
		t.Fatalf("tracking update must not append history")
	}
	if order.TrackingNumber != "1Z999" || order.Carrier != "UPS" {
		t.Fatalf("unexpected tracking %q/%q", order.TrackingNumber, order.Carrier)
	}
}

func TestCloneOrderIsolatesSlices(t *testing.T) {
	billing := domain.Address{City: "Paris"}
	order := domain.Order{
		Items:          []domain.OrderItem{{ProductID: "a"}},
		StatusHistory:  []domain.StatusHistoryEntry{{Note: "Order created"}},
		BillingAddress: &billing,
	}
	clone := cloneOrder(order)
	clone.Items[0].ProductID = "b"
	clone.StatusHistory[0].Note = "changed"
	clone.BillingAddress.City = "Rome"

	if order.Items[0].ProductID != "a" || order.StatusHistory[0].Note != "Order created" || order.BillingAddress.City != "Paris" {
		t.Fatalf("clone shares state with original")
	}
}
