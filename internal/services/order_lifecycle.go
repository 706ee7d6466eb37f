package services

import (
	"fmt"
	"slices"
	"strings"
	"time"

	domain "github.com/storefront/api/internal/domain"
)

var orderStatusTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusPending:    {domain.OrderStatusConfirmed, domain.OrderStatusCancelled},
	domain.OrderStatusConfirmed:  {domain.OrderStatusProcessing, domain.OrderStatusCancelled},
	domain.OrderStatusProcessing: {domain.OrderStatusShipped},
	domain.OrderStatusShipped:    {domain.OrderStatusDelivered},
}

var paymentStatusTransitions = map[domain.PaymentStatus][]domain.PaymentStatus{
	domain.PaymentStatusPending:    {domain.PaymentStatusProcessing},
	domain.PaymentStatusProcessing: {domain.PaymentStatusCompleted, domain.PaymentStatusFailed},
	domain.PaymentStatusCompleted:  {domain.PaymentStatusRefunded, domain.PaymentStatusPartiallyRefunded},
}

var trackableStatuses = []domain.OrderStatus{
	domain.OrderStatusProcessing,
	domain.OrderStatusShipped,
	domain.OrderStatusDelivered,
}

// CanTransitionStatus reports whether to is one allowed edge away from from.
func CanTransitionStatus(from, to domain.OrderStatus) bool {
	return slices.Contains(orderStatusTransitions[from], to)
}

// CanTransitionPayment reports whether to is one allowed edge away from from.
func CanTransitionPayment(from, to domain.PaymentStatus) bool {
	return slices.Contains(paymentStatusTransitions[from], to)
}

// IsTerminalStatus reports whether no further status transition is permitted.
func IsTerminalStatus(status domain.OrderStatus) bool {
	return len(orderStatusTransitions[status]) == 0
}

// ValidOrderStatus reports whether status is a known order status.
func ValidOrderStatus(status domain.OrderStatus) bool {
	switch status {
	case domain.OrderStatusPending, domain.OrderStatusConfirmed, domain.OrderStatusProcessing,
		domain.OrderStatusShipped, domain.OrderStatusDelivered, domain.OrderStatusCancelled,
		domain.OrderStatusRefunded:
		return true
	}
	return false
}

// ValidPaymentStatus reports whether status is a known payment status.
func ValidPaymentStatus(status domain.PaymentStatus) bool {
	switch status {
	case domain.PaymentStatusPending, domain.PaymentStatusProcessing, domain.PaymentStatusCompleted,
		domain.PaymentStatusFailed, domain.PaymentStatusRefunded, domain.PaymentStatusPartiallyRefunded:
		return true
	}
	return false
}

// lifecycleChange is a requested mutation. Nil fields are left untouched.
type lifecycleChange struct {
	status         *domain.OrderStatus
	paymentStatus  *domain.PaymentStatus
	trackingNumber *string
	carrier        *string
	note           string
	actor          string
}

// lifecycleResult records what apply changed so the caller can emit events and release stock.
type lifecycleResult struct {
	previousStatus  domain.OrderStatus
	previousPayment domain.PaymentStatus
	statusChanged   bool
	paymentChanged  bool
	releaseStock    bool
}

// applyLifecycleChange validates change against order and mutates it in place. On error the
// order must be discarded by the caller; nothing has been persisted.
func applyLifecycleChange(order *domain.Order, change lifecycleChange, now time.Time) (lifecycleResult, error) {
	result := lifecycleResult{previousStatus: order.Status, previousPayment: order.PaymentStatus}

	if change.status != nil {
		target := *change.status
		if !CanTransitionStatus(order.Status, target) {
			return result, fmt.Errorf("%w: status %s -> %s", ErrInvalidStateTransition, order.Status, target)
		}
		order.Status = target
		result.statusChanged = true
		stampStatus(order, target, now)
		if target == domain.OrderStatusCancelled && !order.StockReleased {
			order.StockReleased = true
			result.releaseStock = true
		}
	}

	if change.paymentStatus != nil {
		target := *change.paymentStatus
		if !CanTransitionPayment(order.PaymentStatus, target) {
			return result, fmt.Errorf("%w: payment %s -> %s", ErrInvalidStateTransition, order.PaymentStatus, target)
		}
		if order.Status == domain.OrderStatusCancelled &&
			(target == domain.PaymentStatusProcessing || target == domain.PaymentStatusCompleted) {
			return result, fmt.Errorf("%w: payment cannot progress to %s on a cancelled order", ErrInvalidStateTransition, target)
		}
		order.PaymentStatus = target
		result.paymentChanged = true
		stampPayment(order, target, now)
	}

	if change.trackingNumber != nil || change.carrier != nil {
		if !slices.Contains(trackableStatuses, order.Status) {
			return result, fmt.Errorf("%w: tracking details require status processing or later, order is %s", ErrInvalidStateTransition, order.Status)
		}
		if change.trackingNumber != nil {
			order.TrackingNumber = strings.TrimSpace(*change.trackingNumber)
		}
		if change.carrier != nil {
			order.Carrier = strings.TrimSpace(*change.carrier)
		}
	}

	if result.statusChanged || result.paymentChanged {
		order.StatusHistory = append(order.StatusHistory, domain.StatusHistoryEntry{
			Status:        order.Status,
			PaymentStatus: order.PaymentStatus,
			Timestamp:     now,
			Note:          historyNote(result, order, change.note),
			ActorID:       change.actor,
		})
	}
	order.UpdatedAt = now
	return result, nil
}

func historyNote(result lifecycleResult, order *domain.Order, extra string) string {
	var parts []string
	if result.statusChanged {
		parts = append(parts, fmt.Sprintf("Order status updated to %s", order.Status))
	}
	if result.paymentChanged {
		parts = append(parts, fmt.Sprintf("Payment status updated to %s", order.PaymentStatus))
	}
	note := strings.Join(parts, "; ")
	if extra = strings.TrimSpace(extra); extra != "" {
		note += ": " + extra
	}
	return note
}

func stampStatus(order *domain.Order, status domain.OrderStatus, now time.Time) {
	ts := now
	switch status {
	case domain.OrderStatusConfirmed:
		order.ConfirmedAt = &ts
	case domain.OrderStatusShipped:
		order.ShippedAt = &ts
	case domain.OrderStatusDelivered:
		order.DeliveredAt = &ts
	case domain.OrderStatusCancelled:
		order.CancelledAt = &ts
	}
}

func stampPayment(order *domain.Order, status domain.PaymentStatus, now time.Time) {
	ts := now
	switch status {
	case domain.PaymentStatusCompleted:
		order.PaidAt = &ts
	case domain.PaymentStatusRefunded, domain.PaymentStatusPartiallyRefunded:
		order.RefundedAt = &ts
	}
}

func cloneOrder(order domain.Order) domain.Order {
	out := order
	out.Items = slices.Clone(order.Items)
	out.StatusHistory = slices.Clone(order.StatusHistory)
	if order.BillingAddress != nil {
		billing := *order.BillingAddress
		out.BillingAddress = &billing
	}
	return out
}
