package services

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderValidation signals missing or malformed input.
	ErrOrderValidation = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order does not exist or is not visible to the caller.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrProductUnavailable indicates a referenced product is missing, inactive or deleted.
	ErrProductUnavailable = errors.New("product unavailable")
	// ErrInsufficientStock indicates a reservation exceeded available stock.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidStateTransition indicates a status or payment change not permitted from the current state.
	ErrInvalidStateTransition = errors.New("order: invalid state transition")
	// ErrConcurrencyConflict indicates a lost race on a conditional write; the caller may retry.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	// ErrPersistence wraps storage failures. Details are for logs only.
	ErrPersistence = errors.New("persistence failure")

	// ErrCartValidation signals invalid cart input.
	ErrCartValidation = errors.New("cart: invalid input")
	// ErrCartItemNotFound indicates the product is not in the cart.
	ErrCartItemNotFound = errors.New("cart: item not found")
)

// LineError names the product a checkout or cart failure refers to. It wraps one of the
// sentinels above.
type LineError struct {
	ProductID string
	Requested int
	Available int
	Err       error
}

func (e *LineError) Error() string {
	if errors.Is(e.Err, ErrInsufficientStock) {
		return fmt.Sprintf("%v: product %s requested %d, available %d", e.Err, e.ProductID, e.Requested, e.Available)
	}
	return fmt.Sprintf("%v: product %s", e.Err, e.ProductID)
}

func (e *LineError) Unwrap() error { return e.Err }
