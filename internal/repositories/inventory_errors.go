package repositories

import "fmt"

// InventoryErrorCode enumerates repository error causes for inventory operations.
type InventoryErrorCode string

const (
	// InventoryErrorUnknown represents an unspecified failure.
	InventoryErrorUnknown InventoryErrorCode = "inventory_unknown"
	// InventoryErrorInsufficientStock indicates requested quantity exceeds availability.
	InventoryErrorInsufficientStock InventoryErrorCode = "inventory_insufficient_stock"
	// InventoryErrorProductNotFound indicates the product has no stock record.
	InventoryErrorProductNotFound InventoryErrorCode = "inventory_product_not_found"
	// InventoryErrorProductInactive indicates the product is inactive or deleted.
	InventoryErrorProductInactive InventoryErrorCode = "inventory_product_inactive"
	// InventoryErrorInvalidQuantity indicates a non-positive quantity was supplied.
	InventoryErrorInvalidQuantity InventoryErrorCode = "inventory_invalid_quantity"
)

// InventoryError wraps inventory-specific failures with machine readable codes.
type InventoryError struct {
	Op        string
	Code      InventoryErrorCode
	ProductID string
	Requested int
	Available int
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *InventoryError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap exposes the underlying error, if any.
func (e *InventoryError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewInventoryError constructs a typed inventory error.
func NewInventoryError(code InventoryErrorCode, message string, err error) *InventoryError {
	if message == "" {
		message = string(code)
	}
	return &InventoryError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewInsufficientStockError reports a failed conditional decrement with the observed availability.
func NewInsufficientStockError(productID string, requested, available int) *InventoryError {
	err := NewInventoryError(InventoryErrorInsufficientStock,
		fmt.Sprintf("product %s: requested %d, available %d", productID, requested, available), nil)
	err.ProductID = productID
	err.Requested = requested
	err.Available = available
	return err
}

// NewProductInventoryError builds an inventory error scoped to a single product.
func NewProductInventoryError(code InventoryErrorCode, productID string) *InventoryError {
	err := NewInventoryError(code, fmt.Sprintf("product %s: %s", productID, code), nil)
	err.ProductID = productID
	return err
}
