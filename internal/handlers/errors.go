package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/storefront/api/internal/platform/httpx"
	"github.com/storefront/api/internal/services"
)

// writeServiceError maps service sentinels onto the HTTP error envelope. Persistence details never
// reach the client.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	var lineErr *services.LineError
	if errors.As(err, &lineErr) {
		details := map[string]any{"productId": lineErr.ProductID}
		code := "product_unavailable"
		if errors.Is(err, services.ErrInsufficientStock) {
			code = "insufficient_stock"
			details["requested"] = lineErr.Requested
			details["available"] = lineErr.Available
		}
		httpx.WriteError(ctx, w, httpx.NewError(code, err.Error(), http.StatusConflict).WithDetails(details))
		return
	}

	switch {
	case errors.Is(err, services.ErrOrderValidation), errors.Is(err, services.ErrCartValidation):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCartItemNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("cart_item_not_found", "product is not in the cart", http.StatusNotFound))
	case errors.Is(err, services.ErrProductUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("product_unavailable", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrInsufficientStock):
		httpx.WriteError(ctx, w, httpx.NewError("insufficient_stock", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrInvalidStateTransition):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_state_transition", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrConcurrencyConflict):
		httpx.WriteError(ctx, w, httpx.NewError("concurrency_conflict", "the resource changed concurrently, retry the request", http.StatusConflict).
			WithDetails(map[string]any{"retryable": true}))
	case errors.Is(err, context.DeadlineExceeded):
		httpx.WriteError(ctx, w, httpx.NewError("timeout", "request timed out", http.StatusGatewayTimeout))
	case errors.Is(err, services.ErrPersistence):
		httpx.WriteError(ctx, w, httpx.NewError("persistence_error", "storage temporarily unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to process request", http.StatusInternalServerError))
	}
}
