package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/storefront/api/internal/domain"
	"github.com/storefront/api/internal/platform/auth"
	"github.com/storefront/api/internal/services"
)

var handlerNow = time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)

func sampleOrder() domain.Order {
	return domain.Order{
		ID:          "ord_123",
		OrderNumber: "ORD-20240309-001",
		UserID:      "user-1",
		Items: []domain.OrderItem{
			{ProductID: "prod-a", Name: "Lamp", Price: 1000, Quantity: 2, LineTotal: 2000},
			{ProductID: "prod-b", Name: "Shade", Price: 500, Quantity: 1, LineTotal: 500},
		},
		Subtotal:        2500,
		Tax:             200,
		ShippingCost:    1000,
		TotalAmount:     3700,
		Status:          domain.OrderStatusPending,
		PaymentStatus:   domain.PaymentStatusPending,
		PaymentMethod:   domain.PaymentMethodCreditCard,
		ShippingMethod:  domain.ShippingMethodStandard,
		ShippingAddress: domain.Address{Street: "1 Main", City: "Springfield", State: "IL", ZipCode: "62701", Country: "US"},
		StatusHistory: []domain.StatusHistoryEntry{
			{Status: domain.OrderStatusPending, PaymentStatus: domain.PaymentStatusPending, Timestamp: handlerNow, Note: "Order created", ActorID: "user-1"},
		},
		Version:   1,
		CreatedAt: handlerNow,
		UpdatedAt: handlerNow,
	}
}

func orderRouter(h *OrderHandlers) chi.Router {
	router := chi.NewRouter()
	router.Route("/orders", h.Routes)
	return router
}

func TestOrderHandlersCreateOrder(t *testing.T) {
	var captured services.CreateOrderCommand
	service := &stubOrderService{
		createFn: func(_ context.Context, cmd services.CreateOrderCommand) (domain.Order, error) {
			captured = cmd
			return sampleOrder(), nil
		},
	}
	router := orderRouter(NewOrderHandlers(nil, service))

	body := `{"shippingAddress":{"street":"1 Main","city":"Springfield","state":"IL","zipCode":"62701","country":"US"},
		"billingAddress":{"street":"2 Side","city":"Springfield","state":"IL","zipCode":"62701","country":"US"},
		"paymentMethod":"PayPal","shippingMethod":"express","customerNotes":"leave at door","couponCode":"spring"}`
	req := withIdentity(httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body)), "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if loc := rr.Header().Get("Location"); loc != "/api/v1/orders/ord_123" {
		t.Fatalf("unexpected location %q", loc)
	}
	if captured.UserID != "user-1" {
		t.Fatalf("expected caller user-1, got %q", captured.UserID)
	}
	if captured.PaymentMethod != domain.PaymentMethodPayPal {
		t.Fatalf("expected paypal, got %q", captured.PaymentMethod)
	}
	if captured.ShippingMethod != domain.ShippingMethodExpress {
		t.Fatalf("expected express, got %q", captured.ShippingMethod)
	}
	if captured.BillingAddress == nil || captured.BillingAddress.Street != "2 Side" {
		t.Fatalf("expected billing address, got %+v", captured.BillingAddress)
	}
	if captured.CustomerNotes != "leave at door" || captured.CouponCode != "spring" {
		t.Fatalf("unexpected notes/coupon %+v", captured)
	}

	var resp struct {
		Order struct {
			OrderNumber   string `json:"orderNumber"`
			TotalAmount   int64  `json:"totalAmount"`
			TotalItems    int    `json:"totalItems"`
			StatusHistory []struct {
				Note string `json:"note"`
			} `json:"statusHistory"`
		} `json:"order"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Order.OrderNumber != "ORD-20240309-001" || resp.Order.TotalAmount != 3700 || resp.Order.TotalItems != 3 {
		t.Fatalf("unexpected order payload %+v", resp.Order)
	}
	if len(resp.Order.StatusHistory) != 1 || resp.Order.StatusHistory[0].Note != "Order created" {
		t.Fatalf("unexpected history %+v", resp.Order.StatusHistory)
	}
}

func TestOrderHandlersCreateOrderRequiresShippingAddress(t *testing.T) {
	service := &stubOrderService{
		createFn: func(context.Context, services.CreateOrderCommand) (domain.Order, error) {
			t.Fatalf("service must not be called")
			return domain.Order{}, nil
		},
	}
	router := orderRouter(NewOrderHandlers(nil, service))

	req := withIdentity(httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"paymentMethod":"paypal"}`)), "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestOrderHandlersCreateOrderMapsStockErrors(t *testing.T) {
	service := &stubOrderService{
		createFn: func(context.Context, services.CreateOrderCommand) (domain.Order, error) {
			return domain.Order{}, fmt.Errorf("reserve: %w", &services.LineError{ProductID: "prod-b", Requested: 3, Available: 1, Err: services.ErrInsufficientStock})
		},
	}
	router := orderRouter(NewOrderHandlers(nil, service))

	body := `{"shippingAddress":{"street":"1 Main","city":"Springfield","state":"IL","zipCode":"62701","country":"US"}}`
	req := withIdentity(httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body)), "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["error"] != "insufficient_stock" || resp["productId"] != "prod-b" {
		t.Fatalf("unexpected error body %v", resp)
	}
	if resp["requested"] != float64(3) || resp["available"] != float64(1) {
		t.Fatalf("expected requested/available in body, got %v", resp)
	}
}

func TestOrderHandlersCreateOrderRateLimited(t *testing.T) {
	calls := 0
	service := &stubOrderService{
		createFn: func(context.Context, services.CreateOrderCommand) (domain.Order, error) {
			calls++
			return sampleOrder(), nil
		},
	}
	router := orderRouter(NewOrderHandlers(nil, service, WithCheckoutRateLimit(1, time.Minute)))
	body := `{"shippingAddress":{"street":"1 Main","city":"Springfield","state":"IL","zipCode":"62701","country":"US"}}`

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := withIdentity(httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body)), "user-1")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusCreated || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("expected 201 then 429, got %v", codes)
	}
	if calls != 1 {
		t.Fatalf("expected one service call, got %d", calls)
	}
}

func TestOrderHandlersListOrders(t *testing.T) {
	var captured services.ListOrdersQuery
	service := &stubOrderService{
		listFn: func(_ context.Context, query services.ListOrdersQuery) (domain.Page[domain.Order], error) {
			captured = query
			return domain.Page[domain.Order]{Items: []domain.Order{sampleOrder()}, Page: 2, Limit: 1, Total: 3}, nil
		},
	}
	router := orderRouter(NewOrderHandlers(nil, service))

	req := withIdentity(httptest.NewRequest(http.MethodGet, "/orders?status=Pending&page=2&limit=1", nil), "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.UserID != "user-1" || captured.Status != domain.OrderStatusPending {
		t.Fatalf("unexpected query %+v", captured)
	}
	if captured.Pagination != (domain.Pagination{Page: 2, Limit: 1}) {
		t.Fatalf("unexpected pagination %+v", captured.Pagination)
	}

	var resp struct {
		Orders     []json.RawMessage `json:"orders"`
		Pagination paginationPayload `json:"pagination"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	want := paginationPayload{Page: 2, Limit: 1, Total: 3, TotalPages: 3, HasNextPage: true, HasPrevPage: true}
	if resp.Pagination != want {
		t.Fatalf("expected pagination %+v, got %+v", want, resp.Pagination)
	}
	if len(resp.Orders) != 1 {
		t.Fatalf("expected one order, got %d", len(resp.Orders))
	}
}

func TestOrderHandlersListOrdersRejectsBadPage(t *testing.T) {
	router := orderRouter(NewOrderHandlers(nil, &stubOrderService{}))

	req := withIdentity(httptest.NewRequest(http.MethodGet, "/orders?page=abc", nil), "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestOrderHandlersGetOrderPassesRequester(t *testing.T) {
	var captured services.Requester
	service := &stubOrderService{
		getFn: func(_ context.Context, orderID string, requester services.Requester) (domain.Order, error) {
			if orderID != "ord_123" {
				t.Fatalf("unexpected order id %s", orderID)
			}
			captured = requester
			return domain.Order{}, services.ErrOrderNotFound
		},
	}
	router := orderRouter(NewOrderHandlers(nil, service))

	req := withIdentity(httptest.NewRequest(http.MethodGet, "/orders/ord_123", nil), "user-2", auth.RoleStaff)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
	if captured != (services.Requester{UserID: "user-2", Operator: true}) {
		t.Fatalf("unexpected requester %+v", captured)
	}
}

func TestOrderHandlersCancelOrder(t *testing.T) {
	var captured services.CancelOrderCommand
	service := &stubOrderService{
		cancelFn: func(_ context.Context, cmd services.CancelOrderCommand) (domain.Order, error) {
			captured = cmd
			order := sampleOrder()
			order.Status = domain.OrderStatusCancelled
			return order, nil
		},
	}
	router := orderRouter(NewOrderHandlers(nil, service))

	req := withIdentity(httptest.NewRequest(http.MethodPost, "/orders/ord_123:cancel", strings.NewReader(`{"reason":"changed my mind"}`)), "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.OrderID != "ord_123" || captured.Reason != "changed my mind" || captured.Requester.UserID != "user-1" || captured.Requester.Operator {
		t.Fatalf("unexpected cancel command %+v", captured)
	}
}

func TestOrderHandlersCancelOrderWithoutBody(t *testing.T) {
	service := &stubOrderService{
		cancelFn: func(context.Context, services.CancelOrderCommand) (domain.Order, error) {
			return domain.Order{}, fmt.Errorf("%w: order is shipped", services.ErrInvalidStateTransition)
		},
	}
	router := orderRouter(NewOrderHandlers(nil, service))

	req := withIdentity(httptest.NewRequest(http.MethodPost, "/orders/ord_123:cancel", nil), "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["error"] != "invalid_state_transition" {
		t.Fatalf("unexpected error %v", resp["error"])
	}
}

func TestOrderHandlersRequireIdentity(t *testing.T) {
	router := orderRouter(NewOrderHandlers(nil, &stubOrderService{}))

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

func TestWriteServiceErrorHidesPersistenceDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	writeServiceError(context.Background(), rr, fmt.Errorf("%w: dial tcp 10.0.0.1:5432: refused", services.ErrPersistence))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "10.0.0.1") {
		t.Fatalf("persistence detail leaked: %s", rr.Body.String())
	}
}

func TestWriteServiceErrorConcurrencyConflictIsRetryable(t *testing.T) {
	rr := httptest.NewRecorder()
	writeServiceError(context.Background(), rr, services.ErrConcurrencyConflict)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["error"] != "concurrency_conflict" || resp["retryable"] != true {
		t.Fatalf("unexpected body %v", resp)
	}
}
