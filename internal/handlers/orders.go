package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/storefront/api/internal/domain"
	"github.com/storefront/api/internal/platform/auth"
	"github.com/storefront/api/internal/platform/httpx"
	"github.com/storefront/api/internal/services"
)

const (
	maxCreateOrderBodySize = 16 * 1024
	maxCancelOrderBodySize = 4 * 1024

	userOrderPageLimit  = 10
	adminOrderPageLimit = 20
)

type addressRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Company   string `json:"company"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zipCode"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
}

func (a addressRequest) toDomain() domain.Address {
	return domain.Address(a)
}

type createOrderRequest struct {
	ShippingAddress *addressRequest `json:"shippingAddress"`
	BillingAddress  *addressRequest `json:"billingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
	ShippingMethod  string          `json:"shippingMethod"`
	CustomerNotes   string          `json:"customerNotes"`
	CouponCode      string          `json:"couponCode"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

// OrderHandlers exposes the customer order endpoints.
type OrderHandlers struct {
	authn       *auth.Authenticator
	orders      services.OrderService
	idempotency func(http.Handler) http.Handler
	limiter     rateLimiter
}

// OrderHandlerOption customises OrderHandlers.
type OrderHandlerOption func(*OrderHandlers)

// WithOrderIdempotency wraps the POST endpoints with mw, typically idempotency.Middleware.
func WithOrderIdempotency(mw func(http.Handler) http.Handler) OrderHandlerOption {
	return func(h *OrderHandlers) {
		h.idempotency = mw
	}
}

// WithCheckoutRateLimit caps order creation per user to limit calls per window.
func WithCheckoutRateLimit(limit int, window time.Duration) OrderHandlerOption {
	return func(h *OrderHandlers) {
		h.limiter = newWindowLimiter(limit, window, nil)
	}
}

func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderService, opts ...OrderHandlerOption) *OrderHandlers {
	h := &OrderHandlers{authn: authn, orders: orders}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.Require())
	}
	writes := r
	if h.idempotency != nil {
		writes = r.With(h.idempotency)
	}
	writes.Post("/", h.createOrder)
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
	writes.Post("/{orderID}:cancel", h.cancelOrder)
}

func (h *OrderHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	if h.limiter != nil && !h.limiter.Allow(identity.UID) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many checkout attempts, try again later", http.StatusTooManyRequests))
		return
	}

	var req createOrderRequest
	if !decodeBody(ctx, w, r, maxCreateOrderBodySize, false, &req) {
		return
	}
	if req.ShippingAddress == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "shippingAddress is required", http.StatusBadRequest))
		return
	}

	cmd := services.CreateOrderCommand{
		UserID:          identity.UID,
		ShippingAddress: req.ShippingAddress.toDomain(),
		PaymentMethod:   domain.PaymentMethod(strings.ToLower(strings.TrimSpace(req.PaymentMethod))),
		ShippingMethod:  domain.ShippingMethod(strings.ToLower(strings.TrimSpace(req.ShippingMethod))),
		CustomerNotes:   req.CustomerNotes,
		CouponCode:      req.CouponCode,
	}
	if req.BillingAddress != nil {
		billing := req.BillingAddress.toDomain()
		cmd.BillingAddress = &billing
	}

	order, err := h.orders.CreateOrder(ctx, cmd)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.Header().Set("Location", "/api/v1/orders/"+order.ID)
	writeJSONResponse(w, http.StatusCreated, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	pagination, err := parsePagination(r, userOrderPageLimit)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	page, err := h.orders.ListOrders(ctx, services.ListOrdersQuery{
		UserID:     identity.UID,
		Status:     domain.OrderStatus(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status")))),
		Pagination: pagination,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderListResponse(page))
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.GetOrder(ctx, orderID, requesterOf(identity))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	var req cancelOrderRequest
	if !decodeBody(ctx, w, r, maxCancelOrderBodySize, true, &req) {
		return
	}

	order, err := h.orders.CancelOrder(ctx, services.CancelOrderCommand{
		OrderID:   orderID,
		Requester: requesterOf(identity),
		Reason:    req.Reason,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func requesterOf(identity *auth.Identity) services.Requester {
	return services.Requester{UserID: strings.TrimSpace(identity.UID), Operator: identity.IsOperator()}
}

type orderResponse struct {
	Order orderPayload `json:"order"`
}

type paginationPayload struct {
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	Total       int  `json:"total"`
	TotalPages  int  `json:"totalPages"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

type orderListResponse struct {
	Orders     []orderPayload    `json:"orders"`
	Pagination paginationPayload `json:"pagination"`
}

type orderItemPayload struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	LineTotal int64  `json:"lineTotal"`
	Image     string `json:"image,omitempty"`
	Brand     string `json:"brand,omitempty"`
	Category  string `json:"category,omitempty"`
}

type addressPayload struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Company   string `json:"company,omitempty"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zipCode"`
	Country   string `json:"country"`
	Phone     string `json:"phone,omitempty"`
}

type statusHistoryPayload struct {
	Status        string `json:"status"`
	PaymentStatus string `json:"paymentStatus"`
	Timestamp     string `json:"timestamp"`
	Note          string `json:"note,omitempty"`
	ActorID       string `json:"actorId,omitempty"`
}

type orderPayload struct {
	ID              string                 `json:"id"`
	OrderNumber     string                 `json:"orderNumber"`
	UserID          string                 `json:"userId"`
	Items           []orderItemPayload     `json:"items"`
	TotalItems      int                    `json:"totalItems"`
	Subtotal        int64                  `json:"subtotal"`
	Tax             int64                  `json:"tax"`
	ShippingCost    int64                  `json:"shippingCost"`
	Discount        int64                  `json:"discount"`
	TotalAmount     int64                  `json:"totalAmount"`
	Status          string                 `json:"status"`
	PaymentStatus   string                 `json:"paymentStatus"`
	PaymentMethod   string                 `json:"paymentMethod"`
	ShippingMethod  string                 `json:"shippingMethod"`
	ShippingAddress addressPayload         `json:"shippingAddress"`
	BillingAddress  *addressPayload        `json:"billingAddress,omitempty"`
	TrackingNumber  string                 `json:"trackingNumber,omitempty"`
	Carrier         string                 `json:"carrier,omitempty"`
	CustomerNotes   string                 `json:"customerNotes,omitempty"`
	CouponCode      string                 `json:"couponCode,omitempty"`
	StatusHistory   []statusHistoryPayload `json:"statusHistory"`
	Version         int64                  `json:"version"`
	CreatedAt       string                 `json:"createdAt"`
	UpdatedAt       string                 `json:"updatedAt,omitempty"`
	ConfirmedAt     string                 `json:"confirmedAt,omitempty"`
	ShippedAt       string                 `json:"shippedAt,omitempty"`
	DeliveredAt     string                 `json:"deliveredAt,omitempty"`
	CancelledAt     string                 `json:"cancelledAt,omitempty"`
	PaidAt          string                 `json:"paidAt,omitempty"`
	RefundedAt      string                 `json:"refundedAt,omitempty"`
}

func buildPaginationPayload[T any](page domain.Page[T]) paginationPayload {
	return paginationPayload{
		Page:        page.Page,
		Limit:       page.Limit,
		Total:       page.Total,
		TotalPages:  page.TotalPages(),
		HasNextPage: page.HasNext(),
		HasPrevPage: page.HasPrev(),
	}
}

func buildOrderListResponse(page domain.Page[domain.Order]) orderListResponse {
	resp := orderListResponse{
		Orders:     make([]orderPayload, 0, len(page.Items)),
		Pagination: buildPaginationPayload(page),
	}
	for _, order := range page.Items {
		resp.Orders = append(resp.Orders, buildOrderPayload(order))
	}
	return resp
}

func buildOrderPayload(order domain.Order) orderPayload {
	payload := orderPayload{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		UserID:          order.UserID,
		Items:           make([]orderItemPayload, 0, len(order.Items)),
		TotalItems:      order.TotalItems(),
		Subtotal:        order.Subtotal,
		Tax:             order.Tax,
		ShippingCost:    order.ShippingCost,
		Discount:        order.Discount,
		TotalAmount:     order.TotalAmount,
		Status:          string(order.Status),
		PaymentStatus:   string(order.PaymentStatus),
		PaymentMethod:   string(order.PaymentMethod),
		ShippingMethod:  string(order.ShippingMethod),
		ShippingAddress: addressPayload(order.ShippingAddress),
		TrackingNumber:  order.TrackingNumber,
		Carrier:         order.Carrier,
		CustomerNotes:   order.CustomerNotes,
		CouponCode:      order.CouponCode,
		StatusHistory:   make([]statusHistoryPayload, 0, len(order.StatusHistory)),
		Version:         order.Version,
		CreatedAt:       formatTime(order.CreatedAt),
		UpdatedAt:       formatTime(order.UpdatedAt),
		ConfirmedAt:     formatTime(pointerTime(order.ConfirmedAt)),
		ShippedAt:       formatTime(pointerTime(order.ShippedAt)),
		DeliveredAt:     formatTime(pointerTime(order.DeliveredAt)),
		CancelledAt:     formatTime(pointerTime(order.CancelledAt)),
		PaidAt:          formatTime(pointerTime(order.PaidAt)),
		RefundedAt:      formatTime(pointerTime(order.RefundedAt)),
	}
	for _, item := range order.Items {
		payload.Items = append(payload.Items, orderItemPayload(item))
	}
	if order.BillingAddress != nil {
		billing := addressPayload(*order.BillingAddress)
		payload.BillingAddress = &billing
	}
	for _, entry := range order.StatusHistory {
		payload.StatusHistory = append(payload.StatusHistory, statusHistoryPayload{
			Status:        string(entry.Status),
			PaymentStatus: string(entry.PaymentStatus),
			Timestamp:     formatTime(entry.Timestamp),
			Note:          entry.Note,
			ActorID:       entry.ActorID,
		})
	}
	return payload
}
