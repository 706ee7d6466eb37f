package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/storefront/api/internal/domain"
	"github.com/storefront/api/internal/platform/httpx"
	"github.com/storefront/api/internal/services"
)

const maxAdminUpdateBodySize = 8 * 1024

type adminUpdateOrderRequest struct {
	Status         *string `json:"status"`
	PaymentStatus  *string `json:"paymentStatus"`
	TrackingNumber *string `json:"trackingNumber"`
	Carrier        *string `json:"carrier"`
	Note           string  `json:"note"`
}

type adminOrderListResponse struct {
	Orders     []orderPayload      `json:"orders"`
	Pagination paginationPayload   `json:"pagination"`
	Summary    orderSummaryPayload `json:"summary"`
}

type orderSummaryPayload struct {
	TotalRevenueExcludingCancelled int64 `json:"totalRevenueExcludingCancelled"`
}

// AdminOrderHandlers exposes order management for operators. The admin route group is expected
// to enforce the operator role.
type AdminOrderHandlers struct {
	orders services.OrderService
}

func NewAdminOrderHandlers(orders services.OrderService) *AdminOrderHandlers {
	return &AdminOrderHandlers{orders: orders}
}

// Routes registers the /admin/orders endpoints.
func (h *AdminOrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{orderID}", h.getOrder)
	r.Patch("/orders/{orderID}", h.updateOrder)
}

func (h *AdminOrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}
	if _, ok := requireIdentity(ctx, w); !ok {
		return
	}
	pagination, err := parsePagination(r, adminOrderPageLimit)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	params := r.URL.Query()
	query := services.AdminListOrdersQuery{
		Status:        domain.OrderStatus(strings.ToLower(strings.TrimSpace(params.Get("status")))),
		PaymentStatus: domain.PaymentStatus(strings.ToLower(strings.TrimSpace(params.Get("paymentStatus")))),
		Pagination:    pagination,
	}
	for _, bound := range []struct {
		name   string
		target **time.Time
	}{{"from", &query.CreatedAt.From}, {"to", &query.CreatedAt.To}} {
		raw := strings.TrimSpace(params.Get(bound.name))
		if raw == "" {
			continue
		}
		ts, err := parseTimeParam(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", bound.name+" "+err.Error(), http.StatusBadRequest))
			return
		}
		*bound.target = &ts
	}

	result, err := h.orders.AdminListOrders(ctx, query)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	list := buildOrderListResponse(result.Orders)
	writeJSONResponse(w, http.StatusOK, adminOrderListResponse{
		Orders:     list.Orders,
		Pagination: list.Pagination,
		Summary:    orderSummaryPayload{TotalRevenueExcludingCancelled: result.Summary.TotalRevenueExcludingCancelled},
	})
}

func (h *AdminOrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
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
	order, err := h.orders.GetOrder(ctx, orderID, services.Requester{UserID: identity.UID, Operator: true})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *AdminOrderHandlers) updateOrder(w http.ResponseWriter, r *http.Request) {
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

	var req adminUpdateOrderRequest
	if !decodeBody(ctx, w, r, maxAdminUpdateBodySize, false, &req) {
		return
	}

	cmd := services.AdminUpdateOrderCommand{
		OrderID:        orderID,
		TrackingNumber: req.TrackingNumber,
		Carrier:        req.Carrier,
		Note:           req.Note,
		ActorID:        identity.UID,
	}
	if req.Status != nil {
		status := domain.OrderStatus(strings.ToLower(strings.TrimSpace(*req.Status)))
		cmd.Status = &status
	}
	if req.PaymentStatus != nil {
		payment := domain.PaymentStatus(strings.ToLower(strings.TrimSpace(*req.PaymentStatus)))
		cmd.PaymentStatus = &payment
	}

	order, err := h.orders.AdminUpdateOrder(ctx, cmd)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}
