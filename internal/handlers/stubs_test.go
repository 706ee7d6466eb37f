package handlers

import (
	"context"
	"errors"
	"net/http"

	domain "github.com/storefront/api/internal/domain"
	"github.com/storefront/api/internal/platform/auth"
	"github.com/storefront/api/internal/services"
)

type stubOrderService struct {
	createFn      func(context.Context, services.CreateOrderCommand) (domain.Order, error)
	getFn         func(context.Context, string, services.Requester) (domain.Order, error)
	listFn        func(context.Context, services.ListOrdersQuery) (domain.Page[domain.Order], error)
	cancelFn      func(context.Context, services.CancelOrderCommand) (domain.Order, error)
	adminListFn   func(context.Context, services.AdminListOrdersQuery) (services.AdminOrderPage, error)
	adminUpdateFn func(context.Context, services.AdminUpdateOrderCommand) (domain.Order, error)
}

var _ services.OrderService = (*stubOrderService)(nil)

func (s *stubOrderService) CreateOrder(ctx context.Context, cmd services.CreateOrderCommand) (domain.Order, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) GetOrder(ctx context.Context, orderID string, requester services.Requester) (domain.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, orderID, requester)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) ListOrders(ctx context.Context, query services.ListOrdersQuery) (domain.Page[domain.Order], error) {
	if s.listFn != nil {
		return s.listFn(ctx, query)
	}
	return domain.Page[domain.Order]{}, nil
}

func (s *stubOrderService) CancelOrder(ctx context.Context, cmd services.CancelOrderCommand) (domain.Order, error) {
	if s.cancelFn != nil {
		return s.cancelFn(ctx, cmd)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) AdminListOrders(ctx context.Context, query services.AdminListOrdersQuery) (services.AdminOrderPage, error) {
	if s.adminListFn != nil {
		return s.adminListFn(ctx, query)
	}
	return services.AdminOrderPage{}, nil
}

func (s *stubOrderService) AdminUpdateOrder(ctx context.Context, cmd services.AdminUpdateOrderCommand) (domain.Order, error) {
	if s.adminUpdateFn != nil {
		return s.adminUpdateFn(ctx, cmd)
	}
	return domain.Order{}, errors.New("not implemented")
}

type stubCartService struct {
	getFn    func(context.Context, string) (services.CartView, error)
	addFn    func(context.Context, services.CartItemCommand) (services.CartView, error)
	updateFn func(context.Context, services.CartItemCommand) (services.CartView, error)
	removeFn func(context.Context, string, string) (services.CartView, error)
	clearFn  func(context.Context, string) (services.CartView, error)
}

var _ services.CartService = (*stubCartService)(nil)

func (s *stubCartService) GetCart(ctx context.Context, userID string) (services.CartView, error) {
	if s.getFn != nil {
		return s.getFn(ctx, userID)
	}
	return services.CartView{UserID: userID}, nil
}

func (s *stubCartService) AddItem(ctx context.Context, cmd services.CartItemCommand) (services.CartView, error) {
	if s.addFn != nil {
		return s.addFn(ctx, cmd)
	}
	return services.CartView{}, errors.New("not implemented")
}

func (s *stubCartService) UpdateItem(ctx context.Context, cmd services.CartItemCommand) (services.CartView, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, cmd)
	}
	return services.CartView{}, errors.New("not implemented")
}

func (s *stubCartService) RemoveItem(ctx context.Context, userID, productID string) (services.CartView, error) {
	if s.removeFn != nil {
		return s.removeFn(ctx, userID, productID)
	}
	return services.CartView{}, errors.New("not implemented")
}

func (s *stubCartService) ClearCart(ctx context.Context, userID string) (services.CartView, error) {
	if s.clearFn != nil {
		return s.clearFn(ctx, userID)
	}
	return services.CartView{}, errors.New("not implemented")
}

type stubSystemService struct {
	report domain.SystemHealthReport
	err    error
}

var _ services.SystemService = (*stubSystemService)(nil)

func (s *stubSystemService) HealthReport(context.Context) (domain.SystemHealthReport, error) {
	return s.report, s.err
}

func withIdentity(req *http.Request, uid string, roles ...string) *http.Request {
	return req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: uid, Roles: roles}))
}
