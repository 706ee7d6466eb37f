package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	domain "github.com/storefront/api/internal/domain"
	"github.com/storefront/api/internal/repositories"
)

type stubOrderRepo struct {
	insertFn    func(context.Context, domain.Order) error
	updateFn    func(context.Context, domain.Order, int64) error
	findFn      func(context.Context, string) (domain.Order, error)
	listFn      func(context.Context, repositories.OrderListFilter) (domain.Page[domain.Order], error)
	summarizeFn func(context.Context, repositories.OrderListFilter) (domain.OrderSummary, error)
}

func (s *stubOrderRepo) Insert(ctx context.Context, order domain.Order) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, order)
	}
	return nil
}

func (s *stubOrderRepo) Update(ctx context.Context, order domain.Order, expectedVersion int64) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, order, expectedVersion)
	}
	return nil
}

func (s *stubOrderRepo) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if s.findFn != nil {
		return s.findFn(ctx, orderID)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderRepo) List(ctx context.Context, filter repositories.OrderListFilter) (domain.Page[domain.Order], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.Page[domain.Order]{}, nil
}

func (s *stubOrderRepo) Summarize(ctx context.Context, filter repositories.OrderListFilter) (domain.OrderSummary, error) {
	if s.summarizeFn != nil {
		return s.summarizeFn(ctx, filter)
	}
	return domain.OrderSummary{}, nil
}

type stubProductRepo struct {
	products map[string]domain.Product
	err      error
}

func (s *stubProductRepo) FindByID(_ context.Context, productID string) (domain.Product, error) {
	if s.err != nil {
		return domain.Product{}, s.err
	}
	product, ok := s.products[productID]
	if !ok {
		return domain.Product{}, repositories.NewNotFoundError("product.find", errors.New(productID))
	}
	return product, nil
}

type stubCartRepo struct {
	mu      sync.Mutex
	cart    domain.Cart
	getErr  error
	saveFn  func(context.Context, domain.Cart, int64) (domain.Cart, error)
	clearFn func(context.Context, string, int64) error
	cleared int
}

func (s *stubCartRepo) Get(_ context.Context, userID string) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return domain.Cart{}, s.getErr
	}
	cart := s.cart
	cart.UserID = userID
	cart.Lines = append([]domain.CartLine(nil), s.cart.Lines...)
	return cart, nil
}

func (s *stubCartRepo) Save(ctx context.Context, cart domain.Cart, expectedVersion int64) (domain.Cart, error) {
	if s.saveFn != nil {
		return s.saveFn(ctx, cart, expectedVersion)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cart.Version != expectedVersion {
		return domain.Cart{}, repositories.NewConflictError("cart.save", errors.New("version mismatch"))
	}
	cart.Version = expectedVersion + 1
	s.cart = cart
	return cart, nil
}

func (s *stubCartRepo) Clear(ctx context.Context, userID string, expectedVersion int64) error {
	if s.clearFn != nil {
		return s.clearFn(ctx, userID, expectedVersion)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared++
	s.cart = domain.Cart{UserID: userID, Version: s.cart.Version + 1}
	return nil
}

type stubInventoryService struct {
	mu        sync.Mutex
	reserveFn func(context.Context, string, int) (domain.StockLevel, error)
	releaseFn func(context.Context, string, int) (domain.StockLevel, error)
	reserved  []string
	released  []string
}

func (s *stubInventoryService) Reserve(ctx context.Context, productID string, quantity int) (domain.StockLevel, error) {
	s.mu.Lock()
	s.reserved = append(s.reserved, productID)
	s.mu.Unlock()
	if s.reserveFn != nil {
		return s.reserveFn(ctx, productID, quantity)
	}
	return domain.StockLevel{ProductID: productID}, nil
}

func (s *stubInventoryService) Release(ctx context.Context, productID string, quantity int) (domain.StockLevel, error) {
	s.mu.Lock()
	s.released = append(s.released, productID)
	s.mu.Unlock()
	if s.releaseFn != nil {
		return s.releaseFn(ctx, productID, quantity)
	}
	return domain.StockLevel{ProductID: productID}, nil
}

type stubCounterService struct {
	number string
	err    error
	calls  int
}

func (s *stubCounterService) NextOrderNumber(context.Context) (string, error) {
	s.calls++
	return s.number, s.err
}

type captureOrderEvents struct {
	mu     sync.Mutex
	events []OrderEvent
	err    error
}

func (c *captureOrderEvents) PublishOrderEvent(_ context.Context, event OrderEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return c.err
}

func (c *captureOrderEvents) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.events))
	for _, event := range c.events {
		out = append(out, event.Type)
	}
	return out
}

type captureLogger struct {
	mu     sync.Mutex
	events []string
	fields []map[string]any
}

func (l *captureLogger) log(_ context.Context, event string, fields map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	l.fields = append(l.fields, fields)
}

// fieldsOf returns the fields of every entry logged under event.
func (l *captureLogger) fieldsOf(event string) []map[string]any {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []map[string]any
	for i, e := range l.events {
		if e == event {
			out = append(out, l.fields[i])
		}
	}
	return out
}

func (l *captureLogger) has(event string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e == event {
			return true
		}
	}
	return false
}

func mustOrderService(t *testing.T, deps OrderServiceDeps) OrderService {
	t.Helper()
	svc, err := NewOrderService(deps)
	if err != nil {
		t.Fatalf("NewOrderService: %v", err)
	}
	return svc
}
