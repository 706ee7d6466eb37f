// Package memory provides process-local repositories used for development and tests.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	domain "github.com/storefront/api/internal/domain"
	"github.com/storefront/api/internal/repositories"
)

// Registry backs every repository with a shared in-process store.
type Registry struct {
	store  *store
	health repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

type store struct {
	mu       sync.Mutex
	products map[string]domain.Product
	counters map[string]int64
	orders   map[string]domain.Order
	numbers  map[string]string
	carts    map[string]domain.Cart
	now      func() time.Time
}

// Option customises the in-memory registry.
type Option func(*store)

// WithClock injects the clock used for updatedAt stamps.
func WithClock(clock func() time.Time) Option {
	return func(s *store) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewRegistry builds an empty in-memory registry.
func NewRegistry(opts ...Option) (*Registry, error) {
	s := &store{
		products: make(map[string]domain.Product),
		counters: make(map[string]int64),
		orders:   make(map[string]domain.Order),
		numbers:  make(map[string]string),
		carts:    make(map[string]domain.Cart),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	health, err := repositories.NewDependencyHealthRepository([]repositories.DependencyCheck{{
		Name:  "memory",
		Check: func(context.Context) error { return nil },
	}})
	if err != nil {
		return nil, err
	}
	return &Registry{store: s, health: health}, nil
}

// Seed inserts or replaces catalog products.
func (r *Registry) Seed(products ...domain.Product) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, product := range products {
		r.store.products[product.ID] = product
	}
}

func (r *Registry) Close(context.Context) error { return nil }

func (r *Registry) Products() repositories.ProductRepository   { return productRepository{r.store} }
func (r *Registry) Inventory() repositories.InventoryRepository { return inventoryRepository{r.store} }
func (r *Registry) Counters() repositories.CounterRepository   { return counterRepository{r.store} }
func (r *Registry) Orders() repositories.OrderRepository       { return orderRepository{r.store} }
func (r *Registry) Carts() repositories.CartRepository         { return cartRepository{r.store} }
func (r *Registry) Health() repositories.HealthRepository      { return r.health }

type productRepository struct{ s *store }

func (r productRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	product, ok := r.s.products[productID]
	if !ok {
		return domain.Product{}, repositories.NewNotFoundError("product.find", errors.New("product "+productID+" not found"))
	}
	return product, nil
}
