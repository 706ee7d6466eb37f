// Package firestore implements the repositories on Cloud Firestore.
package firestore

import (
	"context"
	"errors"
	"time"

	pfirestore "github.com/storefront/api/internal/platform/firestore"
	"github.com/storefront/api/internal/repositories"
)

// Registry wires Firestore-backed repositories around one shared provider.
type Registry struct {
	provider  *pfirestore.Provider
	products  *ProductRepository
	inventory *InventoryRepository
	counters  *CounterRepository
	orders    *OrderRepository
	carts     *CartRepository
	health    repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry builds every repository; clock may be nil.
func NewRegistry(provider *pfirestore.Provider, clock func() time.Time) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("firestore registry requires provider")
	}
	products, err := NewProductRepository(provider)
	if err != nil {
		return nil, err
	}
	inventory, err := NewInventoryRepository(provider, clock)
	if err != nil {
		return nil, err
	}
	counters, err := NewCounterRepository(provider, clock)
	if err != nil {
		return nil, err
	}
	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	carts, err := NewCartRepository(provider, clock)
	if err != nil {
		return nil, err
	}
	health, err := repositories.NewDependencyHealthRepository([]repositories.DependencyCheck{{
		Name:  "firestore",
		Check: provider.Ping,
	}})
	if err != nil {
		return nil, err
	}
	return &Registry{
		provider:  provider,
		products:  products,
		inventory: inventory,
		counters:  counters,
		orders:    orders,
		carts:     carts,
		health:    health,
	}, nil
}

func (r *Registry) Close(ctx context.Context) error { return r.provider.Close(ctx) }

func (r *Registry) Products() repositories.ProductRepository   { return r.products }
func (r *Registry) Inventory() repositories.InventoryRepository { return r.inventory }
func (r *Registry) Counters() repositories.CounterRepository   { return r.counters }
func (r *Registry) Orders() repositories.OrderRepository       { return r.orders }
func (r *Registry) Carts() repositories.CartRepository         { return r.carts }
func (r *Registry) Health() repositories.HealthRepository      { return r.health }
