// Package postgres implements the repositories on PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/storefront/api/internal/repositories"
)

// Registry wires pgx-backed repositories around one pool. Close releases the pool.
type Registry struct {
	pool   *pgxpool.Pool
	now    func() time.Time
	health repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

func NewRegistry(pool *pgxpool.Pool, clock func() time.Time) (*Registry, error) {
	if pool == nil {
		return nil, errors.New("postgres registry requires pool")
	}
	if clock == nil {
		clock = time.Now
	}
	health, err := repositories.NewDependencyHealthRepository([]repositories.DependencyCheck{{
		Name:  "postgres",
		Check: pool.Ping,
	}})
	if err != nil {
		return nil, err
	}
	return &Registry{pool: pool, now: clock, health: health}, nil
}

func (r *Registry) Close(context.Context) error {
	r.pool.Close()
	return nil
}

func (r *Registry) Products() repositories.ProductRepository { return productRepository{r.pool} }
func (r *Registry) Inventory() repositories.InventoryRepository {
	return inventoryRepository{pool: r.pool, now: r.now}
}
func (r *Registry) Counters() repositories.CounterRepository {
	return counterRepository{pool: r.pool, now: r.now}
}
func (r *Registry) Orders() repositories.OrderRepository { return orderRepository{r.pool} }
func (r *Registry) Carts() repositories.CartRepository  { return cartRepository{pool: r.pool, now: r.now} }
func (r *Registry) Health() repositories.HealthRepository { return r.health }
