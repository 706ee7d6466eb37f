package repositories

import (
	"context"
	"time"

	domain "github.com/storefront/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Products() ProductRepository
	Inventory() InventoryRepository
	Counters() CounterRepository
	Orders() OrderRepository
	Carts() CartRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// ProductRepository is the read side of the catalog consumed at checkout.
type ProductRepository interface {
	FindByID(ctx context.Context, productID string) (domain.Product, error)
}

// InventoryRepository exposes the atomic stock primitives. Reserve must be a single conditional
// decrement guarded by availability and the product's active flag.
type InventoryRepository interface {
	Reserve(ctx context.Context, productID string, quantity int) (domain.StockLevel, error)
	Release(ctx context.Context, productID string, quantity int) (domain.StockLevel, error)
}

// CounterRepository provides transaction-safe sequence numbers.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
}

// OrderRepository persists orders. Insert must reject duplicate order numbers and Update must
// only apply when the stored version equals expectedVersion.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	Update(ctx context.Context, order domain.Order, expectedVersion int64) error
	List(ctx context.Context, filter OrderListFilter) (domain.Page[domain.Order], error)
	Summarize(ctx context.Context, filter OrderListFilter) (domain.OrderSummary, error)
}

// CartRepository persists versioned carts. A missing cart is returned as an empty cart at version 0.
type CartRepository interface {
	Get(ctx context.Context, userID string) (domain.Cart, error)
	Save(ctx context.Context, cart domain.Cart, expectedVersion int64) (domain.Cart, error)
	Clear(ctx context.Context, userID string, expectedVersion int64) error
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}

// OrderListFilter narrows order listings. Zero values mean "no constraint".
type OrderListFilter struct {
	UserID        string
	Status        domain.OrderStatus
	PaymentStatus domain.PaymentStatus
	CreatedAt     domain.RangeQuery[time.Time]
	Pagination    domain.Pagination
}
