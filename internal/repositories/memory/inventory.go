package memory

import (
	"context"

	domain "github.com/storefront/api/internal/domain"
	"github.com/storefront/api/internal/repositories"
)

type inventoryRepository struct{ s *store }

func (r inventoryRepository) Reserve(ctx context.Context, productID string, quantity int) (domain.StockLevel, error) {
	if err := ctx.Err(); err != nil {
		return domain.StockLevel{}, err
	}
	if quantity <= 0 {
		return domain.StockLevel{}, repositories.NewInventoryError(repositories.InventoryErrorInvalidQuantity, "quantity must be positive", nil)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	product, ok := r.s.products[productID]
	switch {
	case !ok || product.IsDeleted:
		return domain.StockLevel{}, repositories.NewProductInventoryError(repositories.InventoryErrorProductNotFound, productID)
	case !product.IsActive:
		return domain.StockLevel{}, repositories.NewProductInventoryError(repositories.InventoryErrorProductInactive, productID)
	case product.AvailableQuantity < quantity:
		return domain.StockLevel{}, repositories.NewInsufficientStockError(productID, quantity, product.AvailableQuantity)
	}
	product.AvailableQuantity -= quantity
	product.UpdatedAt = r.s.now().UTC()
	r.s.products[productID] = product
	return stockLevel(product), nil
}

func (r inventoryRepository) Release(ctx context.Context, productID string, quantity int) (domain.StockLevel, error) {
	if err := ctx.Err(); err != nil {
		return domain.StockLevel{}, err
	}
	if quantity <= 0 {
		return domain.StockLevel{}, repositories.NewInventoryError(repositories.InventoryErrorInvalidQuantity, "quantity must be positive", nil)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	product, ok := r.s.products[productID]
	if !ok {
		return domain.StockLevel{}, repositories.NewProductInventoryError(repositories.InventoryErrorProductNotFound, productID)
	}
	// Released stock returns even to inactive products so the ledger stays balanced.
	product.AvailableQuantity += quantity
	product.UpdatedAt = r.s.now().UTC()
	r.s.products[productID] = product
	return stockLevel(product), nil
}

func stockLevel(p domain.Product) domain.StockLevel {
	return domain.StockLevel{
		ProductID:         p.ID,
		AvailableQuantity: p.AvailableQuantity,
		LowStockThreshold: p.LowStockThreshold,
	}
}

type counterRepository struct{ s *store }

func (r counterRepository) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if counterID == "" {
		return 0, repositories.NewCounterError(repositories.CounterErrorInvalidInput, "counter id is required", nil)
	}
	if step <= 0 {
		step = 1
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.counters[counterID] += step
	return r.s.counters[counterID], nil
}
