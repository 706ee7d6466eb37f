package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/storefront/api/internal/domain"
	ppostgres "github.com/storefront/api/internal/platform/postgres"
	"github.com/storefront/api/internal/repositories"
)

type inventoryRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// Reserve is one conditional UPDATE. When it matches no row a follow-up read explains why.
func (r inventoryRepository) Reserve(ctx context.Context, productID string, quantity int) (domain.StockLevel, error) {
	if quantity <= 0 {
		return domain.StockLevel{}, repositories.NewInventoryError(repositories.InventoryErrorInvalidQuantity, "quantity must be positive", nil)
	}
	var level domain.StockLevel
	err := r.pool.QueryRow(ctx, `UPDATE products
		SET available_quantity = available_quantity - $2, updated_at = $3
		WHERE id = $1 AND is_active AND NOT is_deleted AND available_quantity >= $2
		RETURNING id, available_quantity, low_stock_threshold`,
		productID, quantity, r.now().UTC()).Scan(&level.ProductID, &level.AvailableQuantity, &level.LowStockThreshold)
	if err == nil {
		return level, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.StockLevel{}, ppostgres.WrapError("inventory.reserve", err)
	}
	return domain.StockLevel{}, r.explainRejection(ctx, productID, quantity)
}

func (r inventoryRepository) explainRejection(ctx context.Context, productID string, quantity int) error {
	var (
		active, deleted bool
		available       int
	)
	err := r.pool.QueryRow(ctx, `SELECT is_active, is_deleted, available_quantity FROM products WHERE id = $1`, productID).
		Scan(&active, &deleted, &available)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return repositories.NewProductInventoryError(repositories.InventoryErrorProductNotFound, productID)
	case err != nil:
		return ppostgres.WrapError("inventory.reserve", err)
	case deleted:
		return repositories.NewProductInventoryError(repositories.InventoryErrorProductNotFound, productID)
	case !active:
		return repositories.NewProductInventoryError(repositories.InventoryErrorProductInactive, productID)
	default:
		return repositories.NewInsufficientStockError(productID, quantity, available)
	}
}

func (r inventoryRepository) Release(ctx context.Context, productID string, quantity int) (domain.StockLevel, error) {
	if quantity <= 0 {
		return domain.StockLevel{}, repositories.NewInventoryError(repositories.InventoryErrorInvalidQuantity, "quantity must be positive", nil)
	}
	var level domain.StockLevel
	err := r.pool.QueryRow(ctx, `UPDATE products
		SET available_quantity = available_quantity + $2, updated_at = $3
		WHERE id = $1
		RETURNING id, available_quantity, low_stock_threshold`,
		productID, quantity, r.now().UTC()).Scan(&level.ProductID, &level.AvailableQuantity, &level.LowStockThreshold)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.StockLevel{}, repositories.NewProductInventoryError(repositories.InventoryErrorProductNotFound, productID)
	}
	if err != nil {
		return domain.StockLevel{}, ppostgres.WrapError("inventory.release", err)
	}
	return level, nil
}
