package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/storefront/api/internal/domain"
	ppostgres "github.com/storefront/api/internal/platform/postgres"
)

const productColumns = `id, name, price, image, brand, category, is_active, is_deleted, available_quantity, low_stock_threshold, updated_at`

type productRepository struct{ pool *pgxpool.Pool }

func (r productRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, productID)
	product, err := scanProduct(row)
	if err != nil {
		return domain.Product{}, ppostgres.WrapError("product.find", fmt.Errorf("product %s: %w", productID, err))
	}
	return product, nil
}

// UpsertProduct writes a catalog row. It backs seeding and tests; the catalog itself is owned elsewhere.
func UpsertProduct(ctx context.Context, pool *pgxpool.Pool, p domain.Product) error {
	_, err := pool.Exec(ctx, `INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, price = EXCLUDED.price, image = EXCLUDED.image,
			brand = EXCLUDED.brand, category = EXCLUDED.category, is_active = EXCLUDED.is_active,
			is_deleted = EXCLUDED.is_deleted, available_quantity = EXCLUDED.available_quantity,
			low_stock_threshold = EXCLUDED.low_stock_threshold, updated_at = EXCLUDED.updated_at`,
		p.ID, p.Name, p.Price, p.Image, p.Brand, p.Category, p.IsActive, p.IsDeleted,
		p.AvailableQuantity, p.LowStockThreshold, p.UpdatedAt.UTC())
	return ppostgres.WrapError("product.upsert", err)
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Image, &p.Brand, &p.Category, &p.IsActive, &p.IsDeleted,
		&p.AvailableQuantity, &p.LowStockThreshold, &p.UpdatedAt)
	return p, err
}
