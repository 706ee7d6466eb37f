package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/storefront/api/internal/domain"
	pfirestore "github.com/storefront/api/internal/platform/firestore"
	"github.com/storefront/api/internal/repositories"
)

// InventoryRepository keeps availableQuantity on the product document and adjusts it inside a
// transaction so the availability check and the decrement commit together.
type InventoryRepository struct {
	provider *pfirestore.Provider
	products *pfirestore.Collection[productDocument]
	now      func() time.Time
}

func NewInventoryRepository(provider *pfirestore.Provider, clock func() time.Time) (*InventoryRepository, error) {
	if provider == nil {
		return nil, errors.New("inventory repository requires firestore provider")
	}
	if clock == nil {
		clock = time.Now
	}
	return &InventoryRepository{
		provider: provider,
		products: pfirestore.NewCollection[productDocument](provider, productsCollection),
		now:      clock,
	}, nil
}

func (r *InventoryRepository) Reserve(ctx context.Context, productID string, quantity int) (domain.StockLevel, error) {
	return r.adjust(ctx, "inventory.reserve", productID, quantity, func(doc *productDocument) error {
		switch {
		case doc.IsDeleted:
			return repositories.NewProductInventoryError(repositories.InventoryErrorProductNotFound, productID)
		case !doc.IsActive:
			return repositories.NewProductInventoryError(repositories.InventoryErrorProductInactive, productID)
		case doc.AvailableQuantity < quantity:
			return repositories.NewInsufficientStockError(productID, quantity, doc.AvailableQuantity)
		}
		doc.AvailableQuantity -= quantity
		return nil
	})
}

func (r *InventoryRepository) Release(ctx context.Context, productID string, quantity int) (domain.StockLevel, error) {
	return r.adjust(ctx, "inventory.release", productID, quantity, func(doc *productDocument) error {
		doc.AvailableQuantity += quantity
		return nil
	})
}

func (r *InventoryRepository) adjust(ctx context.Context, op, productID string, quantity int, apply func(*productDocument) error) (domain.StockLevel, error) {
	if quantity <= 0 {
		return domain.StockLevel{}, repositories.NewInventoryError(repositories.InventoryErrorInvalidQuantity, "quantity must be positive", nil)
	}
	ref, err := r.products.Ref(ctx, productID)
	if err != nil {
		return domain.StockLevel{}, err
	}

	var level domain.StockLevel
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := r.products.GetTx(tx, ref)
		if err != nil {
			if repositories.IsNotFound(err) {
				return repositories.NewProductInventoryError(repositories.InventoryErrorProductNotFound, productID)
			}
			return err
		}
		if err := apply(&doc); err != nil {
			return err
		}
		doc.UpdatedAt = r.now().UTC()
		if err := tx.Update(ref, []firestore.Update{
			{Path: "availableQuantity", Value: doc.AvailableQuantity},
			{Path: "updatedAt", Value: doc.UpdatedAt},
		}); err != nil {
			return err
		}
		level = domain.StockLevel{
			ProductID:         productID,
			AvailableQuantity: doc.AvailableQuantity,
			LowStockThreshold: doc.LowStockThreshold,
		}
		return nil
	})
	if err != nil {
		var invErr *repositories.InventoryError
		if errors.As(err, &invErr) {
			invErr.Op = op
			return domain.StockLevel{}, invErr
		}
		return domain.StockLevel{}, pfirestore.WrapError(op, err)
	}
	return level, nil
}
