package firestore

import (
	"context"
	"errors"

	domain "github.com/storefront/api/internal/domain"
	pfirestore "github.com/storefront/api/internal/platform/firestore"
)

const productsCollection = "products"

// ProductRepository reads catalog documents from the products collection.
type ProductRepository struct {
	products *pfirestore.Collection[productDocument]
}

func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	return &ProductRepository{products: pfirestore.NewCollection[productDocument](provider, productsCollection)}, nil
}

func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	doc, err := r.products.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, pfirestore.WrapError("product.find", err)
	}
	return doc.toDomain(productID), nil
}
