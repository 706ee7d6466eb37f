package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/storefront/api/internal/domain"
	pfirestore "github.com/storefront/api/internal/platform/firestore"
	"github.com/storefront/api/internal/repositories"
)

const cartsCollection = "carts"

// CartRepository stores one document per user keyed by user ID.
type CartRepository struct {
	provider *pfirestore.Provider
	carts    *pfirestore.Collection[cartDocument]
	now      func() time.Time
}

func NewCartRepository(provider *pfirestore.Provider, clock func() time.Time) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	if clock == nil {
		clock = time.Now
	}
	return &CartRepository{
		provider: provider,
		carts:    pfirestore.NewCollection[cartDocument](provider, cartsCollection),
		now:      clock,
	}, nil
}

func (r *CartRepository) Get(ctx context.Context, userID string) (domain.Cart, error) {
	doc, err := r.carts.Get(ctx, userID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.Cart{UserID: userID, Lines: []domain.CartLine{}}, nil
		}
		return domain.Cart{}, pfirestore.WrapError("cart.get", err)
	}
	return doc.toDomain(userID), nil
}

func (r *CartRepository) Save(ctx context.Context, cart domain.Cart, expectedVersion int64) (domain.Cart, error) {
	cart.Version = expectedVersion + 1
	cart.UpdatedAt = r.now().UTC()
	if err := r.swap(ctx, "cart.save", cart.UserID, expectedVersion, newCartDocument(cart)); err != nil {
		return domain.Cart{}, err
	}
	return cart, nil
}

func (r *CartRepository) Clear(ctx context.Context, userID string, expectedVersion int64) error {
	empty := domain.Cart{UserID: userID, Version: expectedVersion + 1, UpdatedAt: r.now().UTC()}
	return r.swap(ctx, "cart.clear", userID, expectedVersion, newCartDocument(empty))
}

func (r *CartRepository) swap(ctx context.Context, op, userID string, expectedVersion int64, doc cartDocument) error {
	ref, err := r.carts.Ref(ctx, userID)
	if err != nil {
		return err
	}
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var stored int64
		snap, err := tx.Get(ref)
		switch {
		case err == nil:
			var current cartDocument
			if err := snap.DataTo(&current); err != nil {
				return err
			}
			stored = current.Version
		case status.Code(err) == codes.NotFound:
		default:
			return err
		}
		if stored != expectedVersion {
			return repositories.NewConflictError(op, fmt.Errorf("cart %s at version %d, expected %d", userID, stored, expectedVersion))
		}
		return tx.Set(ref, doc)
	})
	if err != nil {
		var storeErr *repositories.StoreError
		if errors.As(err, &storeErr) {
			return storeErr
		}
		return pfirestore.WrapError(op, err)
	}
	return nil
}
