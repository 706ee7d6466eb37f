package memory

import (
	"context"
	"errors"
	"slices"

	domain "github.com/storefront/api/internal/domain"
	"github.com/storefront/api/internal/repositories"
)

type cartRepository struct{ s *store }

func (r cartRepository) Get(ctx context.Context, userID string) (domain.Cart, error) {
	if err := ctx.Err(); err != nil {
		return domain.Cart{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cart, ok := r.s.carts[userID]
	if !ok {
		return domain.Cart{UserID: userID}, nil
	}
	cart.Lines = slices.Clone(cart.Lines)
	return cart, nil
}

func (r cartRepository) Save(ctx context.Context, cart domain.Cart, expectedVersion int64) (domain.Cart, error) {
	if err := ctx.Err(); err != nil {
		return domain.Cart{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if current := r.s.carts[cart.UserID]; current.Version != expectedVersion {
		return domain.Cart{}, repositories.NewConflictError("cart.save", errors.New("version mismatch"))
	}
	cart.Version = expectedVersion + 1
	if cart.UpdatedAt.IsZero() {
		cart.UpdatedAt = r.s.now().UTC()
	}
	cart.Lines = slices.Clone(cart.Lines)
	r.s.carts[cart.UserID] = cart
	return cart, nil
}

func (r cartRepository) Clear(ctx context.Context, userID string, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current := r.s.carts[userID]
	if current.Version != expectedVersion {
		return repositories.NewConflictError("cart.clear", errors.New("version mismatch"))
	}
	r.s.carts[userID] = domain.Cart{UserID: userID, Version: expectedVersion + 1, UpdatedAt: r.s.now().UTC()}
	return nil
}
