package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/storefront/api/internal/domain"
	ppostgres "github.com/storefront/api/internal/platform/postgres"
	"github.com/storefront/api/internal/repositories"
)

type cartRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func (r cartRepository) Get(ctx context.Context, userID string) (domain.Cart, error) {
	var (
		document []byte
		version  int64
	)
	err := r.pool.QueryRow(ctx, `SELECT document, version FROM carts WHERE user_id = $1`, userID).Scan(&document, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Cart{UserID: userID, Lines: []domain.CartLine{}}, nil
	}
	if err != nil {
		return domain.Cart{}, ppostgres.WrapError("cart.get", err)
	}
	var cart domain.Cart
	if err := json.Unmarshal(document, &cart); err != nil {
		return domain.Cart{}, fmt.Errorf("cart %s: decode: %w", userID, err)
	}
	cart.UserID = userID
	cart.Version = version
	if cart.Lines == nil {
		cart.Lines = []domain.CartLine{}
	}
	return cart, nil
}

func (r cartRepository) Save(ctx context.Context, cart domain.Cart, expectedVersion int64) (domain.Cart, error) {
	cart.Version = expectedVersion + 1
	cart.UpdatedAt = r.now().UTC()
	if err := r.swap(ctx, "cart.save", cart, expectedVersion); err != nil {
		return domain.Cart{}, err
	}
	return cart, nil
}

func (r cartRepository) Clear(ctx context.Context, userID string, expectedVersion int64) error {
	empty := domain.Cart{UserID: userID, Lines: []domain.CartLine{}, Version: expectedVersion + 1, UpdatedAt: r.now().UTC()}
	return r.swap(ctx, "cart.clear", empty, expectedVersion)
}

// swap writes cart only when the stored version matches. Version 0 means no row yet.
func (r cartRepository) swap(ctx context.Context, op string, cart domain.Cart, expectedVersion int64) error {
	document, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("%s: encode: %w", op, err)
	}
	var tag pgconn.CommandTag
	if expectedVersion == 0 {
		tag, err = r.pool.Exec(ctx, `INSERT INTO carts (user_id, version, document, updated_at)
			VALUES ($1, $2, $3, $4) ON CONFLICT (user_id) DO NOTHING`,
			cart.UserID, cart.Version, document, cart.UpdatedAt)
	} else {
		tag, err = r.pool.Exec(ctx, `UPDATE carts SET version = $3, document = $4, updated_at = $5
			WHERE user_id = $1 AND version = $2`,
			cart.UserID, expectedVersion, cart.Version, document, cart.UpdatedAt)
	}
	if err != nil {
		return ppostgres.WrapError(op, err)
	}
	if tag.RowsAffected() != 1 {
		return repositories.NewConflictError(op, fmt.Errorf("cart %s changed since version %d", cart.UserID, expectedVersion))
	}
	return nil
}
