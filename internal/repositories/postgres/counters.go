package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	ppostgres "github.com/storefront/api/internal/platform/postgres"
	"github.com/storefront/api/internal/repositories"
)

type counterRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func (r counterRepository) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	counterID = strings.TrimSpace(counterID)
	if counterID == "" {
		return 0, repositories.NewCounterError(repositories.CounterErrorInvalidInput, "counter id is required", nil)
	}
	if step <= 0 {
		step = 1
	}
	var value int64
	err := r.pool.QueryRow(ctx, `INSERT INTO counters (id, value, step, updated_at)
		VALUES ($1, $2, $2, $3)
		ON CONFLICT (id) DO UPDATE SET value = counters.value + $2, updated_at = EXCLUDED.updated_at
		RETURNING value`, counterID, step, r.now().UTC()).Scan(&value)
	if err != nil {
		return 0, ppostgres.WrapError("counter.next", err)
	}
	return value, nil
}
