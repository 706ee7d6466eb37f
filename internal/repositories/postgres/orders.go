package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/storefront/api/internal/domain"
	ppostgres "github.com/storefront/api/internal/platform/postgres"
	"github.com/storefront/api/internal/repositories"
)

const orderNumberConstraint = "orders_order_number_key"

// orderRepository keeps the full order as JSONB and mirrors the filterable fields into columns.
type orderRepository struct{ pool *pgxpool.Pool }

func (r orderRepository) Insert(ctx context.Context, order domain.Order) error {
	document, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("order insert: encode: %w", err)
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO orders
		(id, order_number, user_id, status, payment_status, total_amount, version, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		order.ID, order.OrderNumber, order.UserID, string(order.Status), string(order.PaymentStatus),
		order.TotalAmount, order.Version, document, order.CreatedAt.UTC(), order.UpdatedAt.UTC())
	if err != nil {
		if ppostgres.IsUniqueViolation(err, orderNumberConstraint) {
			return repositories.NewConflictError("order.insert", fmt.Errorf("order number %s already used: %w", order.OrderNumber, err))
		}
		return ppostgres.WrapError("order.insert", err)
	}
	return nil
}

func (r orderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	var document []byte
	err := r.pool.QueryRow(ctx, `SELECT document FROM orders WHERE id = $1`, orderID).Scan(&document)
	if err != nil {
		return domain.Order{}, ppostgres.WrapError("order.find", fmt.Errorf("order %s: %w", orderID, err))
	}
	return decodeOrder(document)
}

func (r orderRepository) Update(ctx context.Context, order domain.Order, expectedVersion int64) error {
	document, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("order update: encode: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `UPDATE orders
		SET status = $3, payment_status = $4, total_amount = $5, version = $6, document = $7, updated_at = $8
		WHERE id = $1 AND version = $2`,
		order.ID, expectedVersion, string(order.Status), string(order.PaymentStatus), order.TotalAmount,
		order.Version, document, order.UpdatedAt.UTC())
	if err != nil {
		return ppostgres.WrapError("order.update", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, order.ID).Scan(&exists); err != nil {
		return ppostgres.WrapError("order.update", err)
	}
	if !exists {
		return repositories.NewNotFoundError("order.update", fmt.Errorf("order %s not found", order.ID))
	}
	return repositories.NewConflictError("order.update", fmt.Errorf("order %s changed since version %d", order.ID, expectedVersion))
}

func (r orderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.Page[domain.Order], error) {
	page := domain.Page[domain.Order]{
		Items: []domain.Order{},
		Page:  filter.Pagination.Page,
		Limit: filter.Pagination.Limit,
	}
	where, args := orderWhere(filter)

	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&page.Total); err != nil {
		return page, ppostgres.WrapError("order.count", err)
	}
	if page.Total == 0 {
		return page, nil
	}

	query := `SELECT document FROM orders` + where + ` ORDER BY created_at DESC, id DESC`
	if filter.Pagination.Limit > 0 {
		args = append(args, filter.Pagination.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset := filter.Pagination.Offset(); offset > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return page, ppostgres.WrapError("order.list", err)
	}
	defer rows.Close()
	for rows.Next() {
		var document []byte
		if err := rows.Scan(&document); err != nil {
			return page, ppostgres.WrapError("order.list", err)
		}
		order, err := decodeOrder(document)
		if err != nil {
			return page, err
		}
		page.Items = append(page.Items, order)
	}
	return page, ppostgres.WrapError("order.list", rows.Err())
}

func (r orderRepository) Summarize(ctx context.Context, filter repositories.OrderListFilter) (domain.OrderSummary, error) {
	where, args := orderWhere(filter)
	args = append(args, string(domain.OrderStatusCancelled))
	var summary domain.OrderSummary
	err := r.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT COALESCE(SUM(total_amount) FILTER (WHERE status <> $%d), 0) FROM orders%s`, len(args), where),
		args...).Scan(&summary.TotalRevenueExcludingCancelled)
	if err != nil {
		return domain.OrderSummary{}, ppostgres.WrapError("order.summarize", err)
	}
	return summary, nil
}

func orderWhere(filter repositories.OrderListFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if filter.UserID != "" {
		add("user_id = $%d", filter.UserID)
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.PaymentStatus != "" {
		add("payment_status = $%d", string(filter.PaymentStatus))
	}
	if from := filter.CreatedAt.From; from != nil {
		add("created_at >= $%d", from.UTC())
	}
	if to := filter.CreatedAt.To; to != nil {
		add("created_at <= $%d", to.UTC())
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func decodeOrder(document []byte) (domain.Order, error) {
	var order domain.Order
	if err := json.Unmarshal(document, &order); err != nil {
		return domain.Order{}, errors.Join(errors.New("order: decode document"), err)
	}
	return order, nil
}
