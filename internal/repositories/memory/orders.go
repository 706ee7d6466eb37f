package memory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"

	domain "github.com/storefront/api/internal/domain"
	"github.com/storefront/api/internal/repositories"
)

type orderRepository struct{ s *store }

func (r orderRepository) Insert(ctx context.Context, order domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.orders[order.ID]; exists {
		return repositories.NewConflictError("order.insert", fmt.Errorf("order %s already exists", order.ID))
	}
	if owner, exists := r.s.numbers[order.OrderNumber]; exists {
		return repositories.NewConflictError("order.insert", fmt.Errorf("order number %s already used by %s", order.OrderNumber, owner))
	}
	r.s.orders[order.ID] = copyOrder(order)
	r.s.numbers[order.OrderNumber] = order.ID
	return nil
}

func (r orderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	order, ok := r.s.orders[orderID]
	if !ok {
		return domain.Order{}, repositories.NewNotFoundError("order.find", fmt.Errorf("order %s not found", orderID))
	}
	return copyOrder(order), nil
}

func (r orderRepository) Update(ctx context.Context, order domain.Order, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.orders[order.ID]
	if !ok {
		return repositories.NewNotFoundError("order.update", fmt.Errorf("order %s not found", order.ID))
	}
	if current.Version != expectedVersion {
		return repositories.NewConflictError("order.update", errors.New("version mismatch"))
	}
	r.s.orders[order.ID] = copyOrder(order)
	return nil
}

func (r orderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.Page[domain.Order], error) {
	if err := ctx.Err(); err != nil {
		return domain.Page[domain.Order]{}, err
	}
	r.s.mu.Lock()
	matched := r.matching(filter)
	r.s.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	page := domain.Page[domain.Order]{
		Items: []domain.Order{},
		Page:  filter.Pagination.Page,
		Limit: filter.Pagination.Limit,
		Total: len(matched),
	}
	offset := filter.Pagination.Offset()
	if offset >= len(matched) {
		return page, nil
	}
	end := len(matched)
	if filter.Pagination.Limit > 0 && offset+filter.Pagination.Limit < end {
		end = offset + filter.Pagination.Limit
	}
	page.Items = matched[offset:end]
	return page, nil
}

func (r orderRepository) Summarize(ctx context.Context, filter repositories.OrderListFilter) (domain.OrderSummary, error) {
	if err := ctx.Err(); err != nil {
		return domain.OrderSummary{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var summary domain.OrderSummary
	for _, order := range r.matching(filter) {
		if order.Status != domain.OrderStatusCancelled {
			summary.TotalRevenueExcludingCancelled += order.TotalAmount
		}
	}
	return summary, nil
}

// matching must be called with the store lock held.
func (r orderRepository) matching(filter repositories.OrderListFilter) []domain.Order {
	out := make([]domain.Order, 0)
	for _, order := range r.s.orders {
		if filter.UserID != "" && order.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		if filter.PaymentStatus != "" && order.PaymentStatus != filter.PaymentStatus {
			continue
		}
		if from := filter.CreatedAt.From; from != nil && order.CreatedAt.Before(*from) {
			continue
		}
		if to := filter.CreatedAt.To; to != nil && order.CreatedAt.After(*to) {
			continue
		}
		out = append(out, copyOrder(order))
	}
	return out
}

func copyOrder(order domain.Order) domain.Order {
	out := order
	out.Items = slices.Clone(order.Items)
	out.StatusHistory = slices.Clone(order.StatusHistory)
	if order.BillingAddress != nil {
		billing := *order.BillingAddress
		out.BillingAddress = &billing
	}
	return out
}
