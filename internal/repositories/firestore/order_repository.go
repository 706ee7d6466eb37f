package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"

	domain "github.com/storefront/api/internal/domain"
	pfirestore "github.com/storefront/api/internal/platform/firestore"
	"github.com/storefront/api/internal/repositories"
)

const (
	ordersCollection       = "orders"
	orderNumbersCollection = "orderNumbers"
)

type orderNumberDocument struct {
	OrderID string `firestore:"orderId"`
}

// OrderRepository stores orders in the orders collection. Each order number is claimed by a
// document in orderNumbers created in the same transaction, so a reused number fails the commit.
type OrderRepository struct {
	provider *pfirestore.Provider
	orders   *pfirestore.Collection[orderDocument]
	numbers  *pfirestore.Collection[orderNumberDocument]
}

func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		provider: provider,
		orders:   pfirestore.NewCollection[orderDocument](provider, ordersCollection),
		numbers:  pfirestore.NewCollection[orderNumberDocument](provider, orderNumbersCollection),
	}, nil
}

func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if strings.TrimSpace(order.OrderNumber) == "" {
		return errors.New("order insert: order number is required")
	}
	orderRef, err := r.orders.Ref(ctx, order.ID)
	if err != nil {
		return err
	}
	numberRef, err := r.numbers.Ref(ctx, order.OrderNumber)
	if err != nil {
		return err
	}

	doc := newOrderDocument(order)
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(numberRef, orderNumberDocument{OrderID: order.ID}); err != nil {
			return err
		}
		return tx.Create(orderRef, doc)
	})
	if err != nil {
		if pfirestore.IsAlreadyExists(err) {
			return repositories.NewConflictError("order.insert", fmt.Errorf("order %s or number %s already exists: %w", order.ID, order.OrderNumber, err))
		}
		return pfirestore.WrapError("order.insert", err)
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	doc, err := r.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, pfirestore.WrapError("order.find", err)
	}
	return doc.toDomain(orderID), nil
}

// Update replaces the stored order only when its version still equals expectedVersion.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order, expectedVersion int64) error {
	ref, err := r.orders.Ref(ctx, order.ID)
	if err != nil {
		return err
	}
	doc := newOrderDocument(order)
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		current, err := r.orders.GetTx(tx, ref)
		if err != nil {
			return err
		}
		if current.Version != expectedVersion {
			return repositories.NewConflictError("order.update",
				fmt.Errorf("order %s at version %d, expected %d", order.ID, current.Version, expectedVersion))
		}
		return tx.Set(ref, doc)
	})
	if err != nil {
		var storeErr *repositories.StoreError
		if errors.As(err, &storeErr) {
			return storeErr
		}
		return pfirestore.WrapError("order.update", err)
	}
	return nil
}

func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.Page[domain.Order], error) {
	page := domain.Page[domain.Order]{
		Items: []domain.Order{},
		Page:  filter.Pagination.Page,
		Limit: filter.Pagination.Limit,
	}

	total, err := r.orders.Count(ctx, filterOrders(filter))
	if err != nil {
		return page, pfirestore.WrapError("order.count", err)
	}
	page.Total = int(total)
	if page.Total == 0 {
		return page, nil
	}

	docs, err := r.orders.QueryDocuments(ctx, func(q firestore.Query) firestore.Query {
		q = filterOrders(filter)(q).
			OrderBy("createdAt", firestore.Desc).
			OrderBy(firestore.DocumentID, firestore.Desc)
		if offset := filter.Pagination.Offset(); offset > 0 {
			q = q.Offset(offset)
		}
		if filter.Pagination.Limit > 0 {
			q = q.Limit(filter.Pagination.Limit)
		}
		return q
	})
	if err != nil {
		return page, pfirestore.WrapError("order.list", err)
	}
	for _, doc := range docs {
		page.Items = append(page.Items, doc.Data.toDomain(doc.ID))
	}
	return page, nil
}

// Summarize totals revenue for the filter excluding cancelled orders. Firestore cannot combine
// the createdAt range with a status inequality, so the cancelled total is subtracted instead.
func (r *OrderRepository) Summarize(ctx context.Context, filter repositories.OrderListFilter) (domain.OrderSummary, error) {
	if filter.Status == domain.OrderStatusCancelled {
		return domain.OrderSummary{}, nil
	}
	total, err := r.orders.Sum(ctx, filterOrders(filter), "totalAmount")
	if err != nil {
		return domain.OrderSummary{}, pfirestore.WrapError("order.summarize", err)
	}
	if filter.Status != "" {
		return domain.OrderSummary{TotalRevenueExcludingCancelled: total}, nil
	}

	cancelledFilter := filter
	cancelledFilter.Status = domain.OrderStatusCancelled
	cancelled, err := r.orders.Sum(ctx, filterOrders(cancelledFilter), "totalAmount")
	if err != nil {
		return domain.OrderSummary{}, pfirestore.WrapError("order.summarize", err)
	}
	return domain.OrderSummary{TotalRevenueExcludingCancelled: total - cancelled}, nil
}

func filterOrders(filter repositories.OrderListFilter) pfirestore.QueryBuilder {
	return func(q firestore.Query) firestore.Query {
		if filter.UserID != "" {
			q = q.Where("userId", "==", filter.UserID)
		}
		if filter.Status != "" {
			q = q.Where("status", "==", string(filter.Status))
		}
		if filter.PaymentStatus != "" {
			q = q.Where("paymentStatus", "==", string(filter.PaymentStatus))
		}
		if from := filter.CreatedAt.From; from != nil {
			q = q.Where("createdAt", ">=", from.UTC())
		}
		if to := filter.CreatedAt.To; to != nil {
			q = q.Where("createdAt", "<=", to.UTC())
		}
		return q
	}
}
