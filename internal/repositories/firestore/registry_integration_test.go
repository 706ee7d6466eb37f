//go:build integration

package firestore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/storefront/api/internal/domain"
	pfirestore "github.com/storefront/api/internal/platform/firestore"
	"github.com/storefront/api/internal/platform/firestore/firestoretest"
	"github.com/storefront/api/internal/repositories"
)

var integrationNow = time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)

func newIntegrationRegistry(t *testing.T) (*Registry, *pfirestore.Provider) {
	t.Helper()
	provider := firestoretest.NewProvider(t, "storefront-test")
	registry, err := NewRegistry(provider, func() time.Time { return integrationNow })
	require.NoError(t, err)
	return registry, provider
}

func seedProduct(t *testing.T, provider *pfirestore.Provider, product domain.Product) {
	t.Helper()
	ctx := context.Background()
	client, err := provider.Client(ctx)
	require.NoError(t, err)
	_, err = client.Collection(productsCollection).Doc(product.ID).Set(ctx, newProductDocument(product))
	require.NoError(t, err)
}

func TestInventoryReserveReleaseIntegration(t *testing.T) {
	registry, provider := newIntegrationRegistry(t)
	ctx := context.Background()
	seedProduct(t, provider, domain.Product{ID: "prod-1", Name: "Lamp", Price: 2500, IsActive: true, AvailableQuantity: 3})
	seedProduct(t, provider, domain.Product{ID: "prod-off", Name: "Old", Price: 100, AvailableQuantity: 9})

	level, err := registry.Inventory().Reserve(ctx, "prod-1", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, level.AvailableQuantity)

	_, err = registry.Inventory().Reserve(ctx, "prod-1", 2)
	var invErr *repositories.InventoryError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, repositories.InventoryErrorInsufficientStock, invErr.Code)
	assert.Equal(t, 1, invErr.Available)

	_, err = registry.Inventory().Reserve(ctx, "prod-off", 1)
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, repositories.InventoryErrorProductInactive, invErr.Code)

	_, err = registry.Inventory().Reserve(ctx, "missing", 1)
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, repositories.InventoryErrorProductNotFound, invErr.Code)

	level, err = registry.Inventory().Release(ctx, "prod-1", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, level.AvailableQuantity)
}

func TestInventoryConcurrentReserveIntegration(t *testing.T) {
	registry, provider := newIntegrationRegistry(t)
	ctx := context.Background()
	seedProduct(t, provider, domain.Product{ID: "prod-hot", Name: "Hot", Price: 100, IsActive: true, AvailableQuantity: 5})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := registry.Inventory().Reserve(ctx, "prod-hot", 1); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, success)
	product, err := registry.Products().FindByID(ctx, "prod-hot")
	require.NoError(t, err)
	assert.Equal(t, 0, product.AvailableQuantity)
}

func TestCounterNextIntegration(t *testing.T) {
	registry, _ := newIntegrationRegistry(t)
	ctx := context.Background()

	first, err := registry.Counters().Next(ctx, "orders:20240309", 1)
	require.NoError(t, err)
	second, err := registry.Counters().Next(ctx, "orders:20240309", 1)
	require.NoError(t, err)
	other, err := registry.Counters().Next(ctx, "orders:20240310", 1)
	require.NoError(t, err)

	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)
	assert.Equal(t, int64(1), other)
}

func integrationOrder(id, number, userID string, status domain.OrderStatus, total int64, createdAt time.Time) domain.Order {
	return domain.Order{
		ID:              id,
		OrderNumber:     number,
		UserID:          userID,
		Items:           []domain.OrderItem{{ProductID: "prod-1", Name: "Lamp", Price: total, Quantity: 1, LineTotal: total}},
		Subtotal:        total,
		TotalAmount:     total,
		Status:          status,
		PaymentStatus:   domain.PaymentStatusPending,
		PaymentMethod:   domain.PaymentMethodCreditCard,
		ShippingMethod:  domain.ShippingMethodStandard,
		ShippingAddress: domain.Address{Street: "1 Main", City: "Springfield", State: "IL", ZipCode: "62701", Country: "US"},
		StatusHistory:   []domain.StatusHistoryEntry{{Status: status, PaymentStatus: domain.PaymentStatusPending, Timestamp: createdAt, Note: "Order created"}},
		Version:         1,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
}

func TestOrderRepositoryIntegration(t *testing.T) {
	registry, _ := newIntegrationRegistry(t)
	ctx := context.Background()
	orders := registry.Orders()

	first := integrationOrder("ord_1", "ORD-20240309-001", "user-1", domain.OrderStatusPending, 1000, integrationNow)
	second := integrationOrder("ord_2", "ORD-20240309-002", "user-1", domain.OrderStatusCancelled, 400, integrationNow.Add(time.Minute))
	third := integrationOrder("ord_3", "ORD-20240309-003", "user-2", domain.OrderStatusConfirmed, 700, integrationNow.Add(2*time.Minute))
	for _, order := range []domain.Order{first, second, third} {
		require.NoError(t, orders.Insert(ctx, order))
	}

	dup := integrationOrder("ord_4", "ORD-20240309-001", "user-3", domain.OrderStatusPending, 1, integrationNow)
	err := orders.Insert(ctx, dup)
	assert.True(t, repositories.IsConflict(err), "duplicate number must conflict: %v", err)

	loaded, err := orders.FindByID(ctx, "ord_1")
	require.NoError(t, err)
	assert.Equal(t, first.OrderNumber, loaded.OrderNumber)
	assert.Equal(t, first.ShippingAddress, loaded.ShippingAddress)
	require.Len(t, loaded.StatusHistory, 1)

	_, err = orders.FindByID(ctx, "ord_missing")
	assert.True(t, repositories.IsNotFound(err))

	updated := loaded
	updated.Status = domain.OrderStatusConfirmed
	updated.Version = 2
	require.NoError(t, orders.Update(ctx, updated, 1))
	err = orders.Update(ctx, updated, 1)
	assert.True(t, repositories.IsConflict(err), "stale version must conflict: %v", err)

	page, err := orders.List(ctx, repositories.OrderListFilter{UserID: "user-1", Pagination: domain.Pagination{Page: 1, Limit: 1}})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "ord_2", page.Items[0].ID)

	summary, err := orders.Summarize(ctx, repositories.OrderListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1700), summary.TotalRevenueExcludingCancelled)
}

func TestCartRepositoryIntegration(t *testing.T) {
	registry, _ := newIntegrationRegistry(t)
	ctx := context.Background()
	carts := registry.Carts()

	empty, err := carts.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), empty.Version)
	assert.Empty(t, empty.Lines)

	empty.Lines = []domain.CartLine{{ProductID: "prod-1", Quantity: 2, AddedAt: integrationNow}}
	saved, err := carts.Save(ctx, empty, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), saved.Version)

	_, err = carts.Save(ctx, empty, 0)
	assert.True(t, repositories.IsConflict(err))

	require.NoError(t, carts.Clear(ctx, "user-1", 1))
	cleared, err := carts.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, cleared.Lines)
	assert.Equal(t, int64(2), cleared.Version)
}
