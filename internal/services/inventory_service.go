package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	domain "github.com/storefront/api/internal/domain"
	"github.com/storefront/api/internal/repositories"
)

const eventInventoryLowStock = "inventory.low_stock"

// InventoryServiceDeps bundles the collaborators required to construct an inventory service.
type InventoryServiceDeps struct {
	Inventory repositories.InventoryRepository
	Events    EventPublisher
	Clock     func() time.Time
	Meter     metric.Meter
	Logger    func(ctx context.Context, event string, fields map[string]any)
}

type inventoryService struct {
	repo    repositories.InventoryRepository
	events  EventPublisher
	clock   func() time.Time
	metrics inventoryMetrics
	logger  func(context.Context, string, map[string]any)
}

// NewInventoryService wires dependencies into a concrete InventoryService implementation.
func NewInventoryService(deps InventoryServiceDeps) (InventoryService, error) {
	if deps.Inventory == nil {
		return nil, errors.New("inventory service: inventory repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	metrics, err := newInventoryMetrics(defaultMeter(deps.Meter))
	if err != nil {
		return nil, fmt.Errorf("inventory service: metrics: %w", err)
	}

	return &inventoryService{
		repo:    deps.Inventory,
		events:  deps.Events,
		clock:   func() time.Time { return clock().UTC() },
		metrics: metrics,
		logger:  logger,
	}, nil
}

func (s *inventoryService) Reserve(ctx context.Context, productID string, quantity int) (domain.StockLevel, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" || quantity <= 0 {
		return domain.StockLevel{}, fmt.Errorf("%w: product id and positive quantity are required", ErrOrderValidation)
	}

	level, err := s.repo.Reserve(ctx, productID, quantity)
	if err != nil {
		s.metrics.failures.Add(ctx, 1)
		return domain.StockLevel{}, s.mapInventoryError(productID, quantity, err)
	}
	s.metrics.reserved.Add(ctx, int64(quantity), metric.WithAttributes(attribute.String("product_id", productID)))

	if level.LowStock() {
		s.publishLowStock(ctx, level)
	}
	return level, nil
}

func (s *inventoryService) Release(ctx context.Context, productID string, quantity int) (domain.StockLevel, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" || quantity <= 0 {
		return domain.StockLevel{}, fmt.Errorf("%w: product id and positive quantity are required", ErrOrderValidation)
	}

	level, err := s.repo.Release(ctx, productID, quantity)
	if err != nil {
		return domain.StockLevel{}, s.mapInventoryError(productID, quantity, err)
	}
	s.metrics.released.Add(ctx, int64(quantity), metric.WithAttributes(attribute.String("product_id", productID)))
	return level, nil
}

func (s *inventoryService) mapInventoryError(productID string, quantity int, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var invErr *repositories.InventoryError
	if errors.As(err, &invErr) {
		switch invErr.Code {
		case repositories.InventoryErrorInsufficientStock:
			return &LineError{ProductID: productID, Requested: quantity, Available: invErr.Available, Err: ErrInsufficientStock}
		case repositories.InventoryErrorProductNotFound, repositories.InventoryErrorProductInactive:
			return &LineError{ProductID: productID, Requested: quantity, Err: ErrProductUnavailable}
		case repositories.InventoryErrorInvalidQuantity:
			return fmt.Errorf("%w: %s", ErrOrderValidation, invErr.Message)
		}
	}
	if repositories.IsNotFound(err) {
		return &LineError{ProductID: productID, Requested: quantity, Err: ErrProductUnavailable}
	}
	if repositories.IsConflict(err) {
		return fmt.Errorf("%w: %v", ErrConcurrencyConflict, err)
	}
	return fmt.Errorf("%w: inventory: %v", ErrPersistence, err)
}

func (s *inventoryService) publishLowStock(ctx context.Context, level domain.StockLevel) {
	if s.events == nil {
		return
	}
	event := OrderEvent{
		ID:                uuid.NewString(),
		Type:              eventInventoryLowStock,
		ProductID:         level.ProductID,
		AvailableQuantity: level.AvailableQuantity,
		OccurredAt:        s.clock(),
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "inventory.event.publish.failed", map[string]any{
			"type":      event.Type,
			"productId": level.ProductID,
			"error":     err,
		})
	}
}
