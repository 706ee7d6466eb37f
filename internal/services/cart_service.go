package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	domain "github.com/storefront/api/internal/domain"
	"github.com/storefront/api/internal/repositories"
)

const (
	defaultMaxCartQuantity = 10
	defaultCartAttempts    = 3
)

// CartServiceDeps wires the repositories used by cart operations.
type CartServiceDeps struct {
	Carts    repositories.CartRepository
	Products repositories.ProductRepository
	// MaxQuantity caps a single line, including quantities merged by repeated adds.
	MaxQuantity int
	Clock       func() time.Time
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type cartService struct {
	carts       repositories.CartRepository
	products    repositories.ProductRepository
	maxQuantity int
	clock       func() time.Time
	logger      func(context.Context, string, map[string]any)
}

// NewCartService constructs a CartService backed by the given repositories.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Carts == nil {
		return nil, errors.New("cart service: cart repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("cart service: product repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	maxQty := deps.MaxQuantity
	if maxQty <= 0 {
		maxQty = defaultMaxCartQuantity
	}
	return &cartService{
		carts:       deps.Carts,
		products:    deps.Products,
		maxQuantity: maxQty,
		clock:       func() time.Time { return clock().UTC() },
		logger:      logger,
	}, nil
}

func (s *cartService) GetCart(ctx context.Context, userID string) (CartView, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return CartView{}, fmt.Errorf("%w: user id is required", ErrCartValidation)
	}
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return CartView{}, s.mapError(ctx, err)
	}
	return s.view(ctx, cart)
}

func (s *cartService) AddItem(ctx context.Context, cmd CartItemCommand) (CartView, error) {
	if err := s.validateItem(cmd); err != nil {
		return CartView{}, err
	}
	product, err := s.purchasable(ctx, cmd.ProductID, cmd.Quantity)
	if err != nil {
		return CartView{}, err
	}

	return s.modify(ctx, cmd.UserID, func(cart *domain.Cart) error {
		idx := lineIndex(cart.Lines, product.ID)
		if idx < 0 {
			cart.Lines = append(cart.Lines, domain.CartLine{ProductID: product.ID, Quantity: cmd.Quantity, AddedAt: s.clock()})
			return nil
		}
		merged := cart.Lines[idx].Quantity + cmd.Quantity
		if merged > s.maxQuantity {
			return fmt.Errorf("%w: at most %d of product %s per order", ErrCartValidation, s.maxQuantity, product.ID)
		}
		if merged > product.AvailableQuantity {
			return &LineError{ProductID: product.ID, Requested: merged, Available: product.AvailableQuantity, Err: ErrInsufficientStock}
		}
		cart.Lines[idx].Quantity = merged
		return nil
	})
}

func (s *cartService) UpdateItem(ctx context.Context, cmd CartItemCommand) (CartView, error) {
	if err := s.validateItem(cmd); err != nil {
		return CartView{}, err
	}
	product, err := s.purchasable(ctx, cmd.ProductID, cmd.Quantity)
	if err != nil {
		return CartView{}, err
	}

	return s.modify(ctx, cmd.UserID, func(cart *domain.Cart) error {
		idx := lineIndex(cart.Lines, product.ID)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrCartItemNotFound, product.ID)
		}
		cart.Lines[idx].Quantity = cmd.Quantity
		return nil
	})
}

func (s *cartService) RemoveItem(ctx context.Context, userID, productID string) (CartView, error) {
	userID = strings.TrimSpace(userID)
	productID = strings.TrimSpace(productID)
	if userID == "" || productID == "" {
		return CartView{}, fmt.Errorf("%w: user id and product id are required", ErrCartValidation)
	}
	return s.modify(ctx, userID, func(cart *domain.Cart) error {
		idx := lineIndex(cart.Lines, productID)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrCartItemNotFound, productID)
		}
		cart.Lines = slices.Delete(cart.Lines, idx, idx+1)
		return nil
	})
}

func (s *cartService) ClearCart(ctx context.Context, userID string) (CartView, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return CartView{}, fmt.Errorf("%w: user id is required", ErrCartValidation)
	}
	for attempt := 0; attempt < defaultCartAttempts; attempt++ {
		cart, err := s.carts.Get(ctx, userID)
		if err != nil {
			return CartView{}, s.mapError(ctx, err)
		}
		if len(cart.Lines) == 0 {
			return CartView{UserID: userID, Lines: []CartViewLine{}, Version: cart.Version, UpdatedAt: cart.UpdatedAt}, nil
		}
		err = s.carts.Clear(ctx, userID, cart.Version)
		if err == nil {
			// Clear stores the empty cart at expected+1 in every backend.
			return CartView{UserID: userID, Lines: []CartViewLine{}, Version: cart.Version + 1, UpdatedAt: s.clock()}, nil
		}
		if !repositories.IsConflict(err) {
			return CartView{}, s.mapError(ctx, err)
		}
	}
	return CartView{}, fmt.Errorf("%w: cart for %s was modified concurrently", ErrConcurrencyConflict, userID)
}

// modify applies fn to a fresh copy of the cart and saves it conditionally, retrying when another
// request saved first.
func (s *cartService) modify(ctx context.Context, userID string, fn func(*domain.Cart) error) (CartView, error) {
	for attempt := 0; attempt < defaultCartAttempts; attempt++ {
		current, err := s.carts.Get(ctx, userID)
		if err != nil {
			return CartView{}, s.mapError(ctx, err)
		}
		next := current
		next.UserID = userID
		next.Lines = slices.Clone(current.Lines)
		if err := fn(&next); err != nil {
			return CartView{}, err
		}
		next.UpdatedAt = s.clock()

		saved, err := s.carts.Save(ctx, next, current.Version)
		if err == nil {
			return s.view(ctx, saved)
		}
		if !repositories.IsConflict(err) {
			return CartView{}, s.mapError(ctx, err)
		}
		s.logger(ctx, "cart.save.conflict", map[string]any{"userId": userID, "attempt": attempt + 1})
	}
	return CartView{}, fmt.Errorf("%w: cart for %s was modified concurrently", ErrConcurrencyConflict, userID)
}

func (s *cartService) validateItem(cmd CartItemCommand) error {
	if strings.TrimSpace(cmd.UserID) == "" || strings.TrimSpace(cmd.ProductID) == "" {
		return fmt.Errorf("%w: user id and product id are required", ErrCartValidation)
	}
	if cmd.Quantity < 1 || cmd.Quantity > s.maxQuantity {
		return fmt.Errorf("%w: quantity must be between 1 and %d", ErrCartValidation, s.maxQuantity)
	}
	return nil
}

// purchasable loads a product and checks it can currently be sold in the requested quantity.
func (s *cartService) purchasable(ctx context.Context, productID string, quantity int) (domain.Product, error) {
	productID = strings.TrimSpace(productID)
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.Product{}, &LineError{ProductID: productID, Requested: quantity, Err: ErrProductUnavailable}
		}
		return domain.Product{}, s.mapError(ctx, err)
	}
	if !product.Purchasable() {
		return domain.Product{}, &LineError{ProductID: productID, Requested: quantity, Err: ErrProductUnavailable}
	}
	if product.AvailableQuantity < quantity {
		return domain.Product{}, &LineError{ProductID: productID, Requested: quantity, Available: product.AvailableQuantity, Err: ErrInsufficientStock}
	}
	return product, nil
}

// view joins cart lines with current catalog data. Missing or inactive products are dropped from
// the view but stay in the stored cart.
func (s *cartService) view(ctx context.Context, cart domain.Cart) (CartView, error) {
	products := make([]*domain.Product, len(cart.Lines))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultCatalogFanout)
	for i, line := range cart.Lines {
		i, line := i, line
		g.Go(func() error {
			product, err := s.products.FindByID(gctx, line.ProductID)
			if err != nil {
				if repositories.IsNotFound(err) {
					return nil
				}
				return err
			}
			products[i] = &product
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return CartView{}, s.mapError(ctx, err)
	}

	out := CartView{
		UserID:    cart.UserID,
		Lines:     make([]CartViewLine, 0, len(cart.Lines)),
		Version:   cart.Version,
		UpdatedAt: cart.UpdatedAt,
	}
	for i, line := range cart.Lines {
		product := products[i]
		if product == nil || !product.Purchasable() {
			continue
		}
		item := domain.NewOrderItem(*product, line.Quantity)
		out.Lines = append(out.Lines, CartViewLine{
			ProductID:         product.ID,
			Name:              product.Name,
			Price:             product.Price,
			Image:             product.Image,
			Brand:             product.Brand,
			Category:          product.Category,
			AvailableQuantity: product.AvailableQuantity,
			Quantity:          line.Quantity,
			LineTotal:         item.LineTotal,
			AddedAt:           line.AddedAt,
		})
		out.Subtotal += item.LineTotal
		out.TotalQuantity += line.Quantity
	}
	return out, nil
}

func (s *cartService) mapError(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if repositories.IsConflict(err) {
		return fmt.Errorf("%w: %v", ErrConcurrencyConflict, err)
	}
	s.logger(ctx, "cart.repository.failed", map[string]any{"error": err})
	return fmt.Errorf("%w: cart: %v", ErrPersistence, err)
}

func lineIndex(lines []domain.CartLine, productID string) int {
	return slices.IndexFunc(lines, func(line domain.CartLine) bool { return line.ProductID == productID })
}
