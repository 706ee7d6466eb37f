package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	domain "github.com/storefront/api/internal/domain"
	"github.com/storefront/api/internal/platform/textutil"
	"github.com/storefront/api/internal/repositories"
)

const (
	orderEventCreated       = "order.created"
	orderEventStatusChanged = "order.status.changed"
	orderEventPaymentChange = "order.payment.changed"
	orderEventCancelled     = "order.cancelled"

	orderIDPrefix = "ord_"

	defaultMaxLineQuantity  = 10
	maxCustomerNotesLength  = 500
	maxCouponCodeLength     = 64
	maxTrackingNumberLength = 100
	defaultCatalogFanout    = 8
	defaultUpdateAttempts   = 5

	defaultUserPageLimit  = 10
	defaultAdminPageLimit = 20
	maxPageLimit          = 100
)

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders    repositories.OrderRepository
	Products  repositories.ProductRepository
	Carts     repositories.CartRepository
	Inventory InventoryService
	Counters  CounterService
	Events    EventPublisher
	Pricing   domain.PricingRules

	MaxLineQuantity int
	// UpdateAttempts bounds how many times a lifecycle write is retried after losing a version race.
	UpdateAttempts int

	Clock       func() time.Time
	IDGenerator func() string
	Tracer      trace.Tracer
	Meter       metric.Meter
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders    repositories.OrderRepository
	products  repositories.ProductRepository
	carts     repositories.CartRepository
	inventory InventoryService
	counters  CounterService
	events    EventPublisher
	pricing   domain.PricingRules

	maxLineQuantity int
	updateAttempts  int

	clock   func() time.Time
	newID   func() string
	tracer  trace.Tracer
	metrics orderMetrics
	logger  func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	switch {
	case deps.Orders == nil:
		return nil, errors.New("order service: order repository is required")
	case deps.Products == nil:
		return nil, errors.New("order service: product repository is required")
	case deps.Carts == nil:
		return nil, errors.New("order service: cart repository is required")
	case deps.Inventory == nil:
		return nil, errors.New("order service: inventory service is required")
	case deps.Counters == nil:
		return nil, errors.New("order service: counter service is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	pricing := deps.Pricing
	if pricing == (domain.PricingRules{}) {
		pricing = domain.DefaultPricingRules()
	}
	maxQty := deps.MaxLineQuantity
	if maxQty <= 0 {
		maxQty = defaultMaxLineQuantity
	}
	attempts := deps.UpdateAttempts
	if attempts <= 0 {
		attempts = defaultUpdateAttempts
	}
	metrics, err := newOrderMetrics(defaultMeter(deps.Meter))
	if err != nil {
		return nil, fmt.Errorf("order service: metrics: %w", err)
	}

	return &orderService{
		orders:          deps.Orders,
		products:        deps.Products,
		carts:           deps.Carts,
		inventory:       deps.Inventory,
		counters:        deps.Counters,
		events:          deps.Events,
		pricing:         pricing,
		maxLineQuantity: maxQty,
		updateAttempts:  attempts,
		clock:           func() time.Time { return clock().UTC() },
		newID:           idGen,
		tracer:          defaultTracer(deps.Tracer),
		metrics:         metrics,
		logger:          logger,
	}, nil
}

// reservedLine is a cart line that has been resolved against the catalog.
type reservedLine struct {
	product  domain.Product
	quantity int
}

func (s *orderService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (order domain.Order, err error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CreateOrder", trace.WithAttributes(attribute.String("user.id", cmd.UserID)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "create order failed")
			s.metrics.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", rejectionReason(err))))
		}
		span.End()
	}()

	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return domain.Order{}, fmt.Errorf("%w: user id is required", ErrOrderValidation)
	}
	input, err := s.normaliseCheckout(cmd)
	if err != nil {
		return domain.Order{}, err
	}

	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return domain.Order{}, s.persistenceError(ctx, "order.cart.load.failed", err)
	}
	lines, err := s.mergeCartLines(cart.Lines)
	if err != nil {
		return domain.Order{}, err
	}

	resolved, err := s.resolveProducts(ctx, lines)
	if err != nil {
		return domain.Order{}, err
	}

	reserved, err := s.reserveAll(ctx, userID, resolved)
	if err != nil {
		return domain.Order{}, err
	}

	items := make([]domain.OrderItem, 0, len(reserved))
	for _, line := range reserved {
		items = append(items, domain.NewOrderItem(line.product, line.quantity))
	}
	totals := s.pricing.Price(items, 0)

	number, err := s.counters.NextOrderNumber(ctx)
	if err != nil {
		s.compensate(ctx, userID, reserved)
		return domain.Order{}, err
	}

	now := s.clock()
	order = domain.Order{
		ID:              orderIDPrefix + s.newID(),
		OrderNumber:     number,
		UserID:          userID,
		Items:           items,
		Subtotal:        totals.Subtotal,
		Tax:             totals.Tax,
		ShippingCost:    totals.Shipping,
		Discount:        totals.Discount,
		TotalAmount:     totals.Total,
		Status:          domain.OrderStatusPending,
		PaymentStatus:   domain.PaymentStatusPending,
		PaymentMethod:   input.PaymentMethod,
		ShippingMethod:  input.ShippingMethod,
		ShippingAddress: input.ShippingAddress,
		BillingAddress:  input.BillingAddress,
		CustomerNotes:   input.CustomerNotes,
		CouponCode:      input.CouponCode,
		StatusHistory: []domain.StatusHistoryEntry{{
			Status:        domain.OrderStatusPending,
			PaymentStatus: domain.PaymentStatusPending,
			Timestamp:     now,
			Note:          "Order created",
			ActorID:       userID,
		}},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		s.compensate(ctx, userID, reserved)
		if repositories.IsConflict(err) {
			s.logger(ctx, "order.number.duplicate", map[string]any{
				"orderNumber": number,
				"orderId":     order.ID,
				"error":       err,
			})
			return domain.Order{}, fmt.Errorf("%w: order number %s already exists", ErrConcurrencyConflict, number)
		}
		return domain.Order{}, s.persistenceError(ctx, "order.insert.failed", err)
	}

	if err := s.carts.Clear(ctx, userID, cart.Version); err != nil {
		s.logger(ctx, "order.cart.clear.failed", map[string]any{
			"orderId": order.ID,
			"userId":  userID,
			"version": cart.Version,
			"error":   err,
		})
	}

	span.SetAttributes(attribute.String("order.id", order.ID), attribute.String("order.number", order.OrderNumber))
	s.metrics.created.Add(ctx, 1)
	s.metrics.revenue.Add(ctx, order.TotalAmount)
	s.publishEvent(ctx, OrderEvent{
		Type:          orderEventCreated,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		UserID:        userID,
		Status:        string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
		TotalAmount:   order.TotalAmount,
		ActorID:       userID,
		OccurredAt:    now,
	})
	return order, nil
}

func (s *orderService) normaliseCheckout(cmd CreateOrderCommand) (CreateOrderCommand, error) {
	out := cmd
	out.ShippingAddress = sanitiseAddress(cmd.ShippingAddress)
	if missing := missingAddressFields(out.ShippingAddress); len(missing) > 0 {
		return out, fmt.Errorf("%w: shipping address is missing %s", ErrOrderValidation, strings.Join(missing, ", "))
	}
	if cmd.BillingAddress != nil {
		billing := sanitiseAddress(*cmd.BillingAddress)
		if missing := missingAddressFields(billing); len(missing) > 0 {
			return out, fmt.Errorf("%w: billing address is missing %s", ErrOrderValidation, strings.Join(missing, ", "))
		}
		out.BillingAddress = &billing
	}

	if out.PaymentMethod == "" {
		out.PaymentMethod = domain.PaymentMethodCreditCard
	}
	if !validPaymentMethod(out.PaymentMethod) {
		return out, fmt.Errorf("%w: unsupported payment method %q", ErrOrderValidation, cmd.PaymentMethod)
	}
	if out.ShippingMethod == "" {
		out.ShippingMethod = domain.ShippingMethodStandard
	}
	if !validShippingMethod(out.ShippingMethod) {
		return out, fmt.Errorf("%w: unsupported shipping method %q", ErrOrderValidation, cmd.ShippingMethod)
	}

	out.CustomerNotes = textutil.PlainText(cmd.CustomerNotes)
	if len([]rune(out.CustomerNotes)) > maxCustomerNotesLength {
		return out, fmt.Errorf("%w: customer notes exceed %d characters", ErrOrderValidation, maxCustomerNotesLength)
	}
	out.CouponCode = strings.ToUpper(textutil.PlainText(cmd.CouponCode))
	if len(out.CouponCode) > maxCouponCodeLength {
		return out, fmt.Errorf("%w: coupon code is too long", ErrOrderValidation)
	}
	return out, nil
}

// mergeCartLines validates quantities, merges duplicate products and orders lines by product id
// so reservations always proceed in the same order.
func (s *orderService) mergeCartLines(lines []domain.CartLine) ([]domain.CartLine, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", ErrOrderValidation)
	}
	merged := make(map[string]int, len(lines))
	for _, line := range lines {
		productID := strings.TrimSpace(line.ProductID)
		if productID == "" {
			return nil, fmt.Errorf("%w: cart line is missing a product id", ErrOrderValidation)
		}
		if line.Quantity < 1 || line.Quantity > s.maxLineQuantity {
			return nil, fmt.Errorf("%w: quantity for product %s must be between 1 and %d", ErrOrderValidation, productID, s.maxLineQuantity)
		}
		merged[productID] += line.Quantity
	}

	out := make([]domain.CartLine, 0, len(merged))
	for productID, qty := range merged {
		out = append(out, domain.CartLine{ProductID: productID, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

// resolveProducts reads every product before any stock is touched. The first unavailable product
// in line order is reported.
func (s *orderService) resolveProducts(ctx context.Context, lines []domain.CartLine) ([]reservedLine, error) {
	products := make([]domain.Product, len(lines))
	missing := make([]bool, len(lines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultCatalogFanout)
	for i, line := range lines {
		i, line := i, line
		g.Go(func() error {
			product, err := s.products.FindByID(gctx, line.ProductID)
			if err != nil {
				if repositories.IsNotFound(err) {
					missing[i] = true
					return nil
				}
				return err
			}
			products[i] = product
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, s.persistenceError(ctx, "order.catalog.read.failed", err)
	}

	out := make([]reservedLine, len(lines))
	for i, line := range lines {
		if missing[i] || !products[i].Purchasable() {
			return nil, &LineError{ProductID: line.ProductID, Requested: line.Quantity, Err: ErrProductUnavailable}
		}
		out[i] = reservedLine{product: products[i], quantity: line.Quantity}
	}
	return out, nil
}

// reserveAll reserves every line in order. On the first failure everything already granted is
// released before the error is returned.
func (s *orderService) reserveAll(ctx context.Context, userID string, lines []reservedLine) ([]reservedLine, error) {
	granted := make([]reservedLine, 0, len(lines))
	for _, line := range lines {
		if _, err := s.inventory.Reserve(ctx, line.product.ID, line.quantity); err != nil {
			s.compensate(ctx, userID, granted)
			return nil, err
		}
		granted = append(granted, line)
	}
	return granted, nil
}

// compensate releases reservations made during a failed checkout. It runs detached from the
// request's cancellation so an aborted client cannot leak stock.
func (s *orderService) compensate(ctx context.Context, userID string, lines []reservedLine) {
	ctx = context.WithoutCancel(ctx)
	for _, line := range lines {
		if _, err := s.inventory.Release(ctx, line.product.ID, line.quantity); err != nil {
			s.logger(ctx, "order.compensation.release.failed", map[string]any{
				"productId": line.product.ID,
				"quantity":  line.quantity,
				"userId":    userID,
				"error":     err,
			})
		}
	}
}

func (s *orderService) GetOrder(ctx context.Context, orderID string, requester Requester) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderValidation)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(ctx, err)
	}
	if !visibleTo(order, requester) {
		return domain.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, query ListOrdersQuery) (domain.Page[domain.Order], error) {
	userID := strings.TrimSpace(query.UserID)
	if userID == "" {
		return domain.Page[domain.Order]{}, fmt.Errorf("%w: user id is required", ErrOrderValidation)
	}
	if query.Status != "" && !ValidOrderStatus(query.Status) {
		return domain.Page[domain.Order]{}, fmt.Errorf("%w: unknown status %q", ErrOrderValidation, query.Status)
	}
	page, err := s.orders.List(ctx, repositories.OrderListFilter{
		UserID:     userID,
		Status:     query.Status,
		Pagination: normalisePagination(query.Pagination, defaultUserPageLimit),
	})
	if err != nil {
		return domain.Page[domain.Order]{}, s.mapRepositoryError(ctx, err)
	}
	return page, nil
}

func (s *orderService) CancelOrder(ctx context.Context, cmd CancelOrderCommand) (domain.Order, error) {
	cancelled := domain.OrderStatusCancelled
	return s.mutate(ctx, cmd.OrderID, cmd.Requester, lifecycleChange{
		status: &cancelled,
		note:   textutil.Clip(textutil.PlainText(cmd.Reason), maxCustomerNotesLength),
		actor:  cmd.Requester.UserID,
	})
}

func (s *orderService) AdminListOrders(ctx context.Context, query AdminListOrdersQuery) (AdminOrderPage, error) {
	if query.Status != "" && !ValidOrderStatus(query.Status) {
		return AdminOrderPage{}, fmt.Errorf("%w: unknown status %q", ErrOrderValidation, query.Status)
	}
	if query.PaymentStatus != "" && !ValidPaymentStatus(query.PaymentStatus) {
		return AdminOrderPage{}, fmt.Errorf("%w: unknown payment status %q", ErrOrderValidation, query.PaymentStatus)
	}
	if from, to := query.CreatedAt.From, query.CreatedAt.To; from != nil && to != nil && to.Before(*from) {
		return AdminOrderPage{}, fmt.Errorf("%w: date range end precedes start", ErrOrderValidation)
	}

	filter := repositories.OrderListFilter{
		Status:        query.Status,
		PaymentStatus: query.PaymentStatus,
		CreatedAt:     query.CreatedAt,
		Pagination:    normalisePagination(query.Pagination, defaultAdminPageLimit),
	}

	var result AdminOrderPage
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		page, err := s.orders.List(gctx, filter)
		result.Orders = page
		return err
	})
	g.Go(func() error {
		summary, err := s.orders.Summarize(gctx, filter)
		result.Summary = summary
		return err
	})
	if err := g.Wait(); err != nil {
		return AdminOrderPage{}, s.mapRepositoryError(ctx, err)
	}
	return result, nil
}

func (s *orderService) AdminUpdateOrder(ctx context.Context, cmd AdminUpdateOrderCommand) (domain.Order, error) {
	if cmd.Status == nil && cmd.PaymentStatus == nil && cmd.TrackingNumber == nil && cmd.Carrier == nil {
		return domain.Order{}, fmt.Errorf("%w: nothing to update", ErrOrderValidation)
	}
	if cmd.Status != nil && !ValidOrderStatus(*cmd.Status) {
		return domain.Order{}, fmt.Errorf("%w: unknown status %q", ErrOrderValidation, *cmd.Status)
	}
	if cmd.PaymentStatus != nil && !ValidPaymentStatus(*cmd.PaymentStatus) {
		return domain.Order{}, fmt.Errorf("%w: unknown payment status %q", ErrOrderValidation, *cmd.PaymentStatus)
	}
	if cmd.TrackingNumber != nil {
		tracking := textutil.PlainText(*cmd.TrackingNumber)
		if tracking == "" || len(tracking) > maxTrackingNumberLength {
			return domain.Order{}, fmt.Errorf("%w: tracking number must be 1-%d characters", ErrOrderValidation, maxTrackingNumberLength)
		}
		cmd.TrackingNumber = &tracking
	}
	if cmd.Carrier != nil {
		carrier := textutil.Clip(textutil.PlainText(*cmd.Carrier), maxTrackingNumberLength)
		cmd.Carrier = &carrier
	}

	return s.mutate(ctx, cmd.OrderID, Requester{UserID: cmd.ActorID, Operator: true}, lifecycleChange{
		status:         cmd.Status,
		paymentStatus:  cmd.PaymentStatus,
		trackingNumber: cmd.TrackingNumber,
		carrier:        cmd.Carrier,
		note:           textutil.Clip(textutil.PlainText(cmd.Note), maxCustomerNotesLength),
		actor:          cmd.ActorID,
	})
}

// mutate runs the read, apply, conditional-write loop. A lost version race re-reads the order and
// re-validates the change, so a transition that became illegal fails instead of overwriting.
func (s *orderService) mutate(ctx context.Context, orderID string, requester Requester, change lifecycleChange) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderValidation)
	}

	ctx, span := s.tracer.Start(ctx, "OrderService.mutate", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	for attempt := 1; attempt <= s.updateAttempts; attempt++ {
		current, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			return domain.Order{}, s.mapRepositoryError(ctx, err)
		}
		if !visibleTo(current, requester) {
			return domain.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}

		next := cloneOrder(current)
		result, err := applyLifecycleChange(&next, change, s.clock())
		if err != nil {
			return domain.Order{}, err
		}
		next.Version = current.Version + 1

		err = s.orders.Update(ctx, next, current.Version)
		if err == nil {
			s.afterTransition(ctx, next, result, change.actor)
			return next, nil
		}
		if !repositories.IsConflict(err) {
			return domain.Order{}, s.mapRepositoryError(ctx, err)
		}
		s.metrics.conflicts.Add(ctx, 1)
		span.AddEvent("version conflict", trace.WithAttributes(attribute.Int("attempt", attempt)))
	}

	span.SetStatus(codes.Error, "version conflict")
	return domain.Order{}, fmt.Errorf("%w: order %s was modified concurrently", ErrConcurrencyConflict, orderID)
}

func (s *orderService) afterTransition(ctx context.Context, order domain.Order, result lifecycleResult, actor string) {
	if result.releaseStock {
		s.releaseOrderStock(ctx, order)
	}

	base := OrderEvent{
		OrderID:               order.ID,
		OrderNumber:           order.OrderNumber,
		UserID:                order.UserID,
		Status:                string(order.Status),
		PreviousStatus:        string(result.previousStatus),
		PaymentStatus:         string(order.PaymentStatus),
		PreviousPaymentStatus: string(result.previousPayment),
		TotalAmount:           order.TotalAmount,
		ActorID:               actor,
		OccurredAt:            order.UpdatedAt,
	}
	if result.statusChanged {
		s.metrics.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("axis", "status"), attribute.String("to", string(order.Status))))
		event := base
		event.Type = orderEventStatusChanged
		if order.Status == domain.OrderStatusCancelled {
			event.Type = orderEventCancelled
		}
		s.publishEvent(ctx, event)
	}
	if result.paymentChanged {
		s.metrics.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("axis", "payment"), attribute.String("to", string(order.PaymentStatus))))
		event := base
		event.Type = orderEventPaymentChange
		s.publishEvent(ctx, event)
	}
}

// releaseOrderStock returns every item to the ledger. It is only reached by the single writer that
// moved the order to cancelled and set StockReleased, so each item is released exactly once.
func (s *orderService) releaseOrderStock(ctx context.Context, order domain.Order) {
	ctx = context.WithoutCancel(ctx)
	for _, item := range order.Items {
		if _, err := s.inventory.Release(ctx, item.ProductID, item.Quantity); err != nil {
			s.logger(ctx, "order.stock.release.failed", map[string]any{
				"orderId":   order.ID,
				"productId": item.ProductID,
				"quantity":  item.Quantity,
				"error":     err,
			})
		}
	}
}

func (s *orderService) mapRepositoryError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	switch {
	case repositories.IsNotFound(err):
		return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
	case repositories.IsConflict(err):
		return fmt.Errorf("%w: %v", ErrConcurrencyConflict, err)
	}
	return s.persistenceError(ctx, "order.repository.failed", err)
}

func (s *orderService) persistenceError(ctx context.Context, event string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var lineErr *LineError
	if errors.As(err, &lineErr) || errors.Is(err, ErrPersistence) {
		return err
	}
	s.logger(ctx, event, map[string]any{"error": err})
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}

func (s *orderService) publishEvent(ctx context.Context, event OrderEvent) {
	if s.events == nil {
		return
	}
	event.ID = uuid.NewString()
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order.event.publish.failed", map[string]any{
			"type":   event.Type,
			"order":  event.OrderID,
			"status": event.Status,
			"error":  err,
		})
	}
}

func visibleTo(order domain.Order, requester Requester) bool {
	return requester.Operator || (requester.UserID != "" && order.UserID == requester.UserID)
}

func normalisePagination(p domain.Pagination, defaultLimit int) domain.Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	return p
}

func sanitiseAddress(addr domain.Address) domain.Address {
	return domain.Address{
		FirstName: textutil.Clip(textutil.PlainText(addr.FirstName), 100),
		LastName:  textutil.Clip(textutil.PlainText(addr.LastName), 100),
		Company:   textutil.Clip(textutil.PlainText(addr.Company), 100),
		Street:    textutil.Clip(textutil.PlainText(addr.Street), 200),
		City:      textutil.Clip(textutil.PlainText(addr.City), 100),
		State:     textutil.Clip(textutil.PlainText(addr.State), 100),
		ZipCode:   textutil.Clip(textutil.PlainText(addr.ZipCode), 20),
		Country:   textutil.Clip(textutil.PlainText(addr.Country), 100),
		Phone:     textutil.Clip(textutil.PlainText(addr.Phone), 30),
	}
}

func missingAddressFields(addr domain.Address) []string {
	var missing []string
	for _, field := range []struct{ name, value string }{
		{"street", addr.Street},
		{"city", addr.City},
		{"state", addr.State},
		{"zipCode", addr.ZipCode},
		{"country", addr.Country},
	} {
		if field.value == "" {
			missing = append(missing, field.name)
		}
	}
	return missing
}

func validPaymentMethod(m domain.PaymentMethod) bool {
	switch m {
	case domain.PaymentMethodCreditCard, domain.PaymentMethodDebitCard, domain.PaymentMethodPayPal,
		domain.PaymentMethodStripe, domain.PaymentMethodCashOnDelivery, domain.PaymentMethodBankTransfer:
		return true
	}
	return false
}

func validShippingMethod(m domain.ShippingMethod) bool {
	switch m {
	case domain.ShippingMethodStandard, domain.ShippingMethodExpress, domain.ShippingMethodOvernight, domain.ShippingMethodPickup:
		return true
	}
	return false
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrOrderValidation):
		return "validation"
	case errors.Is(err, ErrProductUnavailable):
		return "product_unavailable"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrConcurrencyConflict):
		return "conflict"
	default:
		return "error"
	}
}
