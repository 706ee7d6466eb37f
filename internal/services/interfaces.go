package services

import (
	"context"
	"time"

	domain "github.com/storefront/api/internal/domain"
)

// OrderService converts carts into orders and governs every later change to them.
type OrderService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (domain.Order, error)
	GetOrder(ctx context.Context, orderID string, requester Requester) (domain.Order, error)
	ListOrders(ctx context.Context, query ListOrdersQuery) (domain.Page[domain.Order], error)
	CancelOrder(ctx context.Context, cmd CancelOrderCommand) (domain.Order, error)
	AdminListOrders(ctx context.Context, query AdminListOrdersQuery) (AdminOrderPage, error)
	AdminUpdateOrder(ctx context.Context, cmd AdminUpdateOrderCommand) (domain.Order, error)
}

// InventoryService is the stock ledger. Reserve is a single atomic conditional decrement.
type InventoryService interface {
	Reserve(ctx context.Context, productID string, quantity int) (domain.StockLevel, error)
	Release(ctx context.Context, productID string, quantity int) (domain.StockLevel, error)
}

// CounterService issues order numbers.
type CounterService interface {
	NextOrderNumber(ctx context.Context) (string, error)
}

// CartService manages the caller's cart. Every mutation returns the new cart state.
type CartService interface {
	GetCart(ctx context.Context, userID string) (CartView, error)
	AddItem(ctx context.Context, cmd CartItemCommand) (CartView, error)
	UpdateItem(ctx context.Context, cmd CartItemCommand) (CartView, error)
	RemoveItem(ctx context.Context, userID, productID string) (CartView, error)
	ClearCart(ctx context.Context, userID string) (CartView, error)
}

// SystemService reports service health.
type SystemService interface {
	HealthReport(ctx context.Context) (domain.SystemHealthReport, error)
}

// EventPublisher delivers order and inventory events to a broker.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

// OrderEvent is the broker payload for order and inventory notifications.
type OrderEvent struct {
	ID                    string    `json:"id"`
	Type                  string    `json:"type"`
	OrderID               string    `json:"orderId,omitempty"`
	OrderNumber           string    `json:"orderNumber,omitempty"`
	UserID                string    `json:"userId,omitempty"`
	Status                string    `json:"status,omitempty"`
	PreviousStatus        string    `json:"previousStatus,omitempty"`
	PaymentStatus         string    `json:"paymentStatus,omitempty"`
	PreviousPaymentStatus string    `json:"previousPaymentStatus,omitempty"`
	TotalAmount           int64     `json:"totalAmount,omitempty"`
	ProductID             string    `json:"productId,omitempty"`
	AvailableQuantity     int       `json:"availableQuantity,omitempty"`
	ActorID               string    `json:"actorId,omitempty"`
	OccurredAt            time.Time `json:"occurredAt"`
}

// Key returns the partitioning key used by brokers that support ordering.
func (e OrderEvent) Key() string {
	if e.OrderID != "" {
		return e.OrderID
	}
	return e.ProductID
}

// Requester is the authenticated caller. Operators (admin or staff) may act on any order.
type Requester struct {
	UserID   string
	Operator bool
}

// CreateOrderCommand carries checkout input. The cart is read from the cart repository.
type CreateOrderCommand struct {
	UserID          string
	ShippingAddress domain.Address
	BillingAddress  *domain.Address
	PaymentMethod   domain.PaymentMethod
	ShippingMethod  domain.ShippingMethod
	CustomerNotes   string
	CouponCode      string
}

// ListOrdersQuery lists a single user's orders.
type ListOrdersQuery struct {
	UserID     string
	Status     domain.OrderStatus
	Pagination domain.Pagination
}

// CancelOrderCommand cancels an order on behalf of requester.
type CancelOrderCommand struct {
	OrderID   string
	Requester Requester
	Reason    string
}

// AdminListOrdersQuery filters orders across all users.
type AdminListOrdersQuery struct {
	Status        domain.OrderStatus
	PaymentStatus domain.PaymentStatus
	CreatedAt     domain.RangeQuery[time.Time]
	Pagination    domain.Pagination
}

// AdminOrderPage is a page of orders plus aggregates over the entire filter.
type AdminOrderPage struct {
	Orders  domain.Page[domain.Order]
	Summary domain.OrderSummary
}

// AdminUpdateOrderCommand requests a status, payment or tracking change. Nil fields are untouched.
type AdminUpdateOrderCommand struct {
	OrderID        string
	Status         *domain.OrderStatus
	PaymentStatus  *domain.PaymentStatus
	TrackingNumber *string
	Carrier        *string
	Note           string
	ActorID        string
}

// CartItemCommand adds or sets a cart line quantity.
type CartItemCommand struct {
	UserID    string
	ProductID string
	Quantity  int
}

// CartView is the cart as presented to the customer, resolved against the catalog. Lines whose
// product is missing or inactive are omitted.
type CartView struct {
	UserID        string
	Lines         []CartViewLine
	Subtotal      int64
	TotalQuantity int
	Version       int64
	UpdatedAt     time.Time
}

// CartViewLine is a cart line joined with its product.
type CartViewLine struct {
	ProductID         string
	Name              string
	Price             int64
	Image             string
	Brand             string
	Category          string
	AvailableQuantity int
	Quantity          int
	LineTotal         int64
	AddedAt           time.Time
}
