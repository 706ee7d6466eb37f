package domain

import "time"

// OrderStatus enumerates the fulfilment lifecycle states of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// PaymentStatus enumerates the payment lifecycle, independent from OrderStatus.
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusProcessing        PaymentStatus = "processing"
	PaymentStatusCompleted         PaymentStatus = "completed"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
)

// PaymentMethod captures how the customer intends to pay.
type PaymentMethod string

const (
	PaymentMethodCreditCard     PaymentMethod = "credit_card"
	PaymentMethodDebitCard      PaymentMethod = "debit_card"
	PaymentMethodPayPal         PaymentMethod = "paypal"
	PaymentMethodStripe         PaymentMethod = "stripe"
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentMethodBankTransfer   PaymentMethod = "bank_transfer"
)

// ShippingMethod captures the requested delivery speed.
type ShippingMethod string

const (
	ShippingMethodStandard  ShippingMethod = "standard"
	ShippingMethodExpress   ShippingMethod = "express"
	ShippingMethodOvernight ShippingMethod = "overnight"
	ShippingMethodPickup    ShippingMethod = "pickup"
)

// Order is the immutable-at-creation snapshot of a purchase plus its lifecycle state.
// Monetary amounts are stored in minor units.
type Order struct {
	ID              string
	OrderNumber     string
	UserID          string
	Items           []OrderItem
	Subtotal        int64
	Tax             int64
	ShippingCost    int64
	Discount        int64
	TotalAmount     int64
	Status          OrderStatus
	PaymentStatus   PaymentStatus
	PaymentMethod   PaymentMethod
	ShippingMethod  ShippingMethod
	ShippingAddress Address
	BillingAddress  *Address
	TrackingNumber  string
	Carrier         string
	CustomerNotes   string
	CouponCode      string
	StatusHistory   []StatusHistoryEntry
	StockReleased   bool
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ConfirmedAt     *time.Time
	ShippedAt       *time.Time
	DeliveredAt     *time.Time
	CancelledAt     *time.Time
	PaidAt          *time.Time
	RefundedAt      *time.Time
}

// TotalItems sums the quantities of every line.
func (o Order) TotalItems() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

// OrderItem is a priced snapshot of a catalog product at purchase time.
type OrderItem struct {
	ProductID string
	Name      string
	Price     int64
	Quantity  int
	LineTotal int64
	Image     string
	Brand     string
	Category  string
}

// Address is a postal address attached to an order.
type Address struct {
	FirstName string
	LastName  string
	Company   string
	Street    string
	City      string
	State     string
	ZipCode   string
	Country   string
	Phone     string
}

// StatusHistoryEntry is an append-only audit record of a lifecycle transition.
type StatusHistoryEntry struct {
	Status        OrderStatus
	PaymentStatus PaymentStatus
	Timestamp     time.Time
	Note          string
	ActorID       string
}

// OrderSummary aggregates figures over a filtered order set.
type OrderSummary struct {
	TotalRevenueExcludingCancelled int64
}
