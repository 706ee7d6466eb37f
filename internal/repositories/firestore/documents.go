package firestore

import (
	"time"

	domain "github.com/storefront/api/internal/domain"
)

type productDocument struct {
	Name              string    `firestore:"name"`
	Price             int64     `firestore:"price"`
	Image             string    `firestore:"image,omitempty"`
	Brand             string    `firestore:"brand,omitempty"`
	Category          string    `firestore:"category,omitempty"`
	IsActive          bool      `firestore:"isActive"`
	IsDeleted         bool      `firestore:"isDeleted"`
	AvailableQuantity int       `firestore:"availableQuantity"`
	LowStockThreshold int       `firestore:"lowStockThreshold"`
	UpdatedAt         time.Time `firestore:"updatedAt"`
}

func (d productDocument) toDomain(id string) domain.Product {
	return domain.Product{
		ID:                id,
		Name:              d.Name,
		Price:             d.Price,
		Image:             d.Image,
		Brand:             d.Brand,
		Category:          d.Category,
		IsActive:          d.IsActive,
		IsDeleted:         d.IsDeleted,
		AvailableQuantity: d.AvailableQuantity,
		LowStockThreshold: d.LowStockThreshold,
		UpdatedAt:         d.UpdatedAt,
	}
}

func newProductDocument(p domain.Product) productDocument {
	return productDocument{
		Name:              p.Name,
		Price:             p.Price,
		Image:             p.Image,
		Brand:             p.Brand,
		Category:          p.Category,
		IsActive:          p.IsActive,
		IsDeleted:         p.IsDeleted,
		AvailableQuantity: p.AvailableQuantity,
		LowStockThreshold: p.LowStockThreshold,
		UpdatedAt:         p.UpdatedAt.UTC(),
	}
}

type orderItemDocument struct {
	ProductID string `firestore:"productId"`
	Name      string `firestore:"name"`
	Price     int64  `firestore:"price"`
	Quantity  int    `firestore:"quantity"`
	LineTotal int64  `firestore:"lineTotal"`
	Image     string `firestore:"image,omitempty"`
	Brand     string `firestore:"brand,omitempty"`
	Category  string `firestore:"category,omitempty"`
}

type addressDocument struct {
	FirstName string `firestore:"firstName,omitempty"`
	LastName  string `firestore:"lastName,omitempty"`
	Company   string `firestore:"company,omitempty"`
	Street    string `firestore:"street"`
	City      string `firestore:"city"`
	State     string `firestore:"state"`
	ZipCode   string `firestore:"zipCode"`
	Country   string `firestore:"country"`
	Phone     string `firestore:"phone,omitempty"`
}

type historyDocument struct {
	Status        string    `firestore:"status"`
	PaymentStatus string    `firestore:"paymentStatus"`
	Timestamp     time.Time `firestore:"timestamp"`
	Note          string    `firestore:"note,omitempty"`
	ActorID       string    `firestore:"actorId,omitempty"`
}

type orderDocument struct {
	OrderNumber     string              `firestore:"orderNumber"`
	UserID          string              `firestore:"userId"`
	Items           []orderItemDocument `firestore:"items"`
	Subtotal        int64               `firestore:"subtotal"`
	Tax             int64               `firestore:"tax"`
	ShippingCost    int64               `firestore:"shippingCost"`
	Discount        int64               `firestore:"discount"`
	TotalAmount     int64               `firestore:"totalAmount"`
	Status          string              `firestore:"status"`
	PaymentStatus   string              `firestore:"paymentStatus"`
	PaymentMethod   string              `firestore:"paymentMethod"`
	ShippingMethod  string              `firestore:"shippingMethod"`
	ShippingAddress addressDocument     `firestore:"shippingAddress"`
	BillingAddress  *addressDocument    `firestore:"billingAddress,omitempty"`
	TrackingNumber  string              `firestore:"trackingNumber,omitempty"`
	Carrier         string              `firestore:"carrier,omitempty"`
	CustomerNotes   string              `firestore:"customerNotes,omitempty"`
	CouponCode      string              `firestore:"couponCode,omitempty"`
	StatusHistory   []historyDocument   `firestore:"statusHistory"`
	StockReleased   bool                `firestore:"stockReleased"`
	Version         int64               `firestore:"version"`
	CreatedAt       time.Time           `firestore:"createdAt"`
	UpdatedAt       time.Time           `firestore:"updatedAt"`
	ConfirmedAt     *time.Time          `firestore:"confirmedAt,omitempty"`
	ShippedAt       *time.Time          `firestore:"shippedAt,omitempty"`
	DeliveredAt     *time.Time          `firestore:"deliveredAt,omitempty"`
	CancelledAt     *time.Time          `firestore:"cancelledAt,omitempty"`
	PaidAt          *time.Time          `firestore:"paidAt,omitempty"`
	RefundedAt      *time.Time          `firestore:"refundedAt,omitempty"`
}

func newOrderDocument(o domain.Order) orderDocument {
	doc := orderDocument{
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		Items:           make([]orderItemDocument, 0, len(o.Items)),
		Subtotal:        o.Subtotal,
		Tax:             o.Tax,
		ShippingCost:    o.ShippingCost,
		Discount:        o.Discount,
		TotalAmount:     o.TotalAmount,
		Status:          string(o.Status),
		PaymentStatus:   string(o.PaymentStatus),
		PaymentMethod:   string(o.PaymentMethod),
		ShippingMethod:  string(o.ShippingMethod),
		ShippingAddress: addressDocument(o.ShippingAddress),
		TrackingNumber:  o.TrackingNumber,
		Carrier:         o.Carrier,
		CustomerNotes:   o.CustomerNotes,
		CouponCode:      o.CouponCode,
		StatusHistory:   make([]historyDocument, 0, len(o.StatusHistory)),
		StockReleased:   o.StockReleased,
		Version:         o.Version,
		CreatedAt:       o.CreatedAt.UTC(),
		UpdatedAt:       o.UpdatedAt.UTC(),
		ConfirmedAt:     utcPtr(o.ConfirmedAt),
		ShippedAt:       utcPtr(o.ShippedAt),
		DeliveredAt:     utcPtr(o.DeliveredAt),
		CancelledAt:     utcPtr(o.CancelledAt),
		PaidAt:          utcPtr(o.PaidAt),
		RefundedAt:      utcPtr(o.RefundedAt),
	}
	for _, item := range o.Items {
		doc.Items = append(doc.Items, orderItemDocument(item))
	}
	if o.BillingAddress != nil {
		billing := addressDocument(*o.BillingAddress)
		doc.BillingAddress = &billing
	}
	for _, entry := range o.StatusHistory {
		doc.StatusHistory = append(doc.StatusHistory, historyDocument{
			Status:        string(entry.Status),
			PaymentStatus: string(entry.PaymentStatus),
			Timestamp:     entry.Timestamp.UTC(),
			Note:          entry.Note,
			ActorID:       entry.ActorID,
		})
	}
	return doc
}

func (d orderDocument) toDomain(id string) domain.Order {
	order := domain.Order{
		ID:              id,
		OrderNumber:     d.OrderNumber,
		UserID:          d.UserID,
		Items:           make([]domain.OrderItem, 0, len(d.Items)),
		Subtotal:        d.Subtotal,
		Tax:             d.Tax,
		ShippingCost:    d.ShippingCost,
		Discount:        d.Discount,
		TotalAmount:     d.TotalAmount,
		Status:          domain.OrderStatus(d.Status),
		PaymentStatus:   domain.PaymentStatus(d.PaymentStatus),
		PaymentMethod:   domain.PaymentMethod(d.PaymentMethod),
		ShippingMethod:  domain.ShippingMethod(d.ShippingMethod),
		ShippingAddress: domain.Address(d.ShippingAddress),
		TrackingNumber:  d.TrackingNumber,
		Carrier:         d.Carrier,
		CustomerNotes:   d.CustomerNotes,
		CouponCode:      d.CouponCode,
		StatusHistory:   make([]domain.StatusHistoryEntry, 0, len(d.StatusHistory)),
		StockReleased:   d.StockReleased,
		Version:         d.Version,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
		ConfirmedAt:     d.ConfirmedAt,
		ShippedAt:       d.ShippedAt,
		DeliveredAt:     d.DeliveredAt,
		CancelledAt:     d.CancelledAt,
		PaidAt:          d.PaidAt,
		RefundedAt:      d.RefundedAt,
	}
	for _, item := range d.Items {
		order.Items = append(order.Items, domain.OrderItem(item))
	}
	if d.BillingAddress != nil {
		billing := domain.Address(*d.BillingAddress)
		order.BillingAddress = &billing
	}
	for _, entry := range d.StatusHistory {
		order.StatusHistory = append(order.StatusHistory, domain.StatusHistoryEntry{
			Status:        domain.OrderStatus(entry.Status),
			PaymentStatus: domain.PaymentStatus(entry.PaymentStatus),
			Timestamp:     entry.Timestamp,
			Note:          entry.Note,
			ActorID:       entry.ActorID,
		})
	}
	return order
}

type cartLineDocument struct {
	ProductID string    `firestore:"productId"`
	Quantity  int       `firestore:"quantity"`
	AddedAt   time.Time `firestore:"addedAt"`
}

type cartDocument struct {
	Lines     []cartLineDocument `firestore:"lines"`
	Version   int64              `firestore:"version"`
	UpdatedAt time.Time          `firestore:"updatedAt"`
}

func newCartDocument(c domain.Cart) cartDocument {
	doc := cartDocument{Lines: make([]cartLineDocument, 0, len(c.Lines)), Version: c.Version, UpdatedAt: c.UpdatedAt.UTC()}
	for _, line := range c.Lines {
		doc.Lines = append(doc.Lines, cartLineDocument{ProductID: line.ProductID, Quantity: line.Quantity, AddedAt: line.AddedAt.UTC()})
	}
	return doc
}

func (d cartDocument) toDomain(userID string) domain.Cart {
	cart := domain.Cart{UserID: userID, Lines: make([]domain.CartLine, 0, len(d.Lines)), Version: d.Version, UpdatedAt: d.UpdatedAt}
	for _, line := range d.Lines {
		cart.Lines = append(cart.Lines, domain.CartLine{ProductID: line.ProductID, Quantity: line.Quantity, AddedAt: line.AddedAt})
	}
	return cart
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
