package domain

// PricingRules holds the checkout pricing constants. Amounts are minor units, the tax rate is
// expressed in basis points.
type PricingRules struct {
	TaxRateBasisPoints    int64
	FreeShippingThreshold int64
	FlatShippingFee       int64
}

// DefaultPricingRules returns 8% tax, free shipping from 100.00 and a 10.00 flat fee.
func DefaultPricingRules() PricingRules {
	return PricingRules{
		TaxRateBasisPoints:    800,
		FreeShippingThreshold: 10000,
		FlatShippingFee:       1000,
	}
}

// PricingBreakdown captures the aggregated monetary results of pricing a set of order items.
type PricingBreakdown struct {
	Subtotal int64
	Tax      int64
	Shipping int64
	Discount int64
	Total    int64
}

// Price computes subtotal, tax, shipping and total for the given items. The discount is clamped
// to [0, subtotal] so that every monetary field stays non-negative.
func (r PricingRules) Price(items []OrderItem, discount int64) PricingBreakdown {
	var subtotal int64
	for _, item := range items {
		subtotal += item.LineTotal
	}

	shipping := r.FlatShippingFee
	if subtotal >= r.FreeShippingThreshold {
		shipping = 0
	}

	if discount < 0 {
		discount = 0
	}
	if discount > subtotal {
		discount = subtotal
	}

	tax := RoundBasisPoints(subtotal, r.TaxRateBasisPoints)

	return PricingBreakdown{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Discount: discount,
		Total:    subtotal + tax + shipping - discount,
	}
}

// RoundBasisPoints applies rate/10000 to amount, rounding half away from zero to the nearest minor unit.
func RoundBasisPoints(amount, basisPoints int64) int64 {
	product := amount * basisPoints
	if product >= 0 {
		return (product + 5000) / 10000
	}
	return (product - 5000) / 10000
}

// NewOrderItem snapshots a product into an order line.
func NewOrderItem(product Product, quantity int) OrderItem {
	return OrderItem{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     product.Price,
		Quantity:  quantity,
		LineTotal: product.Price * int64(quantity),
		Image:     product.Image,
		Brand:     product.Brand,
		Category:  product.Category,
	}
}
