package domain

import "time"

// DefaultLowStockThreshold mirrors the catalog default used when a product omits its own threshold.
const DefaultLowStockThreshold = 10

// Product is the catalog view consumed by checkout. Price is expressed in minor units.
type Product struct {
	ID                string
	Name              string
	Price             int64
	Image             string
	Brand             string
	Category          string
	IsActive          bool
	IsDeleted         bool
	AvailableQuantity int
	LowStockThreshold int
	UpdatedAt         time.Time
}

// Purchasable reports whether the product may be added to a cart or ordered.
func (p Product) Purchasable() bool {
	return p.IsActive && !p.IsDeleted
}

// StockLevel is the ledger projection returned after an atomic reserve or release.
type StockLevel struct {
	ProductID         string
	AvailableQuantity int
	LowStockThreshold int
}

// LowStock reports whether the remaining quantity is at or below the product threshold.
func (s StockLevel) LowStock() bool {
	threshold := s.LowStockThreshold
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	return s.AvailableQuantity <= threshold
}

// Cart is the versioned collection of lines owned by a single user.
type Cart struct {
	UserID    string
	Lines     []CartLine
	Version   int64
	UpdatedAt time.Time
}

// CartLine references a product and the requested quantity.
type CartLine struct {
	ProductID string
	Quantity  int
	AddedAt   time.Time
}

// TotalQuantity sums the quantity across all lines.
func (c Cart) TotalQuantity() int {
	total := 0
	for _, line := range c.Lines {
		total += line.Quantity
	}
	return total
}
