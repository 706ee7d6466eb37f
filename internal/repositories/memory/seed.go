package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	domain "github.com/storefront/api/internal/domain"
)

type seedProduct struct {
	ID                string `json:"productId"`
	Name              string `json:"name"`
	Price             int64  `json:"price"`
	Image             string `json:"image"`
	Brand             string `json:"brand"`
	Category          string `json:"category"`
	Inactive          bool   `json:"inactive"`
	AvailableQuantity int    `json:"availableQuantity"`
	LowStockThreshold int    `json:"lowStockThreshold"`
}

// LoadSeedFile reads a JSON array of catalog products for local runs on the memory backend.
// Products are active unless marked inactive.
func LoadSeedFile(path string) ([]domain.Product, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("memory: read seed file: %w", err)
	}
	var entries []seedProduct
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("memory: decode seed file %s: %w", path, err)
	}

	products := make([]domain.Product, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		id := strings.TrimSpace(e.ID)
		switch {
		case id == "":
			return nil, fmt.Errorf("memory: seed entry %d has no productId", i)
		case e.Price < 0 || e.AvailableQuantity < 0:
			return nil, fmt.Errorf("memory: seed entry %s has negative price or quantity", id)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("memory: duplicate seed entry %s", id)
		}
		seen[id] = struct{}{}
		products = append(products, domain.Product{
			ID:                id,
			Name:              e.Name,
			Price:             e.Price,
			Image:             e.Image,
			Brand:             e.Brand,
			Category:          e.Category,
			IsActive:          !e.Inactive,
			AvailableQuantity: e.AvailableQuantity,
			LowStockThreshold: e.LowStockThreshold,
		})
	}
	return products, nil
}
