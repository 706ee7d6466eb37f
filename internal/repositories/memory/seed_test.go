package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadSeedFile(t *testing.T) {
	path := writeSeed(t, `[
		{"productId": "prod-lamp", "name": "Lamp", "price": 2500, "availableQuantity": 4},
		{"productId": "prod-old", "name": "Retired", "price": 900, "inactive": true}
	]`)

	products, err := LoadSeedFile(path)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.True(t, products[0].IsActive)
	assert.Equal(t, 4, products[0].AvailableQuantity)
	assert.False(t, products[1].IsActive)

	reg, err := NewRegistry()
	require.NoError(t, err)
	reg.Seed(products...)
	got, err := reg.Products().FindByID(context.Background(), "prod-lamp")
	require.NoError(t, err)
	assert.Equal(t, int64(2500), got.Price)
}

func TestLoadSeedFileRejectsBadEntries(t *testing.T) {
	cases := map[string]string{
		"missing id": `[{"name": "x", "price": 1}]`,
		"negative":   `[{"productId": "p", "price": -1}]`,
		"duplicate":  `[{"productId": "p"}, {"productId": "p"}]`,
		"not json":   `{`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadSeedFile(writeSeed(t, body))
			assert.Error(t, err)
		})
	}

	_, err := LoadSeedFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
