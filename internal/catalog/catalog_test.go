package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRepo(t *testing.T) *Repository {
	t.Helper()

	repo, err := NewRepository(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	require.NoError(t, repo.RunMigrations("../../migrations"))
	return repo
}

func TestGetProduct_Canonical(t *testing.T) {
	repo := setupTestRepo(t)

	p, err := repo.GetProduct(context.Background(), "hacking-etico-y-pentesting")
	require.NoError(t, err)
	assert.Equal(t, "Hacking Ético y Pentesting", p.Name)
	assert.Equal(t, int64(3999), p.PriceCents)
}

func TestGetProduct_NotFound(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.GetProduct(context.Background(), "no-such-ebook")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestGetAllProducts_Seeded(t *testing.T) {
	repo := setupTestRepo(t)

	products, err := repo.GetAllProducts(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 6)
}

func TestResolve_CanonicalWinsOverRequestPrice(t *testing.T) {
	repo := setupTestRepo(t)

	// Title normalizes to a canonical slug; the catalog price wins over
	// whatever the request claimed.
	p := Resolve(context.Background(), repo, "Estrategias de Marketing Digital", 1)
	assert.Equal(t, "estrategias-de-marketing-digital", p.Slug)
	assert.Equal(t, int64(2499), p.PriceCents)
}

func TestResolve_SynthesizesUnknown(t *testing.T) {
	repo := setupTestRepo(t)

	p := Resolve(context.Background(), repo, "Gestión de Proyectos Ágil", 2299)
	assert.Equal(t, "gestion-de-proyectos-agil", p.Slug)
	assert.Equal(t, "Gestión de Proyectos Ágil", p.Name)
	assert.Equal(t, "E-book: Gestión de Proyectos Ágil", p.Description)
	assert.Equal(t, int64(2299), p.PriceCents)
}

func TestDeliveryConfig(t *testing.T) {
	entry, ok := DeliveryConfig("aprende-ia")
	require.True(t, ok)
	assert.Equal(t, "aprende-ia", entry.EbookID)
	assert.NotEmpty(t, entry.AssetPath)

	_, ok = DeliveryConfig("estrategias-marketing")
	assert.False(t, ok)
}
