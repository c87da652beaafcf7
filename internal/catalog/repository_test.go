package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shoplane/storefront-backend/pkg/db/models"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  sku TEXT NOT NULL UNIQUE,
  title TEXT NOT NULL,
  category TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	variants := `
CREATE TABLE IF NOT EXISTS product_variants (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  sku TEXT NOT NULL UNIQUE,
  title TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(products).Error)
	require.NoError(t, db.Exec(variants).Error)

	t.Cleanup(func() {
		db.Exec("DELETE FROM product_variants")
		db.Exec("DELETE FROM products")
	})
	return db
}

func newProduct(t *testing.T, db *gorm.DB, category string, active bool) *models.Product {
	t.Helper()

	product := &models.Product{
		ID:       uuid.New(),
		SKU:      "SKU-" + uuid.NewString(),
		Title:    "Catalog Product",
		Category: category,
		IsActive: active,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func TestFindProduct(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	active := newProduct(t, db, "electronics", true)
	inactive := newProduct(t, db, "electronics", false)

	got, err := repo.FindProduct(ctx, active.ID)
	require.NoError(t, err)
	require.Equal(t, active.ID, got.ID)
	require.Equal(t, "electronics", got.Category)

	_, err = repo.FindProduct(ctx, inactive.ID)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	_, err = repo.FindProduct(ctx, uuid.New())
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestFindVariantEnforcesOwnership(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	owner := newProduct(t, db, "apparel", true)
	other := newProduct(t, db, "apparel", true)

	variant := &models.ProductVariant{
		ID:        uuid.New(),
		ProductID: owner.ID,
		SKU:       "SKU-" + uuid.NewString(),
		Title:     "Large",
		IsActive:  true,
	}
	require.NoError(t, db.Create(variant).Error)

	got, err := repo.FindVariant(ctx, owner.ID, variant.ID)
	require.NoError(t, err)
	require.Equal(t, variant.ID, got.ID)

	_, err = repo.FindVariant(ctx, other.ID, variant.ID)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}
