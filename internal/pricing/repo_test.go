package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shoplane/storefront-backend/pkg/db/models"
	"github.com/shoplane/storefront-backend/pkg/enums"
)

func setupPricingTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS pricing_records (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  base_price NUMERIC NOT NULL,
  discount_type TEXT NOT NULL DEFAULT 'none',
  discount_value NUMERIC NOT NULL DEFAULT 0,
  final_price NUMERIC NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS tier_price_bands (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  min_qty INTEGER NOT NULL,
  max_qty INTEGER NOT NULL,
  price NUMERIC NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS special_price_windows (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  special_price NUMERIC NOT NULL,
  start_at DATETIME NOT NULL,
  end_at DATETIME NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS flash_sale_offers (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  start_at DATETIME NOT NULL,
  end_at DATETIME NOT NULL,
  status TEXT NOT NULL DEFAULT 'scheduled',
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS flash_sale_items (
  id TEXT PRIMARY KEY,
  sale_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  flash_price NUMERIC NOT NULL,
  stock_limit INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}

	t.Cleanup(func() {
		db.Exec("DELETE FROM flash_sale_items")
		db.Exec("DELETE FROM flash_sale_offers")
		db.Exec("DELETE FROM special_price_windows")
		db.Exec("DELETE FROM tier_price_bands")
		db.Exec("DELETE FROM pricing_records")
	})
	return db
}

func seedBand(t *testing.T, db *gorm.DB, productID uuid.UUID, minQty, maxQty int, price int64) *models.TierPriceBand {
	t.Helper()

	band := &models.TierPriceBand{
		ID:        uuid.New(),
		ProductID: productID,
		MinQty:    minQty,
		MaxQty:    maxQty,
		Price:     decimal.NewFromInt(price),
	}
	require.NoError(t, db.Create(band).Error)
	return band
}

func TestFindPricingRecordExactPair(t *testing.T) {
	db := setupPricingTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	productID := uuid.New()
	variantID := uuid.New()

	productLevel := &models.PricingRecord{
		ID:         uuid.New(),
		ProductID:  productID,
		BasePrice:  decimal.NewFromInt(100),
		FinalPrice: decimal.NewFromInt(100),
		Currency:   "USD",
		IsActive:   true,
	}
	require.NoError(t, db.Create(productLevel).Error)

	variantLevel := &models.PricingRecord{
		ID:         uuid.New(),
		ProductID:  productID,
		VariantID:  &variantID,
		BasePrice:  decimal.NewFromInt(120),
		FinalPrice: decimal.NewFromInt(120),
		Currency:   "USD",
		IsActive:   true,
	}
	require.NoError(t, db.Create(variantLevel).Error)

	got, err := repo.FindPricingRecord(ctx, productID, nil)
	require.NoError(t, err)
	require.Equal(t, productLevel.ID, got.ID)

	got, err = repo.FindPricingRecord(ctx, productID, &variantID)
	require.NoError(t, err)
	require.Equal(t, variantLevel.ID, got.ID)

	inactive := &models.PricingRecord{
		ID:         uuid.New(),
		ProductID:  uuid.New(),
		BasePrice:  decimal.NewFromInt(50),
		FinalPrice: decimal.NewFromInt(50),
		Currency:   "USD",
		IsActive:   false,
	}
	require.NoError(t, db.Create(inactive).Error)

	_, err = repo.FindPricingRecord(ctx, inactive.ProductID, nil)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestInactiveFlagPersistsOnCreate(t *testing.T) {
	db := setupPricingTestDB(t)

	record := &models.PricingRecord{
		ID:         uuid.New(),
		ProductID:  uuid.New(),
		BasePrice:  decimal.NewFromInt(75),
		FinalPrice: decimal.NewFromInt(75),
		Currency:   "USD",
		IsActive:   false,
	}
	require.NoError(t, db.Create(record).Error)

	var reloaded models.PricingRecord
	require.NoError(t, db.First(&reloaded, "id = ?", record.ID).Error)
	require.False(t, reloaded.IsActive, "creating a deactivated record must not flip it active")

	window := &models.SpecialPriceWindow{
		ID:           uuid.New(),
		ProductID:    uuid.New(),
		SpecialPrice: decimal.NewFromInt(60),
		StartAt:      time.Now().Add(-time.Hour),
		EndAt:        time.Now().Add(time.Hour),
		IsActive:     false,
	}
	require.NoError(t, db.Create(window).Error)

	var reloadedWindow models.SpecialPriceWindow
	require.NoError(t, db.First(&reloadedWindow, "id = ?", window.ID).Error)
	require.False(t, reloadedWindow.IsActive)
}

func TestMatchTierBandHighestMinQtyWins(t *testing.T) {
	db := setupPricingTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	productID := uuid.New()
	seedBand(t, db, productID, 1, 5, 100)
	expected := seedBand(t, db, productID, 6, 10, 90)

	band, err := repo.MatchTierBand(ctx, productID, nil, 7)
	require.NoError(t, err)
	require.Equal(t, expected.ID, band.ID)
	require.True(t, band.Price.Equal(decimal.NewFromInt(90)))

	// overlapping bands covering the same qty: highest min_qty wins
	overlap := seedBand(t, db, productID, 7, 12, 80)
	band, err = repo.MatchTierBand(ctx, productID, nil, 7)
	require.NoError(t, err)
	require.Equal(t, overlap.ID, band.ID)

	_, err = repo.MatchTierBand(ctx, productID, nil, 50)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestActiveSpecialWindow(t *testing.T) {
	db := setupPricingTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	productID := uuid.New()
	now := time.Now().UTC()

	live := &models.SpecialPriceWindow{
		ID:           uuid.New(),
		ProductID:    productID,
		SpecialPrice: decimal.NewFromInt(450),
		StartAt:      now.Add(-time.Hour),
		EndAt:        now.Add(time.Hour),
		IsActive:     true,
	}
	expired := &models.SpecialPriceWindow{
		ID:           uuid.New(),
		ProductID:    productID,
		SpecialPrice: decimal.NewFromInt(400),
		StartAt:      now.Add(-48 * time.Hour),
		EndAt:        now.Add(-24 * time.Hour),
		IsActive:     true,
	}
	require.NoError(t, db.Create(live).Error)
	require.NoError(t, db.Create(expired).Error)

	window, err := repo.ActiveSpecialWindow(ctx, productID, nil, now)
	require.NoError(t, err)
	require.Equal(t, live.ID, window.ID)

	_, err = repo.ActiveSpecialWindow(ctx, productID, nil, now.Add(72*time.Hour))
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestLiveFlashItem(t *testing.T) {
	db := setupPricingTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	productID := uuid.New()
	variantID := uuid.New()
	now := time.Now().UTC()

	running := &models.FlashSaleOffer{
		ID:      uuid.New(),
		Title:   "Mid-season",
		StartAt: now.Add(-time.Hour),
		EndAt:   now.Add(time.Hour),
		Status:  enums.FlashSaleStatusRunning,
	}
	scheduled := &models.FlashSaleOffer{
		ID:      uuid.New(),
		Title:   "Upcoming",
		StartAt: now.Add(-time.Hour),
		EndAt:   now.Add(time.Hour),
		Status:  enums.FlashSaleStatusScheduled,
	}
	require.NoError(t, db.Omit("Items").Create(running).Error)
	require.NoError(t, db.Omit("Items").Create(scheduled).Error)

	productEntry := &models.FlashSaleItem{
		ID:         uuid.New(),
		SaleID:     running.ID,
		ProductID:  productID,
		FlashPrice: decimal.NewFromInt(499),
	}
	variantEntry := &models.FlashSaleItem{
		ID:         uuid.New(),
		SaleID:     running.ID,
		ProductID:  productID,
		VariantID:  &variantID,
		FlashPrice: decimal.NewFromInt(479),
	}
	scheduledEntry := &models.FlashSaleItem{
		ID:         uuid.New(),
		SaleID:     scheduled.ID,
		ProductID:  productID,
		FlashPrice: decimal.NewFromInt(99),
	}
	require.NoError(t, db.Create(productEntry).Error)
	require.NoError(t, db.Create(variantEntry).Error)
	require.NoError(t, db.Create(scheduledEntry).Error)

	// product-level lookup only sees entries without a variant
	item, err := repo.LiveFlashItem(ctx, productID, nil, now)
	require.NoError(t, err)
	require.Equal(t, productEntry.ID, item.ID)

	// variant lookup prefers the exact variant entry over the product-wide one
	item, err = repo.LiveFlashItem(ctx, productID, &variantID, now)
	require.NoError(t, err)
	require.Equal(t, variantEntry.ID, item.ID)

	// scheduled offers never surface
	_, err = repo.LiveFlashItem(ctx, uuid.New(), nil, now)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}
