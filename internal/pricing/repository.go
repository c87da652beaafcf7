package pricing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shoplane/storefront-backend/pkg/db/models"
	"github.com/shoplane/storefront-backend/pkg/enums"
	"github.com/shoplane/storefront-backend/pkg/pagination"
)

// Repository wires together persistence for pricing records, tier bands,
// special windows, and flash sales. All four tables feed one resolution path
// so they share a repository the way the resolver reads them.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func variantClause(qb *gorm.DB, variantID *uuid.UUID) *gorm.DB {
	if variantID != nil {
		return qb.Where("variant_id = ?", *variantID)
	}
	return qb.Where("variant_id IS NULL")
}

// --- pricing records ---

// FindPricingRecord loads the active pricing row for the exact (product, variant) pair.
func (r *Repository) FindPricingRecord(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*models.PricingRecord, error) {
	qb := r.db.WithContext(ctx).Where("product_id = ? AND is_active = ?", productID, true)
	qb = variantClause(qb, variantID)

	var record models.PricingRecord
	if err := qb.First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// CreatePricingRecord inserts a pricing row.
func (r *Repository) CreatePricingRecord(ctx context.Context, record *models.PricingRecord) (*models.PricingRecord, error) {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// UpdatePricingRecord saves an existing pricing row.
func (r *Repository) UpdatePricingRecord(ctx context.Context, record *models.PricingRecord) (*models.PricingRecord, error) {
	if err := r.db.WithContext(ctx).Save(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// DeletePricingRecord removes a pricing row by ID.
func (r *Repository) DeletePricingRecord(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.PricingRecord{}).Error
}

// FindPricingRecordByID loads a pricing row regardless of active state.
func (r *Repository) FindPricingRecordByID(ctx context.Context, id uuid.UUID) (*models.PricingRecord, error) {
	var record models.PricingRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// ListPricingRecords returns pricing rows newest-first with cursor pagination.
func (r *Repository) ListPricingRecords(ctx context.Context, params pagination.Params) ([]models.PricingRecord, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit)
	if cursor != nil {
		qb = qb.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.PricingRecord
	if err := qb.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// --- tier bands ---

// MatchTierBand returns the band covering qty with the highest minQty, or
// record-not-found when no band matches.
func (r *Repository) MatchTierBand(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, qty int) (*models.TierPriceBand, error) {
	qb := r.db.WithContext(ctx).
		Where("product_id = ? AND min_qty <= ? AND max_qty >= ?", productID, qty, qty)
	qb = variantClause(qb, variantID)

	var band models.TierPriceBand
	if err := qb.Order("min_qty DESC").First(&band).Error; err != nil {
		return nil, err
	}
	return &band, nil
}

// CreateTierBand inserts a tier band row.
func (r *Repository) CreateTierBand(ctx context.Context, band *models.TierPriceBand) (*models.TierPriceBand, error) {
	if err := r.db.WithContext(ctx).Create(band).Error; err != nil {
		return nil, err
	}
	return band, nil
}

// UpdateTierBand saves an existing tier band row.
func (r *Repository) UpdateTierBand(ctx context.Context, band *models.TierPriceBand) (*models.TierPriceBand, error) {
	if err := r.db.WithContext(ctx).Save(band).Error; err != nil {
		return nil, err
	}
	return band, nil
}

// DeleteTierBand removes a tier band by ID.
func (r *Repository) DeleteTierBand(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.TierPriceBand{}).Error
}

// FindTierBandByID loads a tier band.
func (r *Repository) FindTierBandByID(ctx context.Context, id uuid.UUID) (*models.TierPriceBand, error) {
	var band models.TierPriceBand
	if err := r.db.WithContext(ctx).First(&band, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &band, nil
}

// ListTierBands returns bands for one product ordered by min_qty.
func (r *Repository) ListTierBands(ctx context.Context, productID uuid.UUID) ([]models.TierPriceBand, error) {
	var rows []models.TierPriceBand
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("min_qty ASC").
		Find(&rows).
		Error
	return rows, err
}

// --- special windows ---

// ActiveSpecialWindow returns the live special price window for the pair at
// the given instant. When administrators overlap windows the most recently
// started one wins.
func (r *Repository) ActiveSpecialWindow(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, now time.Time) (*models.SpecialPriceWindow, error) {
	qb := r.db.WithContext(ctx).
		Where("product_id = ? AND is_active = ? AND start_at <= ? AND end_at >= ?", productID, true, now, now)
	qb = variantClause(qb, variantID)

	var window models.SpecialPriceWindow
	if err := qb.Order("start_at DESC").First(&window).Error; err != nil {
		return nil, err
	}
	return &window, nil
}

// CreateSpecialWindow inserts a special price window.
func (r *Repository) CreateSpecialWindow(ctx context.Context, window *models.SpecialPriceWindow) (*models.SpecialPriceWindow, error) {
	if err := r.db.WithContext(ctx).Create(window).Error; err != nil {
		return nil, err
	}
	return window, nil
}

// UpdateSpecialWindow saves an existing special price window.
func (r *Repository) UpdateSpecialWindow(ctx context.Context, window *models.SpecialPriceWindow) (*models.SpecialPriceWindow, error) {
	if err := r.db.WithContext(ctx).Save(window).Error; err != nil {
		return nil, err
	}
	return window, nil
}

// DeleteSpecialWindow removes a special price window by ID.
func (r *Repository) DeleteSpecialWindow(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.SpecialPriceWindow{}).Error
}

// FindSpecialWindowByID loads a special price window.
func (r *Repository) FindSpecialWindowByID(ctx context.Context, id uuid.UUID) (*models.SpecialPriceWindow, error) {
	var window models.SpecialPriceWindow
	if err := r.db.WithContext(ctx).First(&window, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &window, nil
}

// ListSpecialWindows returns windows newest-first with cursor pagination.
func (r *Repository) ListSpecialWindows(ctx context.Context, params pagination.Params) ([]models.SpecialPriceWindow, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit)
	if cursor != nil {
		qb = qb.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.SpecialPriceWindow
	if err := qb.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// --- flash sales ---

// LiveFlashItem returns the flash sale entry covering the pair at the given
// instant, joined against running offers inside their window. An entry with a
// NULL variant covers every variant of its product; an exact variant entry is
// preferred over it.
func (r *Repository) LiveFlashItem(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, now time.Time) (*models.FlashSaleItem, error) {
	qb := r.db.WithContext(ctx).
		Table("flash_sale_items").
		Joins("JOIN flash_sale_offers ON flash_sale_offers.id = flash_sale_items.sale_id").
		Where("flash_sale_offers.status = ?", enums.FlashSaleStatusRunning.String()).
		Where("flash_sale_offers.start_at <= ? AND flash_sale_offers.end_at >= ?", now, now).
		Where("flash_sale_items.product_id = ?", productID)

	if variantID != nil {
		qb = qb.Where("flash_sale_items.variant_id = ? OR flash_sale_items.variant_id IS NULL", *variantID)
	} else {
		qb = qb.Where("flash_sale_items.variant_id IS NULL")
	}

	var item models.FlashSaleItem
	err := qb.
		Order("CASE WHEN flash_sale_items.variant_id IS NULL THEN 1 ELSE 0 END, flash_sale_items.created_at DESC").
		Select("flash_sale_items.*").
		First(&item).
		Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateFlashSale inserts an offer with its item rows.
func (r *Repository) CreateFlashSale(ctx context.Context, offer *models.FlashSaleOffer) (*models.FlashSaleOffer, error) {
	if err := r.db.WithContext(ctx).Create(offer).Error; err != nil {
		return nil, err
	}
	return offer, nil
}

// UpdateFlashSale saves the offer row only; items are replaced separately.
func (r *Repository) UpdateFlashSale(ctx context.Context, offer *models.FlashSaleOffer) (*models.FlashSaleOffer, error) {
	if err := r.db.WithContext(ctx).Omit("Items").Save(offer).Error; err != nil {
		return nil, err
	}
	return offer, nil
}

// ReplaceFlashSaleItems replaces all item rows for the offer.
func (r *Repository) ReplaceFlashSaleItems(ctx context.Context, saleID uuid.UUID, items []models.FlashSaleItem) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("sale_id = ?", saleID).Delete(&models.FlashSaleItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return tx.Create(&items).Error
}

// DeleteFlashSale removes an offer; item rows cascade.
func (r *Repository) DeleteFlashSale(ctx context.Context, id uuid.UUID) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("sale_id = ?", id).Delete(&models.FlashSaleItem{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", id).Delete(&models.FlashSaleOffer{}).Error
}

// FindFlashSaleByID loads an offer with its items.
func (r *Repository) FindFlashSaleByID(ctx context.Context, id uuid.UUID) (*models.FlashSaleOffer, error) {
	var offer models.FlashSaleOffer
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&offer, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

// ListFlashSales returns offers newest-first with cursor pagination.
func (r *Repository) ListFlashSales(ctx context.Context, params pagination.Params) ([]models.FlashSaleOffer, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).Preload("Items").Order("created_at DESC, id DESC").Limit(limit)
	if cursor != nil {
		qb = qb.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.FlashSaleOffer
	if err := qb.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
