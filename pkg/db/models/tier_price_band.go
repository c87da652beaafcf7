package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TierPriceBand is a quantity-break unit price. Bands are administered
// freely and may overlap; resolution picks the matching band with the
// highest MinQty.
type TierPriceBand struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_tier_band"`
	VariantID *uuid.UUID      `gorm:"column:variant_id;type:uuid;uniqueIndex:idx_tier_band"`
	MinQty    int             `gorm:"column:min_qty;not null;uniqueIndex:idx_tier_band"`
	MaxQty    int             `gorm:"column:max_qty;not null;uniqueIndex:idx_tier_band"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
