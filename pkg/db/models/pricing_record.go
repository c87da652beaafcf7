package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shoplane/storefront-backend/pkg/enums"
)

// PricingRecord holds the administered base price for a product or one of
// its variants. FinalPrice is derived from the standing discount and is
// recomputed on every write; it is never accepted from input.
type PricingRecord struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID     uuid.UUID          `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_pricing_product_variant"`
	VariantID     *uuid.UUID         `gorm:"column:variant_id;type:uuid;uniqueIndex:idx_pricing_product_variant"`
	BasePrice     decimal.Decimal    `gorm:"column:base_price;type:numeric(12,2);not null"`
	DiscountType  enums.DiscountType `gorm:"column:discount_type;type:discount_type;not null;default:'none'"`
	DiscountValue decimal.Decimal    `gorm:"column:discount_value;type:numeric(12,2);not null;default:0"`
	FinalPrice    decimal.Decimal    `gorm:"column:final_price;type:numeric(12,2);not null"`
	Currency      string             `gorm:"column:currency;not null;default:'USD'"`
	IsActive      bool               `gorm:"column:is_active;not null"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
