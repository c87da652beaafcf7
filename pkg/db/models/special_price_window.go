package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SpecialPriceWindow is a scheduled override price for one product/variant.
type SpecialPriceWindow struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID    uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	VariantID    *uuid.UUID      `gorm:"column:variant_id;type:uuid"`
	SpecialPrice decimal.Decimal `gorm:"column:special_price;type:numeric(12,2);not null"`
	StartAt      time.Time       `gorm:"column:start_at;not null;index"`
	EndAt        time.Time       `gorm:"column:end_at;not null;index"`
	IsActive     bool            `gorm:"column:is_active;not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// Covers reports whether the window is live at the given instant.
func (s SpecialPriceWindow) Covers(now time.Time) bool {
	if !s.IsActive {
		return false
	}
	return !now.Before(s.StartAt) && !now.After(s.EndAt)
}
