package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shoplane/storefront-backend/pkg/enums"
)

// FlashSaleOffer is a scheduled, multi-product price override. It carries
// the highest precedence of all promotional mechanisms.
type FlashSaleOffer struct {
	ID        uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title     string                `gorm:"column:title;not null"`
	StartAt   time.Time             `gorm:"column:start_at;not null;index"`
	EndAt     time.Time             `gorm:"column:end_at;not null;index"`
	Status    enums.FlashSaleStatus `gorm:"column:status;type:flash_sale_status;not null;default:'scheduled'"`
	CreatedAt time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time             `gorm:"column:updated_at;autoUpdateTime"`

	Items []FlashSaleItem `gorm:"foreignKey:SaleID"`
}

// IsLive reports whether the offer overrides prices at the given instant.
// Status is administered; the time window is checked on top of it.
func (f FlashSaleOffer) IsLive(now time.Time) bool {
	if f.Status != enums.FlashSaleStatusRunning {
		return false
	}
	return !now.Before(f.StartAt) && !now.After(f.EndAt)
}

// FlashSaleItem is one product/variant entry inside a flash sale.
type FlashSaleItem struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SaleID     uuid.UUID       `gorm:"column:sale_id;type:uuid;not null;index"`
	ProductID  uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	VariantID  *uuid.UUID      `gorm:"column:variant_id;type:uuid"`
	FlashPrice decimal.Decimal `gorm:"column:flash_price;type:numeric(12,2);not null"`
	StockLimit int             `gorm:"column:stock_limit;not null;default:0"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}
