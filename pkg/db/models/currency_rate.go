package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CurrencyRate is a pairwise conversion factor. Rates are not guaranteed to
// be symmetric or transitive; each direction is administered on its own.
type CurrencyRate struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FromCurrency string          `gorm:"column:from_currency;not null;uniqueIndex:idx_currency_pair"`
	ToCurrency   string          `gorm:"column:to_currency;not null;uniqueIndex:idx_currency_pair"`
	Rate         decimal.Decimal `gorm:"column:rate;type:numeric(16,6);not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
