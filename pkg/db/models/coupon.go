package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/shoplane/storefront-backend/pkg/enums"
)

// Coupon is a cart-level discount code. UsedCount is a shared redemption
// counter incremented only through the conditional Redeem update; a
// UsageLimit of zero means unlimited.
type Coupon struct {
	ID                uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code              string             `gorm:"column:code;not null;uniqueIndex"`
	Type              enums.CouponType   `gorm:"column:type;type:coupon_type;not null"`
	Value             decimal.Decimal    `gorm:"column:value;type:numeric(12,2);not null"`
	MinOrderAmount    *decimal.Decimal   `gorm:"column:min_order_amount;type:numeric(12,2)"`
	MaxDiscount       *decimal.Decimal   `gorm:"column:max_discount;type:numeric(12,2)"`
	UsageLimit        int                `gorm:"column:usage_limit;not null;default:0"`
	UsedCount         int                `gorm:"column:used_count;not null;default:0"`
	AllowedCategories pq.StringArray     `gorm:"column:allowed_categories;type:text[];default:ARRAY[]::text[]"`
	StartAt           time.Time          `gorm:"column:start_at;not null"`
	EndAt             time.Time          `gorm:"column:end_at;not null"`
	Status            enums.CouponStatus `gorm:"column:status;type:coupon_status;not null;default:'active'"`
	CreatedAt         time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// IsRedeemable reports whether the coupon is active and inside its window.
// It does not consult the usage counter; that check belongs to Redeem.
func (c Coupon) IsRedeemable(now time.Time) bool {
	if c.Status != enums.CouponStatusActive {
		return false
	}
	return !now.Before(c.StartAt) && !now.After(c.EndAt)
}

// LimitReached reports the fast-path usage check. The authoritative
// enforcement is the conditional increment in the repository.
func (c Coupon) LimitReached() bool {
	return c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit
}
