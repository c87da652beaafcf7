package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shoplane/storefront-backend/pkg/enums"
	"github.com/shoplane/storefront-backend/pkg/types"
)

// CartRecord is a session-scoped cart. Coupon state (CouponCode, Discount,
// DiscountDetails, CouponAppliedAt) is present only while a coupon is
// attached and is cleared on removal or on a failed recompute.
type CartRecord struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SessionID       string                 `gorm:"column:session_id;not null;uniqueIndex"`
	Status          enums.CartStatus       `gorm:"column:status;type:cart_status;not null;default:'active'"`
	Currency        string                 `gorm:"column:currency;not null;default:'USD'"`
	Subtotal        decimal.Decimal        `gorm:"column:subtotal;type:numeric(12,2);not null;default:0"`
	Discount        decimal.Decimal        `gorm:"column:discount;type:numeric(12,2);not null;default:0"`
	CartTotal       decimal.Decimal        `gorm:"column:cart_total;type:numeric(12,2);not null;default:0"`
	CouponCode      *string                `gorm:"column:coupon_code"`
	CouponAppliedAt *time.Time             `gorm:"column:coupon_applied_at"`
	DiscountDetails *types.DiscountDetails `gorm:"column:discount_details;type:jsonb;serializer:json"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`

	Items []CartItem `gorm:"foreignKey:CartID"`
}

// HasCoupon reports whether a coupon is currently attached.
func (c CartRecord) HasCoupon() bool {
	return c.CouponCode != nil && *c.CouponCode != ""
}
