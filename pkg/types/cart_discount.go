package types

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/shoplane/storefront-backend/pkg/enums"
)

// DiscountDetails is the jsonb snapshot persisted on a cart while a coupon
// is attached. It records how the discount was computed so the cart can be
// rendered without re-reading the coupon.
type DiscountDetails struct {
	CouponCode  string           `json:"coupon_code"`
	Type        enums.CouponType `json:"type"`
	Value       decimal.Decimal  `json:"value"`
	Amount      decimal.Decimal  `json:"amount"`
	MaxDiscount *decimal.Decimal `json:"max_discount,omitempty"`
	AppliedAt   time.Time        `json:"applied_at"`
}

// CartSummary reports the money math of a cart after discounting.
type CartSummary struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	Discount       decimal.Decimal `json:"discount"`
	Total          decimal.Decimal `json:"total"`
	SavingsPercent decimal.Decimal `json:"savings_percent"`
}
