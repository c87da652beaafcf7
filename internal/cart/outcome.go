package cart

import (
	"github.com/shoplane/storefront-backend/pkg/db/models"
	"github.com/shoplane/storefront-backend/pkg/types"
)

// RejectionType discriminates the expected business reasons a coupon apply
// can be refused. These are outcomes, not errors; hard failures travel the
// error return instead.
type RejectionType string

const (
	RejectionInvalidCouponCode    RejectionType = "INVALID_COUPON_CODE"
	RejectionCartNotFound         RejectionType = "CART_NOT_FOUND"
	RejectionEmptyCart            RejectionType = "EMPTY_CART"
	RejectionCouponAlreadyApplied RejectionType = "COUPON_ALREADY_APPLIED"
	RejectionCouponNotFound       RejectionType = "COUPON_NOT_FOUND"
	RejectionUsageLimitReached    RejectionType = "USAGE_LIMIT_REACHED"
	RejectionNoValidItems         RejectionType = "NO_VALID_ITEMS"
	RejectionMinOrderValueNotMet  RejectionType = "MIN_ORDER_VALUE_NOT_MET"
	RejectionCategoryRestriction  RejectionType = "CATEGORY_RESTRICTION"
)

// Rejection carries one refused apply with optional context values such as
// the required and current order amounts.
type Rejection struct {
	Type    RejectionType  `json:"error_type"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

// Applied carries the successful apply result.
type Applied struct {
	Cart     *models.CartRecord    `json:"cart"`
	Discount types.DiscountDetails `json:"discount"`
	Summary  types.CartSummary     `json:"summary"`
}

// ApplyOutcome is the discriminated result of ApplyCoupon: exactly one of
// Applied or Rejection is set.
type ApplyOutcome struct {
	Applied   *Applied
	Rejection *Rejection
}

func reject(t RejectionType, message string, ctx map[string]any) *ApplyOutcome {
	return &ApplyOutcome{Rejection: &Rejection{Type: t, Message: message, Context: ctx}}
}
