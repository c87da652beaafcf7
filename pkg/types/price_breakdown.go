package types

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shoplane/storefront-backend/pkg/enums"
)

// PriceBreakdown is the authoritative result of resolving one item's price.
// Each Applied* entry records an override that actually took effect, in the
// order the resolver applied them.
type PriceBreakdown struct {
	ProductID  uuid.UUID       `json:"product_id"`
	VariantID  *uuid.UUID      `json:"variant_id,omitempty"`
	Currency   string          `json:"currency"`
	Qty        int             `json:"qty"`
	BasePrice  decimal.Decimal `json:"base_price"`
	Applied    AppliedOverrides `json:"applied"`
	FinalPrice decimal.Decimal `json:"final_price"`
}

// AppliedOverrides groups the override mechanisms that contributed to the
// final price. Nil means the mechanism did not apply.
type AppliedOverrides struct {
	FlashSale    *AppliedFlashSale    `json:"flash_sale"`
	Special      *AppliedSpecial      `json:"special"`
	Tier         *AppliedTier         `json:"tier"`
	Tax          *AppliedTax          `json:"tax"`
	CurrencyRate *AppliedCurrencyRate `json:"currency_rate"`
}

type AppliedFlashSale struct {
	SaleID     uuid.UUID       `json:"sale_id"`
	FlashPrice decimal.Decimal `json:"flash_price"`
}

type AppliedSpecial struct {
	SpecialID    uuid.UUID       `json:"special_id"`
	SpecialPrice decimal.Decimal `json:"special_price"`
}

type AppliedTier struct {
	TierID uuid.UUID       `json:"tier_id"`
	Price  decimal.Decimal `json:"price"`
	Range  [2]int          `json:"range"`
}

type AppliedTax struct {
	RuleID uuid.UUID         `json:"rule_id"`
	Type   enums.TaxRuleType `json:"type"`
	Value  decimal.Decimal   `json:"value"`
	Amount decimal.Decimal   `json:"amount"`
}

type AppliedCurrencyRate struct {
	From string          `json:"from"`
	To   string          `json:"to"`
	Rate decimal.Decimal `json:"rate"`
}
