package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shoplane/storefront-backend/pkg/enums"
)

// TaxRule scopes a tax percentage or fixed amount to a region. Country and
// State are nullable; a rule with both null is the global default.
type TaxRule struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string            `gorm:"column:name;not null;uniqueIndex:idx_tax_rule_scope"`
	Type      enums.TaxRuleType `gorm:"column:type;type:tax_rule_type;not null"`
	Value     decimal.Decimal   `gorm:"column:value;type:numeric(12,2);not null"`
	Country   *string           `gorm:"column:country;uniqueIndex:idx_tax_rule_scope"`
	State     *string           `gorm:"column:state;uniqueIndex:idx_tax_rule_scope"`
	IsActive  bool              `gorm:"column:is_active;not null"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// SpecificityScore ranks the rule's scope: (country,state)=2, country=1,
// global=0. Higher wins during resolution.
func (r TaxRule) SpecificityScore() int {
	score := 0
	if r.Country != nil && *r.Country != "" {
		score++
	}
	if r.State != nil && *r.State != "" {
		score++
	}
	return score
}
