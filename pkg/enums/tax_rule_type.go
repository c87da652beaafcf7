package enums

import "fmt"

// TaxRuleType selects between percentage and fixed-amount tax rules.
type TaxRuleType string

const (
	TaxRuleTypePercentage TaxRuleType = "percentage"
	TaxRuleTypeFixed      TaxRuleType = "fixed"
)

var validTaxRuleTypes = []TaxRuleType{
	TaxRuleTypePercentage,
	TaxRuleTypeFixed,
}

// String implements fmt.Stringer.
func (t TaxRuleType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TaxRuleType.
func (t TaxRuleType) IsValid() bool {
	for _, candidate := range validTaxRuleTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTaxRuleType converts raw input into a TaxRuleType.
func ParseTaxRuleType(value string) (TaxRuleType, error) {
	for _, candidate := range validTaxRuleTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid tax rule type %q", value)
}
