package enums

import "fmt"

// DiscountRuleType selects what a coupon-level override rule matches on.
type DiscountRuleType string

const (
	DiscountRuleTypeProduct  DiscountRuleType = "product"
	DiscountRuleTypeCategory DiscountRuleType = "category"
)

var validDiscountRuleTypes = []DiscountRuleType{
	DiscountRuleTypeProduct,
	DiscountRuleTypeCategory,
}

// String implements fmt.Stringer.
func (d DiscountRuleType) String() string {
	return string(d)
}

// IsValid reports whether the value is known.
func (d DiscountRuleType) IsValid() bool {
	for _, candidate := range validDiscountRuleTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDiscountRuleType converts raw input into a DiscountRuleType.
func ParseDiscountRuleType(value string) (DiscountRuleType, error) {
	for _, candidate := range validDiscountRuleTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid discount rule type %q", value)
}
