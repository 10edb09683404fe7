package enums

import "fmt"

// CommissionAppliesTo declares the matching level of a commission rule.
// Precedence when resolving a cart item is product > category > default.
type CommissionAppliesTo string

const (
	CommissionAppliesToProduct  CommissionAppliesTo = "product"
	CommissionAppliesToCategory CommissionAppliesTo = "category"
	CommissionAppliesToDefault  CommissionAppliesTo = "default"
)

var validCommissionAppliesTo = []CommissionAppliesTo{
	CommissionAppliesToProduct,
	CommissionAppliesToCategory,
	CommissionAppliesToDefault,
}

// String implements fmt.Stringer.
func (c CommissionAppliesTo) String() string {
	return string(c)
}

// IsValid reports whether the value is known.
func (c CommissionAppliesTo) IsValid() bool {
	for _, candidate := range validCommissionAppliesTo {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCommissionAppliesTo converts raw input into a CommissionAppliesTo.
func ParseCommissionAppliesTo(value string) (CommissionAppliesTo, error) {
	for _, candidate := range validCommissionAppliesTo {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid commission applies_to %q", value)
}
