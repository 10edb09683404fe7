package enums

import "fmt"

// CommissionSource records which rule level produced an item's commission.
type CommissionSource string

const (
	CommissionSourceProductRule  CommissionSource = "product_rule"
	CommissionSourceCategoryRule CommissionSource = "category_rule"
	CommissionSourceDefaultRule  CommissionSource = "default_rule"
	CommissionSourceNone         CommissionSource = "none"
)

var validCommissionSources = []CommissionSource{
	CommissionSourceProductRule,
	CommissionSourceCategoryRule,
	CommissionSourceDefaultRule,
	CommissionSourceNone,
}

// String implements fmt.Stringer.
func (c CommissionSource) String() string {
	return string(c)
}

// IsValid reports whether the value is known.
func (c CommissionSource) IsValid() bool {
	for _, candidate := range validCommissionSources {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCommissionSource converts raw input into a CommissionSource.
func ParseCommissionSource(value string) (CommissionSource, error) {
	for _, candidate := range validCommissionSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid commission source %q", value)
}
