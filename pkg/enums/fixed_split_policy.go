package enums

import "fmt"

// FixedSplitPolicy controls how a fixed-value discount is distributed
// across the cart items it covers. The stored procedures upstream only
// exposed the data shape, so the policy is configurable: proportional
// spreads one fixed amount across items weighted by subtotal, per_item
// applies the full amount to every matching item.
type FixedSplitPolicy string

const (
	FixedSplitProportional FixedSplitPolicy = "proportional"
	FixedSplitPerItem      FixedSplitPolicy = "per_item"
)

var validFixedSplitPolicies = []FixedSplitPolicy{
	FixedSplitProportional,
	FixedSplitPerItem,
}

// String implements fmt.Stringer.
func (f FixedSplitPolicy) String() string {
	return string(f)
}

// IsValid reports whether the policy is recognized.
func (f FixedSplitPolicy) IsValid() bool {
	for _, candidate := range validFixedSplitPolicies {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFixedSplitPolicy converts a raw string into a FixedSplitPolicy.
func ParseFixedSplitPolicy(value string) (FixedSplitPolicy, error) {
	for _, candidate := range validFixedSplitPolicies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fixed split policy %q", value)
}
