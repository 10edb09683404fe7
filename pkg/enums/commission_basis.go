package enums

import "fmt"

// CommissionBasis describes how a commission amount is derived from an
// item's value: a percentage of it or a flat amount per matching item.
type CommissionBasis string

const (
	CommissionBasisPercentage CommissionBasis = "percentage"
	CommissionBasisFixed      CommissionBasis = "fixed"
)

var validCommissionBases = []CommissionBasis{
	CommissionBasisPercentage,
	CommissionBasisFixed,
}

// String implements fmt.Stringer.
func (c CommissionBasis) String() string {
	return string(c)
}

// IsValid reports whether the basis is recognized.
func (c CommissionBasis) IsValid() bool {
	for _, candidate := range validCommissionBases {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCommissionBasis converts a raw string into a CommissionBasis.
func ParseCommissionBasis(value string) (CommissionBasis, error) {
	for _, candidate := range validCommissionBases {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid commission basis %q", value)
}
