package enums

import "fmt"

// CouponScope restricts which cart items a coupon can discount.
type CouponScope string

const (
	CouponScopeAll        CouponScope = "all"
	CouponScopeProducts   CouponScope = "products"
	CouponScopeCategories CouponScope = "categories"
)

var validCouponScopes = []CouponScope{
	CouponScopeAll,
	CouponScopeProducts,
	CouponScopeCategories,
}

// String implements fmt.Stringer.
func (c CouponScope) String() string {
	return string(c)
}

// IsValid reports whether the scope is recognized.
func (c CouponScope) IsValid() bool {
	for _, candidate := range validCouponScopes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCouponScope converts a raw string into a CouponScope.
func ParseCouponScope(value string) (CouponScope, error) {
	for _, candidate := range validCouponScopes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid coupon scope %q", value)
}
