package coupons

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lojinha-app/lojinha-backend/pkg/currency"
	"github.com/lojinha-app/lojinha-backend/pkg/db/models"
	"github.com/lojinha-app/lojinha-backend/pkg/enums"
	"github.com/lojinha-app/lojinha-backend/pkg/types"
)

// InvalidReason explains why a coupon could not be applied. It is a
// business outcome surfaced to checkout, not an error.
type InvalidReason string

const (
	ReasonInactive      InvalidReason = "coupon_inactive"
	ReasonNotStarted    InvalidReason = "coupon_not_started"
	ReasonExpired       InvalidReason = "coupon_expired"
	ReasonUsageExceeded InvalidReason = "coupon_usage_exceeded"
	ReasonBelowMinimum  InvalidReason = "order_below_minimum"
)

// ItemAllocation is one cart line's share of the coupon discount.
type ItemAllocation struct {
	Item     types.CartItem  `json:"item"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Eligible bool            `json:"eligible"`
}

// Allocation is the outcome of distributing a coupon over a cart. When
// Invalid is set the discount is zero everywhere and Items still carry
// the undiscounted subtotals.
type Allocation struct {
	Items         []ItemAllocation `json:"items"`
	OrderSubtotal decimal.Decimal  `json:"order_subtotal"`
	TotalDiscount decimal.Decimal  `json:"total_discount"`
	Invalid       InvalidReason    `json:"invalid,omitempty"`
}

// Allocator distributes a coupon's discount across cart line items.
// Pure computation; safe for concurrent use.
type Allocator struct {
	splitPolicy enums.FixedSplitPolicy
}

// NewAllocator builds an allocator with the given fixed-discount split
// policy. An unrecognized policy falls back to proportional.
func NewAllocator(policy enums.FixedSplitPolicy) *Allocator {
	if !policy.IsValid() {
		policy = enums.FixedSplitProportional
	}
	return &Allocator{splitPolicy: policy}
}

// CheckValidity applies the non-cart gates: active flag, validity
// window, usage limit and minimum order value. Empty reason means the
// coupon may be allocated.
func (a *Allocator) CheckValidity(coupon models.Coupon, now time.Time, orderSubtotal decimal.Decimal) InvalidReason {
	if !coupon.Active {
		return ReasonInactive
	}
	if coupon.ValidFrom != nil && now.Before(*coupon.ValidFrom) {
		return ReasonNotStarted
	}
	if coupon.ValidUntil != nil && now.After(*coupon.ValidUntil) {
		return ReasonExpired
	}
	if coupon.UsageLimit != nil && coupon.UsedCount >= *coupon.UsageLimit {
		return ReasonUsageExceeded
	}
	if coupon.MinOrderValue != nil && orderSubtotal.LessThan(*coupon.MinOrderValue) {
		return ReasonBelowMinimum
	}
	return ""
}

// Eligible reports whether the coupon's scope covers the item.
func Eligible(coupon models.Coupon, item types.CartItem) bool {
	switch coupon.Scope {
	case enums.CouponScopeProducts:
		for _, id := range coupon.ProductIDs {
			if id == item.ProductID {
				return true
			}
		}
		return false
	case enums.CouponScopeCategories:
		for _, name := range coupon.CategoryNames {
			if name == item.CategoryName {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// Allocate distributes the coupon discount over the cart. Overrides in
// the coupon's discount rules replace the blanket type/value for the
// items they match; each fixed discount (blanket or per rule) forms its
// own pool split across the items it covers. Per-item discounts never
// exceed the item's subtotal.
func (a *Allocator) Allocate(items []types.CartItem, coupon models.Coupon, now time.Time) Allocation {
	result := Allocation{
		Items:         make([]ItemAllocation, len(items)),
		OrderSubtotal: types.CartSubtotal(items),
		TotalDiscount: decimal.Zero,
	}
	for i, item := range items {
		result.Items[i] = ItemAllocation{
			Item:     item,
			Subtotal: item.Subtotal(),
			Discount: decimal.Zero,
			Eligible: Eligible(coupon, item),
		}
	}
	if len(items) == 0 {
		return result
	}

	if reason := a.CheckValidity(coupon, now, result.OrderSubtotal); reason != "" {
		result.Invalid = reason
		return result
	}

	// Group eligible items into pools. Percentage discounts apply per
	// item; every fixed discount is one pool shared by the items it
	// covers, keyed by the rule that defines it (blank key = blanket).
	type pool struct {
		value   decimal.Decimal
		indexes []int
		total   decimal.Decimal
	}
	fixedPools := map[string]*pool{}
	var fixedOrder []string

	for i := range result.Items {
		if !result.Items[i].Eligible {
			continue
		}
		dType, dValue, ruleKey := effectiveDiscount(coupon, result.Items[i].Item)
		switch dType {
		case enums.DiscountTypePercentage:
			discount := currency.Percent(result.Items[i].Subtotal, dValue)
			result.Items[i].Discount = clampDiscount(discount, result.Items[i].Subtotal)
		case enums.DiscountTypeFixed:
			if a.splitPolicy == enums.FixedSplitPerItem {
				result.Items[i].Discount = clampDiscount(currency.RoundCurrency(dValue), result.Items[i].Subtotal)
				continue
			}
			p, ok := fixedPools[ruleKey]
			if !ok {
				p = &pool{value: dValue, total: decimal.Zero}
				fixedPools[ruleKey] = p
				fixedOrder = append(fixedOrder, ruleKey)
			}
			p.indexes = append(p.indexes, i)
			p.total = p.total.Add(result.Items[i].Subtotal)
		}
	}

	for _, key := range fixedOrder {
		a.splitFixed(fixedPools[key].value, fixedPools[key].indexes, fixedPools[key].total, result.Items)
	}

	for i := range result.Items {
		result.TotalDiscount = result.TotalDiscount.Add(result.Items[i].Discount)
	}
	result.TotalDiscount = currency.RoundCurrency(result.TotalDiscount)
	return result
}

// splitFixed spreads one fixed discount proportionally by subtotal over
// the covered items. The last item absorbs the rounding remainder so
// shares sum to the pool value exactly, then everything is clamped.
func (a *Allocator) splitFixed(value decimal.Decimal, indexes []int, total decimal.Decimal, items []ItemAllocation) {
	if len(indexes) == 0 || total.IsZero() {
		return
	}
	allocated := decimal.Zero
	for n, i := range indexes {
		var share decimal.Decimal
		if n == len(indexes)-1 {
			share = value.Sub(allocated)
		} else {
			share = currency.RoundCurrency(items[i].Subtotal.Div(total).Mul(value))
			allocated = allocated.Add(share)
		}
		items[i].Discount = clampDiscount(share, items[i].Subtotal)
	}
}

// effectiveDiscount resolves the type/value applying to one item.
// Product overrides beat category overrides beat the blanket discount.
// The key distinguishes fixed pools: items matched by the same rule
// share that rule's fixed value, blanket-matched items share the
// coupon's.
func effectiveDiscount(coupon models.Coupon, item types.CartItem) (enums.DiscountType, decimal.Decimal, string) {
	var categoryRule *models.DiscountRule
	for i := range coupon.Rules {
		rule := coupon.Rules[i]
		if !rule.Matches(item.ProductID, item.CategoryName) {
			continue
		}
		if rule.RuleType == enums.DiscountRuleTypeProduct {
			return rule.DiscountType, rule.DiscountValue, rule.ID.String()
		}
		if categoryRule == nil {
			categoryRule = &coupon.Rules[i]
		}
	}
	if categoryRule != nil {
		return categoryRule.DiscountType, categoryRule.DiscountValue, categoryRule.ID.String()
	}
	return coupon.DiscountType, coupon.DiscountValue, ""
}

func clampDiscount(discount, subtotal decimal.Decimal) decimal.Decimal {
	if discount.IsNegative() {
		return decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		return subtotal
	}
	return discount
}
