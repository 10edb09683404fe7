package commission

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lojinha-app/lojinha-backend/internal/coupons"
	"github.com/lojinha-app/lojinha-backend/pkg/currency"
	"github.com/lojinha-app/lojinha-backend/pkg/db/models"
	"github.com/lojinha-app/lojinha-backend/pkg/enums"
	"github.com/lojinha-app/lojinha-backend/pkg/types"
)

// ComputedItem is the commission outcome for one order line.
type ComputedItem struct {
	OrderItemID      uuid.UUID              `json:"order_item_id"`
	Subtotal         decimal.Decimal        `json:"subtotal"`
	Discount         decimal.Decimal        `json:"discount"`
	Value            decimal.Decimal        `json:"value"`
	CommissionType   enums.CommissionBasis  `json:"commission_type"`
	CommissionValue  decimal.Decimal        `json:"commission_value"`
	CommissionAmount decimal.Decimal        `json:"commission_amount"`
	Source           enums.CommissionSource `json:"source"`
	CouponEligible   bool                   `json:"coupon_eligible"`
	CouponScope      *string                `json:"coupon_scope,omitempty"`
}

// Computed is the full commission picture for one order. Item amounts
// sum to CommissionAmount exactly; both sides are rounded to cents.
type Computed struct {
	OrderSubtotal    decimal.Decimal       `json:"order_subtotal"`
	DiscountTotal    decimal.Decimal       `json:"discount_total"`
	OrderTotal       decimal.Decimal       `json:"order_total"`
	CommissionAmount decimal.Decimal       `json:"commission_amount"`
	CommissionType   enums.CommissionBasis `json:"commission_type"`
	CommissionValue  decimal.Decimal       `json:"commission_value"`
	CouponInvalid    coupons.InvalidReason `json:"coupon_invalid,omitempty"`
	Items            []ComputedItem        `json:"items"`
}

// Aggregator combines coupon allocation and rule resolution into the
// order-level earning. Pure computation; safe for concurrent use.
type Aggregator struct {
	allocator *coupons.Allocator
}

// NewAggregator builds an aggregator sharing the checkout allocator so
// preview and earning computation agree on every discount.
func NewAggregator(allocator *coupons.Allocator) *Aggregator {
	return &Aggregator{allocator: allocator}
}

// Compute produces the commission breakdown for an order's items under
// the given coupon (nil for none) and the affiliate's rules.
//
// The commission base per item is its post-discount value. Items the
// coupon's scope excludes carry no discount, so their base stays the
// gross subtotal. Fixed rules grant their flat value once per matching
// line; percentage rules apply to the base.
func (a *Aggregator) Compute(items []models.OrderItem, coupon *models.Coupon, rules []models.CommissionRule, now time.Time) Computed {
	cart := make([]types.CartItem, len(items))
	for i := range items {
		cart[i] = items[i].ToCartItem()
	}

	computed := Computed{
		OrderSubtotal:    types.CartSubtotal(cart),
		DiscountTotal:    decimal.Zero,
		CommissionAmount: decimal.Zero,
		CommissionType:   enums.CommissionBasisPercentage,
		CommissionValue:  decimal.Zero,
		Items:            make([]ComputedItem, len(items)),
	}

	discounts := make([]decimal.Decimal, len(items))
	eligible := make([]bool, len(items))
	var couponScope *string
	if coupon != nil {
		allocation := a.allocator.Allocate(cart, *coupon, now)
		computed.CouponInvalid = allocation.Invalid
		if allocation.Invalid == "" {
			for i := range allocation.Items {
				discounts[i] = allocation.Items[i].Discount
				eligible[i] = allocation.Items[i].Eligible
			}
			computed.DiscountTotal = allocation.TotalDiscount
			scope := coupon.Scope.String()
			couponScope = &scope
		}
	}
	computed.OrderTotal = currency.ClampNonNegative(computed.OrderSubtotal.Sub(computed.DiscountTotal))

	primarySet := false
	for i := range items {
		subtotal := cart[i].Subtotal()
		discount := decimal.Zero
		if discounts[i].IsPositive() {
			discount = discounts[i]
		}
		value := currency.ClampNonNegative(subtotal.Sub(discount))

		entry := ComputedItem{
			OrderItemID:    items[i].ID,
			Subtotal:       subtotal,
			Discount:       discount,
			Value:          value,
			CommissionType: enums.CommissionBasisPercentage,
			Source:         enums.CommissionSourceNone,
			CouponEligible: eligible[i],
			CouponScope:    couponScope,
		}

		resolution := Resolve(items[i].ProductID, items[i].CategoryName, rules)
		if resolution.Rule != nil {
			entry.Source = resolution.Source
			entry.CommissionType = resolution.Rule.CommissionType
			entry.CommissionValue = resolution.Rule.CommissionValue
			switch resolution.Rule.CommissionType {
			case enums.CommissionBasisPercentage:
				entry.CommissionAmount = currency.Percent(value, resolution.Rule.CommissionValue)
			case enums.CommissionBasisFixed:
				entry.CommissionAmount = currency.RoundCurrency(resolution.Rule.CommissionValue)
			}
			if !primarySet {
				computed.CommissionType = resolution.Rule.CommissionType
				computed.CommissionValue = resolution.Rule.CommissionValue
				primarySet = true
			}
		}

		computed.CommissionAmount = computed.CommissionAmount.Add(entry.CommissionAmount)
		computed.Items[i] = entry
	}
	computed.CommissionAmount = currency.RoundCurrency(computed.CommissionAmount)
	return computed
}

// ToItemEarnings converts the computed breakdown into persistence rows
// for the given earning.
func (c Computed) ToItemEarnings(earningID uuid.UUID) []models.ItemEarning {
	out := make([]models.ItemEarning, len(c.Items))
	for i, item := range c.Items {
		out[i] = models.ItemEarning{
			EarningID:        earningID,
			OrderItemID:      item.OrderItemID,
			ItemSubtotal:     item.Subtotal,
			ItemDiscount:     item.Discount,
			ItemValue:        item.Value,
			CommissionType:   item.CommissionType,
			CommissionValue:  item.CommissionValue,
			CommissionAmount: item.CommissionAmount,
			CommissionSource: item.Source,
			IsCouponEligible: item.CouponEligible,
			CouponScope:      item.CouponScope,
		}
	}
	return out
}
