package commission

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lojinha-app/lojinha-backend/internal/coupons"
	"github.com/lojinha-app/lojinha-backend/pkg/db/models"
	"github.com/lojinha-app/lojinha-backend/pkg/enums"
	"github.com/lojinha-app/lojinha-backend/pkg/types"
)

var computeNow = time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)

// Three lines totaling 410: 200 (with addons), 60 (promotional price),
// 150 (selected size price).
func fixtureOrderItems() []models.OrderItem {
	promo := dec("20")
	return []models.OrderItem{
		{
			ID:           uuid.New(),
			ProductID:    "product-1",
			ProductName:  "Pizza Grande",
			UnitPrice:    dec("90"),
			Quantity:     2,
			CategoryName: "categoria1",
			Addons:       []types.Addon{{Name: "Borda Recheada", Price: dec("10"), Quantity: 2}},
		},
		{
			ID:               uuid.New(),
			ProductID:        "product-2",
			ProductName:      "Refrigerante 2L",
			UnitPrice:        dec("25"),
			PromotionalPrice: &promo,
			Quantity:         3,
			CategoryName:     "categoria2",
		},
		{
			ID:           uuid.New(),
			ProductID:    "product-3",
			ProductName:  "Pizza Doce",
			UnitPrice:    dec("60"),
			Quantity:     2,
			CategoryName: "categoria2",
			SelectedSize: &types.Variant{Name: "Grande", Price: dec("75")},
		},
	}
}

func defaultRule(basis enums.CommissionBasis, value string) models.CommissionRule {
	return models.CommissionRule{
		ID:              uuid.New(),
		AppliesTo:       enums.CommissionAppliesToDefault,
		CommissionType:  basis,
		CommissionValue: dec(value),
		Active:          true,
	}
}

func percentCoupon(value string) *models.Coupon {
	return &models.Coupon{
		ID:            uuid.New(),
		Code:          "DESCONTO10",
		DiscountType:  enums.DiscountTypePercentage,
		DiscountValue: dec(value),
		Scope:         enums.CouponScopeAll,
		Active:        true,
	}
}

func newTestAggregator() *Aggregator {
	return NewAggregator(coupons.NewAllocator(enums.FixedSplitProportional))
}

func TestComputePercentageOnDiscountedTotal(t *testing.T) {
	agg := newTestAggregator()
	rules := []models.CommissionRule{defaultRule(enums.CommissionBasisPercentage, "10")}

	out := agg.Compute(fixtureOrderItems(), percentCoupon("10"), rules, computeNow)

	if !out.OrderSubtotal.Equal(dec("410")) {
		t.Fatalf("order subtotal = %s, want 410", out.OrderSubtotal)
	}
	if !out.DiscountTotal.Equal(dec("41")) {
		t.Fatalf("discount total = %s, want 41", out.DiscountTotal)
	}
	if !out.OrderTotal.Equal(dec("369")) {
		t.Fatalf("order total = %s, want 369", out.OrderTotal)
	}
	if !out.CommissionAmount.Equal(dec("36.90")) {
		t.Fatalf("commission = %s, want 36.90", out.CommissionAmount)
	}
	if out.CommissionType != enums.CommissionBasisPercentage || !out.CommissionValue.Equal(dec("10")) {
		t.Fatalf("order commission type/value = %s/%s", out.CommissionType, out.CommissionValue)
	}
	for _, item := range out.Items {
		want := item.Value.Mul(dec("0.10")).Round(2)
		if !item.CommissionAmount.Equal(want) {
			t.Fatalf("item %s commission = %s, want %s", item.OrderItemID, item.CommissionAmount, want)
		}
		if !item.CouponEligible {
			t.Fatalf("all items should be coupon eligible under scope all")
		}
	}
}

func TestComputeFixedRulePerMatchingLine(t *testing.T) {
	agg := newTestAggregator()
	rules := []models.CommissionRule{
		{
			ID:              uuid.New(),
			AppliesTo:       enums.CommissionAppliesToProduct,
			ProductID:       strPtr("product-1"),
			CommissionType:  enums.CommissionBasisFixed,
			CommissionValue: dec("25"),
			Active:          true,
		},
	}

	out := agg.Compute(fixtureOrderItems(), nil, rules, computeNow)

	if !out.CommissionAmount.Equal(dec("25.00")) {
		t.Fatalf("commission = %s, want 25.00", out.CommissionAmount)
	}
	if out.CommissionType != enums.CommissionBasisFixed {
		t.Fatalf("order commission type = %s, want fixed", out.CommissionType)
	}
	if out.Items[0].Source != enums.CommissionSourceProductRule {
		t.Fatalf("item 0 source = %s, want product_rule", out.Items[0].Source)
	}
	for _, item := range out.Items[1:] {
		if !item.CommissionAmount.IsZero() || item.Source != enums.CommissionSourceNone {
			t.Fatalf("unmatched item earned %s from %s", item.CommissionAmount, item.Source)
		}
	}
}

func TestComputeIneligibleItemsKeepGrossBase(t *testing.T) {
	agg := newTestAggregator()
	coupon := percentCoupon("10")
	coupon.Scope = enums.CouponScopeCategories
	coupon.CategoryNames = []string{"categoria2"}
	rules := []models.CommissionRule{defaultRule(enums.CommissionBasisPercentage, "10")}

	out := agg.Compute(fixtureOrderItems(), coupon, rules, computeNow)

	// product-1 sits outside the coupon scope: no discount, commission
	// on the gross 200.
	first := out.Items[0]
	if first.CouponEligible {
		t.Fatalf("product-1 should be outside the coupon scope")
	}
	if !first.Discount.IsZero() {
		t.Fatalf("ineligible item discount = %s, want 0", first.Discount)
	}
	if !first.Value.Equal(dec("200")) || !first.CommissionAmount.Equal(dec("20.00")) {
		t.Fatalf("ineligible item value/commission = %s/%s, want 200/20.00", first.Value, first.CommissionAmount)
	}
	// categoria2 items keep the 10% discount before commission.
	second := out.Items[1]
	if !second.Discount.Equal(dec("6")) || !second.CommissionAmount.Equal(dec("5.40")) {
		t.Fatalf("eligible item discount/commission = %s/%s, want 6/5.40", second.Discount, second.CommissionAmount)
	}
}

func TestComputeItemAmountsSumToOrderAmount(t *testing.T) {
	agg := newTestAggregator()
	rules := []models.CommissionRule{
		defaultRule(enums.CommissionBasisPercentage, "7"),
		{
			ID:              uuid.New(),
			AppliesTo:       enums.CommissionAppliesToCategory,
			CategoryName:    strPtr("categoria2"),
			CommissionType:  enums.CommissionBasisPercentage,
			CommissionValue: dec("12.5"),
			Active:          true,
		},
	}

	out := agg.Compute(fixtureOrderItems(), percentCoupon("10"), rules, computeNow)

	sum := decimal.Zero
	for _, item := range out.Items {
		sum = sum.Add(item.CommissionAmount)
	}
	if !sum.Round(2).Equal(out.CommissionAmount) {
		t.Fatalf("item sum %s != order commission %s", sum, out.CommissionAmount)
	}
}

func TestComputeInvalidCouponZeroesDiscount(t *testing.T) {
	agg := newTestAggregator()
	coupon := percentCoupon("10")
	coupon.Active = false
	rules := []models.CommissionRule{defaultRule(enums.CommissionBasisPercentage, "10")}

	out := agg.Compute(fixtureOrderItems(), coupon, rules, computeNow)

	if out.CouponInvalid != coupons.ReasonInactive {
		t.Fatalf("invalid reason = %q, want %q", out.CouponInvalid, coupons.ReasonInactive)
	}
	if !out.DiscountTotal.IsZero() {
		t.Fatalf("invalid coupon must not discount, got %s", out.DiscountTotal)
	}
	if !out.OrderTotal.Equal(dec("410")) || !out.CommissionAmount.Equal(dec("41.00")) {
		t.Fatalf("order total/commission = %s/%s, want 410/41.00", out.OrderTotal, out.CommissionAmount)
	}
}

func TestComputeNoRulesEarnsNothing(t *testing.T) {
	agg := newTestAggregator()

	out := agg.Compute(fixtureOrderItems(), nil, nil, computeNow)

	if !out.CommissionAmount.IsZero() {
		t.Fatalf("commission without rules = %s, want 0", out.CommissionAmount)
	}
	for _, item := range out.Items {
		if item.Source != enums.CommissionSourceNone {
			t.Fatalf("item source = %s, want none", item.Source)
		}
	}
}

func TestToItemEarnings(t *testing.T) {
	agg := newTestAggregator()
	rules := []models.CommissionRule{defaultRule(enums.CommissionBasisPercentage, "10")}
	out := agg.Compute(fixtureOrderItems(), percentCoupon("10"), rules, computeNow)

	earningID := uuid.New()
	rows := out.ToItemEarnings(earningID)
	if len(rows) != len(out.Items) {
		t.Fatalf("got %d rows, want %d", len(rows), len(out.Items))
	}
	for i, row := range rows {
		if row.EarningID != earningID {
			t.Fatalf("row %d earning id mismatch", i)
		}
		if row.OrderItemID != out.Items[i].OrderItemID {
			t.Fatalf("row %d order item mismatch", i)
		}
		if !row.CommissionAmount.Equal(out.Items[i].CommissionAmount) {
			t.Fatalf("row %d amount = %s, want %s", i, row.CommissionAmount, out.Items[i].CommissionAmount)
		}
		if row.CouponScope == nil || *row.CouponScope != "all" {
			t.Fatalf("row %d coupon scope = %v, want all", i, row.CouponScope)
		}
	}
}
