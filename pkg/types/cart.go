package types

import (
	"github.com/shopspring/decimal"

	"github.com/lojinha-app/lojinha-backend/pkg/currency"
)

// Addon is an extra added to a cart item (e.g. toppings).
type Addon struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// Variant is a selected size/option carrying its own price.
type Variant struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// CartItem is the checkout-time snapshot of one order line. It exists
// only during checkout; the persisted copy lives in OrderItem.
type CartItem struct {
	ProductID        string           `json:"product_id"`
	ProductName      string           `json:"product_name"`
	UnitPrice        decimal.Decimal  `json:"unit_price"`
	PromotionalPrice *decimal.Decimal `json:"promotional_price,omitempty"`
	Quantity         int              `json:"quantity"`
	CategoryName     string           `json:"category_name"`
	Addons           []Addon          `json:"addons,omitempty"`
	Flavors          []string         `json:"flavors,omitempty"`
	SelectedSize     *Variant         `json:"selected_size,omitempty"`
	SelectedColor    *string          `json:"selected_color,omitempty"`
}

// EffectiveUnitPrice returns the price one unit actually sells for: the
// selected size price when present, undercut by the promotional price
// when that is lower.
func (i CartItem) EffectiveUnitPrice() decimal.Decimal {
	base := i.UnitPrice
	if i.SelectedSize != nil && i.SelectedSize.Price.IsPositive() {
		base = i.SelectedSize.Price
	}
	if i.PromotionalPrice != nil && i.PromotionalPrice.LessThan(base) {
		base = *i.PromotionalPrice
	}
	return base
}

// Subtotal is effective unit price times quantity plus addon totals,
// rounded to cents.
func (i CartItem) Subtotal() decimal.Decimal {
	qty := decimal.NewFromInt(int64(i.Quantity))
	total := i.EffectiveUnitPrice().Mul(qty)
	for _, addon := range i.Addons {
		total = total.Add(addon.Price.Mul(decimal.NewFromInt(int64(addon.Quantity))))
	}
	return currency.RoundCurrency(total)
}

// CartSubtotal sums the subtotals of all items.
func CartSubtotal(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}
