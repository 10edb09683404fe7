package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lojinha-app/lojinha-backend/pkg/types"
)

// OrderItem persists one cart line exactly as it was sold.
type OrderItem struct {
	ID               uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID        `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID        string           `gorm:"column:product_id;not null"`
	ProductName      string           `gorm:"column:product_name;not null"`
	CategoryName     string           `gorm:"column:category_name;not null"`
	UnitPrice        decimal.Decimal  `gorm:"column:unit_price;type:numeric(12,2);not null"`
	PromotionalPrice *decimal.Decimal `gorm:"column:promotional_price;type:numeric(12,2)"`
	Quantity         int              `gorm:"column:quantity;not null"`
	Addons           []types.Addon    `gorm:"column:addons;type:jsonb;serializer:json"`
	Flavors          []string         `gorm:"column:flavors;type:jsonb;serializer:json"`
	SelectedSize     *types.Variant   `gorm:"column:selected_size;type:jsonb;serializer:json"`
	SelectedColor    *string          `gorm:"column:selected_color"`
	Subtotal         decimal.Decimal  `gorm:"column:subtotal;type:numeric(12,2);not null"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime"`
}

// ToCartItem rebuilds the checkout-time view of the line for the
// allocation and commission computations.
func (i OrderItem) ToCartItem() types.CartItem {
	return types.CartItem{
		ProductID:        i.ProductID,
		ProductName:      i.ProductName,
		UnitPrice:        i.UnitPrice,
		PromotionalPrice: i.PromotionalPrice,
		Quantity:         i.Quantity,
		CategoryName:     i.CategoryName,
		Addons:           i.Addons,
		Flavors:          i.Flavors,
		SelectedSize:     i.SelectedSize,
		SelectedColor:    i.SelectedColor,
	}
}
