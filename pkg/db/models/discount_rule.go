package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lojinha-app/lojinha-backend/pkg/enums"
)

// DiscountRule overrides its coupon's blanket discount for one product
// or one category. Exactly one of ProductID / CategoryName is set,
// matching RuleType.
type DiscountRule struct {
	ID            uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CouponID      uuid.UUID              `gorm:"column:coupon_id;type:uuid;not null;index"`
	RuleType      enums.DiscountRuleType `gorm:"column:rule_type;type:text;not null"`
	ProductID     *string                `gorm:"column:product_id"`
	CategoryName  *string                `gorm:"column:category_name"`
	DiscountType  enums.DiscountType     `gorm:"column:discount_type;type:text;not null"`
	DiscountValue decimal.Decimal        `gorm:"column:discount_value;type:numeric(12,2);not null"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime"`
}

// Matches reports whether the rule applies to the given product/category.
func (r DiscountRule) Matches(productID, categoryName string) bool {
	switch r.RuleType {
	case enums.DiscountRuleTypeProduct:
		return r.ProductID != nil && *r.ProductID == productID
	case enums.DiscountRuleTypeCategory:
		return r.CategoryName != nil && *r.CategoryName == categoryName
	default:
		return false
	}
}
