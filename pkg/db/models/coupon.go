package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/lojinha-app/lojinha-backend/pkg/enums"
)

// Coupon is a merchant-configured discount. Scope restricts which items
// it touches; DiscountRules override the blanket type/value per product
// or category.
type Coupon struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID       uuid.UUID          `gorm:"column:store_id;type:uuid;not null;uniqueIndex:idx_coupon_store_code"`
	Code          string             `gorm:"column:code;not null;uniqueIndex:idx_coupon_store_code"`
	DiscountType  enums.DiscountType `gorm:"column:discount_type;type:text;not null"`
	DiscountValue decimal.Decimal    `gorm:"column:discount_value;type:numeric(12,2);not null"`
	Scope         enums.CouponScope  `gorm:"column:scope;type:text;not null;default:'all'"`
	ProductIDs    pq.StringArray     `gorm:"column:product_ids;type:text[]"`
	CategoryNames pq.StringArray     `gorm:"column:category_names;type:text[]"`
	MinOrderValue *decimal.Decimal   `gorm:"column:min_order_value;type:numeric(12,2)"`
	UsageLimit    *int               `gorm:"column:usage_limit"`
	UsedCount     int                `gorm:"column:used_count;not null;default:0"`
	ValidFrom     *time.Time         `gorm:"column:valid_from"`
	ValidUntil    *time.Time         `gorm:"column:valid_until"`
	Active        bool               `gorm:"column:active;not null;default:true"`
	Rules         []DiscountRule     `gorm:"foreignKey:CouponID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
