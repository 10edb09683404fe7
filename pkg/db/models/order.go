package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lojinha-app/lojinha-backend/pkg/enums"
)

// Order is the persisted snapshot of a placed storefront order.
type Order struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID          uuid.UUID         `gorm:"column:store_id;type:uuid;not null;index"`
	StoreAffiliateID *uuid.UUID        `gorm:"column:store_affiliate_id;type:uuid;index"`
	CouponID         *uuid.UUID        `gorm:"column:coupon_id;type:uuid"`
	CustomerName     string            `gorm:"column:customer_name;not null"`
	Status           enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Subtotal         decimal.Decimal   `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DiscountTotal    decimal.Decimal   `gorm:"column:discount_total;type:numeric(12,2);not null;default:0"`
	Total            decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	DeliveredAt      *time.Time        `gorm:"column:delivered_at"`
	CanceledAt       *time.Time        `gorm:"column:canceled_at"`
	Items            []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
