package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lojinha-app/lojinha-backend/pkg/enums"
)

// ItemEarning breaks an affiliate earning down to one order line.
// The item commissions of an earning sum to its order-level amount
// within rounding tolerance.
type ItemEarning struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EarningID        uuid.UUID              `gorm:"column:earning_id;type:uuid;not null;index"`
	OrderItemID      uuid.UUID              `gorm:"column:order_item_id;type:uuid;not null"`
	ItemSubtotal     decimal.Decimal        `gorm:"column:item_subtotal;type:numeric(12,2);not null"`
	ItemDiscount     decimal.Decimal        `gorm:"column:item_discount;type:numeric(12,2);not null;default:0"`
	ItemValue        decimal.Decimal        `gorm:"column:item_value;type:numeric(12,2);not null"`
	CommissionType   enums.CommissionBasis  `gorm:"column:commission_type;type:text;not null"`
	CommissionValue  decimal.Decimal        `gorm:"column:commission_value;type:numeric(12,2);not null"`
	CommissionAmount decimal.Decimal        `gorm:"column:commission_amount;type:numeric(12,2);not null"`
	CommissionSource enums.CommissionSource `gorm:"column:commission_source;type:text;not null"`
	IsCouponEligible bool                   `gorm:"column:is_coupon_eligible;not null;default:false"`
	CouponScope      *string                `gorm:"column:coupon_scope"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
}
