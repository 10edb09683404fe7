package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CommissionAuditLog is an append-only record of one commission
// recalculation that changed the amount. Rows are never mutated or
// deleted; they exist for affiliate-facing transparency reporting.
type CommissionAuditLog struct {
	ID                  uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID             uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	EarningID           uuid.UUID       `gorm:"column:earning_id;type:uuid;not null;index"`
	StoreID             uuid.UUID       `gorm:"column:store_id;type:uuid;not null;index"`
	AffiliateID         uuid.UUID       `gorm:"column:affiliate_id;type:uuid;not null;index"`
	OldOrderTotal       decimal.Decimal `gorm:"column:old_order_total;type:numeric(12,2);not null"`
	NewOrderTotal       decimal.Decimal `gorm:"column:new_order_total;type:numeric(12,2);not null"`
	OldCouponDiscount   decimal.Decimal `gorm:"column:old_coupon_discount;type:numeric(12,2);not null"`
	NewCouponDiscount   decimal.Decimal `gorm:"column:new_coupon_discount;type:numeric(12,2);not null"`
	OldCommissionAmount decimal.Decimal `gorm:"column:old_commission_amount;type:numeric(12,2);not null"`
	NewCommissionAmount decimal.Decimal `gorm:"column:new_commission_amount;type:numeric(12,2);not null"`
	OldItemCount        int             `gorm:"column:old_item_count;not null"`
	NewItemCount        int             `gorm:"column:new_item_count;not null"`
	Difference          decimal.Decimal `gorm:"column:difference;type:numeric(12,2);not null"`
	Reason              string          `gorm:"column:reason;not null"`
	TriggeredBy         string          `gorm:"column:triggered_by;not null"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime"`
}
