package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lojinha-app/lojinha-backend/pkg/enums"
)

// AffiliateEarning is the order-level commission owed to one affiliate
// for one order. There is at most one per (order, affiliate).
// CommissionAvailableAt is stamped when the order is delivered; until
// then the earning cannot mature.
type AffiliateEarning struct {
	ID                    uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID               uuid.UUID             `gorm:"column:order_id;type:uuid;not null;uniqueIndex:idx_earning_order_affiliate"`
	AffiliateID           uuid.UUID             `gorm:"column:affiliate_id;type:uuid;not null;uniqueIndex:idx_earning_order_affiliate;index"`
	StoreAffiliateID      uuid.UUID             `gorm:"column:store_affiliate_id;type:uuid;not null;index"`
	StoreID               uuid.UUID             `gorm:"column:store_id;type:uuid;not null;index"`
	CommissionAmount      decimal.Decimal       `gorm:"column:commission_amount;type:numeric(12,2);not null"`
	CommissionType        enums.CommissionBasis `gorm:"column:commission_type;type:text;not null"`
	CommissionValue       decimal.Decimal       `gorm:"column:commission_value;type:numeric(12,2);not null"`
	OrderTotal            decimal.Decimal       `gorm:"column:order_total;type:numeric(12,2);not null"`
	Status                enums.EarningStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	CommissionAvailableAt *time.Time            `gorm:"column:commission_available_at"`
	Items                 []ItemEarning         `gorm:"foreignKey:EarningID;constraint:OnDelete:CASCADE"`
	CreatedAt             time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
