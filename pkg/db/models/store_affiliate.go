package models

import (
	"time"

	"github.com/google/uuid"
)

// StoreAffiliate links one affiliate to one store's commission
// configuration. Commission rules hang off this link, not the affiliate.
type StoreAffiliate struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID      uuid.UUID        `gorm:"column:store_id;type:uuid;not null;uniqueIndex:idx_store_affiliate"`
	AffiliateID  uuid.UUID        `gorm:"column:affiliate_id;type:uuid;not null;uniqueIndex:idx_store_affiliate"`
	ReferralCode string           `gorm:"column:referral_code;not null"`
	Active       bool             `gorm:"column:active;not null;default:true"`
	Rules        []CommissionRule `gorm:"foreignKey:StoreAffiliateID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
