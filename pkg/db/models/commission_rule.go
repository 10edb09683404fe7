package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lojinha-app/lojinha-backend/pkg/enums"
)

// CommissionRule defines how much commission an affiliate earns on a
// product, a category, or by store default. Precedence at resolution is
// product > category > default; at most one default rule per link.
type CommissionRule struct {
	ID               uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreAffiliateID uuid.UUID                 `gorm:"column:store_affiliate_id;type:uuid;not null;index"`
	AppliesTo        enums.CommissionAppliesTo `gorm:"column:applies_to;type:text;not null"`
	ProductID        *string                   `gorm:"column:product_id"`
	CategoryName     *string                   `gorm:"column:category_name"`
	CommissionType   enums.CommissionBasis     `gorm:"column:commission_type;type:text;not null"`
	CommissionValue  decimal.Decimal           `gorm:"column:commission_value;type:numeric(12,2);not null"`
	Active           bool                      `gorm:"column:active;not null;default:true"`
	CreatedAt        time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}
