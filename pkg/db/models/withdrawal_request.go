package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lojinha-app/lojinha-backend/pkg/enums"
)

// UniquePendingWithdrawalConstraint names the partial unique index that
// enforces at most one pending request per (affiliate, store). The
// check-then-insert race is settled by the database, not by reads.
const UniquePendingWithdrawalConstraint = "idx_withdrawal_one_pending"

// WithdrawalRequest is an affiliate's request to receive their matured
// commission balance via PIX.
type WithdrawalRequest struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AffiliateID uuid.UUID              `gorm:"column:affiliate_id;type:uuid;not null;index"`
	StoreID     uuid.UUID              `gorm:"column:store_id;type:uuid;not null;index"`
	Amount      decimal.Decimal        `gorm:"column:amount;type:numeric(12,2);not null"`
	Status      enums.WithdrawalStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	PixKey      string                 `gorm:"column:pix_key;not null"`
	Notes       *string                `gorm:"column:notes"`
	AdminNotes  *string                `gorm:"column:admin_notes"`
	ResolvedAt  *time.Time             `gorm:"column:resolved_at"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
