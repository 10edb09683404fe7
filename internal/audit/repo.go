package audit

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lojinha-app/lojinha-backend/pkg/db/models"
	"github.com/lojinha-app/lojinha-backend/pkg/pagination"
)

// Repository manages the append-only commission audit trail. Rows are
// never updated or deleted.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Append(ctx context.Context, entry *models.CommissionAuditLog) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.CommissionAuditLog, error)
	ListByStore(ctx context.Context, params ListAuditParams) ([]models.CommissionAuditLog, *pagination.Cursor, error)
	AllByStore(ctx context.Context, storeID uuid.UUID) ([]models.CommissionAuditLog, error)
}

// ListAuditParams filters the audit listing for one store.
type ListAuditParams struct {
	StoreID     uuid.UUID
	AffiliateID uuid.UUID
	Limit       int
	Cursor      *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an audit repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Append(ctx context.Context, entry *models.CommissionAuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.CommissionAuditLog, error) {
	var entries []models.CommissionAuditLog
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListByStore(ctx context.Context, params ListAuditParams) ([]models.CommissionAuditLog, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).
		Model(&models.CommissionAuditLog{}).
		Where("store_id = ?", params.StoreID)
	if params.AffiliateID != uuid.Nil {
		query = query.Where("affiliate_id = ?", params.AffiliateID)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var entries []models.CommissionAuditLog
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, nil, err
	}

	if len(entries) > normalized {
		next := entries[normalized]
		entries = entries[:normalized]
		return entries, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return entries, nil, nil
}

func (r *repository) AllByStore(ctx context.Context, storeID uuid.UUID) ([]models.CommissionAuditLog, error) {
	var entries []models.CommissionAuditLog
	if err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
