package coupons

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lojinha-app/lojinha-backend/pkg/db/models"
	"github.com/lojinha-app/lojinha-backend/pkg/pagination"
)

// Repository manages coupon and discount rule persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, coupon *models.Coupon) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	FindByStoreAndCode(ctx context.Context, storeID uuid.UUID, code string) (*models.Coupon, error)
	ListByStore(ctx context.Context, params ListCouponsParams) ([]models.Coupon, *pagination.Cursor, error)
	Update(ctx context.Context, coupon *models.Coupon) error
	IncrementUsage(ctx context.Context, id uuid.UUID) error
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

// ListCouponsParams filters the store coupon listing.
type ListCouponsParams struct {
	StoreID    uuid.UUID
	Limit      int
	Cursor     *pagination.Cursor
	ActiveOnly bool
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a coupon repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, coupon *models.Coupon) error {
	return r.db.WithContext(ctx).Create(coupon).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.WithContext(ctx).
		Preload("Rules").
		Where("id = ?", id).
		First(&coupon).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *repository) FindByStoreAndCode(ctx context.Context, storeID uuid.UUID, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.WithContext(ctx).
		Preload("Rules").
		Where("store_id = ? AND code = ?", storeID, code).
		First(&coupon).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *repository) ListByStore(ctx context.Context, params ListCouponsParams) ([]models.Coupon, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Coupon{}).Where("store_id = ?", params.StoreID)
	if params.ActiveOnly {
		query = query.Where("active = ?", true)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var coupons []models.Coupon
	if err := query.Preload("Rules").Order("created_at DESC, id DESC").Limit(limit).Find(&coupons).Error; err != nil {
		return nil, nil, err
	}

	if len(coupons) > normalized {
		next := coupons[normalized]
		coupons = coupons[:normalized]
		return coupons, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return coupons, nil, nil
}

func (r *repository) Update(ctx context.Context, coupon *models.Coupon) error {
	return r.db.WithContext(ctx).Save(coupon).Error
}

func (r *repository) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("id = ?", id).
		UpdateColumn("used_count", gorm.Expr("used_count + 1")).Error
}

func (r *repository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("active = ? AND valid_until IS NOT NULL AND valid_until < ?", true, now).
		UpdateColumn("active", false)
	return result.RowsAffected, result.Error
}
