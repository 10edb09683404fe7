package earnings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lojinha-app/lojinha-backend/pkg/db/models"
	"github.com/lojinha-app/lojinha-backend/pkg/enums"
	"github.com/lojinha-app/lojinha-backend/pkg/pagination"
)

// Repository manages affiliate earning persistence. Replace swaps an
// earning's item breakdown atomically; callers run it inside the
// transaction that updates the order.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, earning *models.AffiliateEarning) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.AffiliateEarning, error)
	FindByOrderAndAffiliate(ctx context.Context, orderID, affiliateID uuid.UUID) (*models.AffiliateEarning, error)
	ListByAffiliate(ctx context.Context, params ListEarningsParams) ([]models.AffiliateEarning, *pagination.Cursor, error)
	ListMaturedUnpaid(ctx context.Context, affiliateID, storeID uuid.UUID, asOf time.Time) ([]models.AffiliateEarning, error)
	Update(ctx context.Context, earning *models.AffiliateEarning) error
	ReplaceItems(ctx context.Context, earningID uuid.UUID, items []models.ItemEarning) error
	StampAvailability(ctx context.Context, orderID uuid.UUID, availableAt time.Time) (int64, error)
	MarkPaid(ctx context.Context, ids []uuid.UUID) (int64, error)
	SumMaturedUnpaid(ctx context.Context, affiliateID, storeID uuid.UUID, asOf time.Time) (decimal.Decimal, error)
	CountMaturingBetween(ctx context.Context, from, to time.Time) (int64, error)
}

// ListEarningsParams filters an affiliate's earning history.
type ListEarningsParams struct {
	AffiliateID uuid.UUID
	StoreID     uuid.UUID
	Limit       int
	Cursor      *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an earnings repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, earning *models.AffiliateEarning) error {
	return r.db.WithContext(ctx).Create(earning).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.AffiliateEarning, error) {
	var earning models.AffiliateEarning
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&earning).Error; err != nil {
		return nil, err
	}
	return &earning, nil
}

func (r *repository) FindByOrderAndAffiliate(ctx context.Context, orderID, affiliateID uuid.UUID) (*models.AffiliateEarning, error) {
	var earning models.AffiliateEarning
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("order_id = ? AND affiliate_id = ?", orderID, affiliateID).
		First(&earning).Error; err != nil {
		return nil, err
	}
	return &earning, nil
}

func (r *repository) ListByAffiliate(ctx context.Context, params ListEarningsParams) ([]models.AffiliateEarning, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).
		Model(&models.AffiliateEarning{}).
		Where("affiliate_id = ?", params.AffiliateID)
	if params.StoreID != uuid.Nil {
		query = query.Where("store_id = ?", params.StoreID)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var earnings []models.AffiliateEarning
	if err := query.Preload("Items").Order("created_at DESC, id DESC").Limit(limit).Find(&earnings).Error; err != nil {
		return nil, nil, err
	}

	if len(earnings) > normalized {
		next := earnings[normalized]
		earnings = earnings[:normalized]
		return earnings, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return earnings, nil, nil
}

func (r *repository) ListMaturedUnpaid(ctx context.Context, affiliateID, storeID uuid.UUID, asOf time.Time) ([]models.AffiliateEarning, error) {
	var earnings []models.AffiliateEarning
	if err := r.db.WithContext(ctx).
		Where("affiliate_id = ? AND store_id = ?", affiliateID, storeID).
		Where("status <> ?", enums.EarningStatusPaid).
		Where("commission_available_at IS NOT NULL AND commission_available_at <= ?", asOf).
		Order("commission_available_at ASC").
		Find(&earnings).Error; err != nil {
		return nil, err
	}
	return earnings, nil
}

func (r *repository) Update(ctx context.Context, earning *models.AffiliateEarning) error {
	return r.db.WithContext(ctx).Omit("Items").Save(earning).Error
}

func (r *repository) ReplaceItems(ctx context.Context, earningID uuid.UUID, items []models.ItemEarning) error {
	if err := r.db.WithContext(ctx).
		Where("earning_id = ?", earningID).
		Delete(&models.ItemEarning{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].EarningID = earningID
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) StampAvailability(ctx context.Context, orderID uuid.UUID, availableAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.AffiliateEarning{}).
		Where("order_id = ? AND commission_available_at IS NULL", orderID).
		UpdateColumn("commission_available_at", availableAt)
	return result.RowsAffected, result.Error
}

func (r *repository) MarkPaid(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.AffiliateEarning{}).
		Where("id IN ?", ids).
		Where("status <> ?", enums.EarningStatusPaid).
		UpdateColumn("status", enums.EarningStatusPaid)
	return result.RowsAffected, result.Error
}

func (r *repository) SumMaturedUnpaid(ctx context.Context, affiliateID, storeID uuid.UUID, asOf time.Time) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	if err := r.db.WithContext(ctx).
		Model(&models.AffiliateEarning{}).
		Select("SUM(commission_amount)").
		Where("affiliate_id = ? AND store_id = ?", affiliateID, storeID).
		Where("status <> ?", enums.EarningStatusPaid).
		Where("commission_available_at IS NOT NULL AND commission_available_at <= ?", asOf).
		Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

func (r *repository) CountMaturingBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.AffiliateEarning{}).
		Where("status = ?", enums.EarningStatusPending).
		Where("commission_available_at IS NOT NULL AND commission_available_at BETWEEN ? AND ?", from, to).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
