package withdrawals

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lojinha-app/lojinha-backend/pkg/db/models"
	"github.com/lojinha-app/lojinha-backend/pkg/enums"
	"github.com/lojinha-app/lojinha-backend/pkg/pagination"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.WithdrawalRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error)
	ListByAffiliate(ctx context.Context, params ListWithdrawalsParams) ([]models.WithdrawalRequest, *pagination.Cursor, error)
	ListByStore(ctx context.Context, params ListWithdrawalsParams) ([]models.WithdrawalRequest, *pagination.Cursor, error)
	Update(ctx context.Context, request *models.WithdrawalRequest) error
}

// ListWithdrawalsParams filters withdrawal listings. Status empty means
// every status.
type ListWithdrawalsParams struct {
	AffiliateID uuid.UUID
	StoreID     uuid.UUID
	Status      enums.WithdrawalStatus
	Limit       int
	Cursor      *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a withdrawal repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, request *models.WithdrawalRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	var request models.WithdrawalRequest
	if err := r.db.WithContext(ctx).First(&request, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) ListByAffiliate(ctx context.Context, params ListWithdrawalsParams) ([]models.WithdrawalRequest, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.WithdrawalRequest{}).
		Where("affiliate_id = ?", params.AffiliateID)
	if params.StoreID != uuid.Nil {
		query = query.Where("store_id = ?", params.StoreID)
	}
	return r.list(query, params)
}

func (r *repository) ListByStore(ctx context.Context, params ListWithdrawalsParams) ([]models.WithdrawalRequest, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.WithdrawalRequest{}).
		Where("store_id = ?", params.StoreID)
	return r.list(query, params)
}

func (r *repository) list(query *gorm.DB, params ListWithdrawalsParams) ([]models.WithdrawalRequest, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var requests []models.WithdrawalRequest
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&requests).Error; err != nil {
		return nil, nil, err
	}

	if len(requests) > normalized {
		next := requests[normalized]
		requests = requests[:normalized]
		return requests, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return requests, nil, nil
}

func (r *repository) Update(ctx context.Context, request *models.WithdrawalRequest) error {
	return r.db.WithContext(ctx).Save(request).Error
}
