package affiliates

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lojinha-app/lojinha-backend/pkg/db/models"
)

// Repository manages affiliates, their store links, and the commission
// rules configured on those links.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateAffiliate(ctx context.Context, affiliate *models.Affiliate) error
	FindAffiliateByID(ctx context.Context, id uuid.UUID) (*models.Affiliate, error)
	FindAffiliateByEmail(ctx context.Context, email string) (*models.Affiliate, error)
	CreateLink(ctx context.Context, link *models.StoreAffiliate) error
	FindLinkByID(ctx context.Context, id uuid.UUID) (*models.StoreAffiliate, error)
	FindLink(ctx context.Context, storeID, affiliateID uuid.UUID) (*models.StoreAffiliate, error)
	FindLinkByReferralCode(ctx context.Context, storeID uuid.UUID, code string) (*models.StoreAffiliate, error)
	ListLinksByStore(ctx context.Context, storeID uuid.UUID) ([]models.StoreAffiliate, error)
	CreateRule(ctx context.Context, rule *models.CommissionRule) error
	ListRulesByLink(ctx context.Context, linkID uuid.UUID) ([]models.CommissionRule, error)
	UpdateRule(ctx context.Context, rule *models.CommissionRule) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an affiliate repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateAffiliate(ctx context.Context, affiliate *models.Affiliate) error {
	return r.db.WithContext(ctx).Create(affiliate).Error
}

func (r *repository) FindAffiliateByID(ctx context.Context, id uuid.UUID) (*models.Affiliate, error) {
	var affiliate models.Affiliate
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&affiliate).Error; err != nil {
		return nil, err
	}
	return &affiliate, nil
}

func (r *repository) FindAffiliateByEmail(ctx context.Context, email string) (*models.Affiliate, error) {
	var affiliate models.Affiliate
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&affiliate).Error; err != nil {
		return nil, err
	}
	return &affiliate, nil
}

func (r *repository) CreateLink(ctx context.Context, link *models.StoreAffiliate) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *repository) FindLinkByID(ctx context.Context, id uuid.UUID) (*models.StoreAffiliate, error) {
	var link models.StoreAffiliate
	if err := r.db.WithContext(ctx).
		Preload("Rules").
		Where("id = ?", id).
		First(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *repository) FindLink(ctx context.Context, storeID, affiliateID uuid.UUID) (*models.StoreAffiliate, error) {
	var link models.StoreAffiliate
	if err := r.db.WithContext(ctx).
		Preload("Rules").
		Where("store_id = ? AND affiliate_id = ?", storeID, affiliateID).
		First(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *repository) FindLinkByReferralCode(ctx context.Context, storeID uuid.UUID, code string) (*models.StoreAffiliate, error) {
	var link models.StoreAffiliate
	if err := r.db.WithContext(ctx).
		Preload("Rules").
		Where("store_id = ? AND referral_code = ?", storeID, code).
		First(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *repository) ListLinksByStore(ctx context.Context, storeID uuid.UUID) ([]models.StoreAffiliate, error) {
	var links []models.StoreAffiliate
	if err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("created_at ASC").
		Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

func (r *repository) CreateRule(ctx context.Context, rule *models.CommissionRule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

func (r *repository) ListRulesByLink(ctx context.Context, linkID uuid.UUID) ([]models.CommissionRule, error) {
	var rules []models.CommissionRule
	if err := r.db.WithContext(ctx).
		Where("store_affiliate_id = ?", linkID).
		Order("created_at ASC").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *repository) UpdateRule(ctx context.Context, rule *models.CommissionRule) error {
	return r.db.WithContext(ctx).Save(rule).Error
}
