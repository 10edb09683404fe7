package affiliates

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lojinha-app/lojinha-backend/pkg/db"
	"github.com/lojinha-app/lojinha-backend/pkg/db/models"
	"github.com/lojinha-app/lojinha-backend/pkg/enums"
	pkgerrors "github.com/lojinha-app/lojinha-backend/pkg/errors"
)

// Service defines affiliate registration, store linking, and commission
// rule configuration.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.Affiliate, error)
	Get(ctx context.Context, affiliateID uuid.UUID) (*models.Affiliate, error)
	LinkToStore(ctx context.Context, input LinkInput) (*models.StoreAffiliate, error)
	GetLink(ctx context.Context, storeID, affiliateID uuid.UUID) (*models.StoreAffiliate, error)
	ListStoreLinks(ctx context.Context, storeID uuid.UUID) ([]models.StoreAffiliate, error)
	AddRule(ctx context.Context, input AddRuleInput) (*models.CommissionRule, error)
	ListRules(ctx context.Context, linkID uuid.UUID) ([]models.CommissionRule, error)
	DeactivateRule(ctx context.Context, linkID, ruleID uuid.UUID) error
}

// RegisterInput captures a new affiliate signup.
type RegisterInput struct {
	Name   string  `json:"name"`
	Email  string  `json:"email"`
	PixKey *string `json:"pix_key"`
}

// LinkInput ties an affiliate to a store under a referral code.
type LinkInput struct {
	StoreID      uuid.UUID `json:"store_id"`
	AffiliateID  uuid.UUID `json:"affiliate_id"`
	ReferralCode string    `json:"referral_code"`
}

// AddRuleInput configures one commission rule on a store-affiliate link.
type AddRuleInput struct {
	StoreAffiliateID uuid.UUID                 `json:"store_affiliate_id"`
	AppliesTo        enums.CommissionAppliesTo `json:"applies_to"`
	ProductID        *string                   `json:"product_id"`
	CategoryName     *string                   `json:"category_name"`
	CommissionType   enums.CommissionBasis     `json:"commission_type"`
	CommissionValue  decimal.Decimal           `json:"commission_value"`
}

type service struct {
	repo Repository
}

// NewService wires affiliate dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "affiliates repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*models.Affiliate, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "affiliate name required")
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "valid email required")
	}

	affiliate := &models.Affiliate{
		Name:   name,
		Email:  email,
		PixKey: input.PixKey,
	}
	if err := s.repo.CreateAffiliate(ctx, affiliate); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create affiliate")
	}
	return affiliate, nil
}

func (s *service) Get(ctx context.Context, affiliateID uuid.UUID) (*models.Affiliate, error) {
	if affiliateID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "affiliate id required")
	}
	affiliate, err := s.repo.FindAffiliateByID(ctx, affiliateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "affiliate not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load affiliate")
	}
	return affiliate, nil
}

func (s *service) LinkToStore(ctx context.Context, input LinkInput) (*models.StoreAffiliate, error) {
	if input.StoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	if input.AffiliateID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "affiliate id required")
	}
	code := strings.TrimSpace(input.ReferralCode)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "referral code required")
	}

	link := &models.StoreAffiliate{
		StoreID:      input.StoreID,
		AffiliateID:  input.AffiliateID,
		ReferralCode: code,
		Active:       true,
	}
	if err := s.repo.CreateLink(ctx, link); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "affiliate already linked to this store")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create store affiliate link")
	}
	return link, nil
}

func (s *service) GetLink(ctx context.Context, storeID, affiliateID uuid.UUID) (*models.StoreAffiliate, error) {
	if storeID == uuid.Nil || affiliateID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id and affiliate id required")
	}
	link, err := s.repo.FindLink(ctx, storeID, affiliateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store affiliate link not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store affiliate link")
	}
	return link, nil
}

func (s *service) ListStoreLinks(ctx context.Context, storeID uuid.UUID) ([]models.StoreAffiliate, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	links, err := s.repo.ListLinksByStore(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list store affiliates")
	}
	return links, nil
}

func (s *service) AddRule(ctx context.Context, input AddRuleInput) (*models.CommissionRule, error) {
	if input.StoreAffiliateID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store affiliate id required")
	}
	if !input.AppliesTo.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid applies_to")
	}
	if input.AppliesTo == enums.CommissionAppliesToProduct && (input.ProductID == nil || *input.ProductID == "") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product rule requires a product id")
	}
	if input.AppliesTo == enums.CommissionAppliesToCategory && (input.CategoryName == nil || *input.CategoryName == "") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category rule requires a category name")
	}
	if !input.CommissionType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid commission type")
	}
	if input.CommissionValue.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "commission value cannot be negative")
	}
	if input.CommissionType == enums.CommissionBasisPercentage && input.CommissionValue.GreaterThan(decimal.NewFromInt(100)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "percentage commission cannot exceed 100")
	}

	if _, err := s.repo.FindLinkByID(ctx, input.StoreAffiliateID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store affiliate link not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store affiliate link")
	}

	if input.AppliesTo == enums.CommissionAppliesToDefault {
		rules, err := s.repo.ListRulesByLink(ctx, input.StoreAffiliateID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list commission rules")
		}
		for _, rule := range rules {
			if rule.Active && rule.AppliesTo == enums.CommissionAppliesToDefault {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "an active default rule already exists")
			}
		}
	}

	rule := &models.CommissionRule{
		StoreAffiliateID: input.StoreAffiliateID,
		AppliesTo:        input.AppliesTo,
		ProductID:        input.ProductID,
		CategoryName:     input.CategoryName,
		CommissionType:   input.CommissionType,
		CommissionValue:  input.CommissionValue,
		Active:           true,
	}
	if err := s.repo.CreateRule(ctx, rule); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "an active default rule already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create commission rule")
	}
	return rule, nil
}

func (s *service) ListRules(ctx context.Context, linkID uuid.UUID) ([]models.CommissionRule, error) {
	if linkID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store affiliate id required")
	}
	rules, err := s.repo.ListRulesByLink(ctx, linkID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list commission rules")
	}
	return rules, nil
}

func (s *service) DeactivateRule(ctx context.Context, linkID, ruleID uuid.UUID) error {
	if linkID == uuid.Nil || ruleID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "store affiliate id and rule id required")
	}
	rules, err := s.repo.ListRulesByLink(ctx, linkID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list commission rules")
	}
	for i := range rules {
		if rules[i].ID != ruleID {
			continue
		}
		if !rules[i].Active {
			return nil
		}
		rules[i].Active = false
		if err := s.repo.UpdateRule(ctx, &rules[i]); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate commission rule")
		}
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "commission rule not found")
}
