package coupons

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lojinha-app/lojinha-backend/pkg/db/models"
	"github.com/lojinha-app/lojinha-backend/pkg/enums"
	pkgerrors "github.com/lojinha-app/lojinha-backend/pkg/errors"
	"github.com/lojinha-app/lojinha-backend/pkg/pagination"
	"github.com/lojinha-app/lojinha-backend/pkg/types"
)

// ReasonNotFound is reported when no coupon matches the supplied code.
const ReasonNotFound InvalidReason = "coupon_not_found"

// Service defines merchant coupon management and checkout-time
// validation.
type Service interface {
	Create(ctx context.Context, input CreateCouponInput) (*models.Coupon, error)
	Get(ctx context.Context, storeID, couponID uuid.UUID) (*models.Coupon, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Deactivate(ctx context.Context, storeID, couponID uuid.UUID) error
	Validate(ctx context.Context, storeID uuid.UUID, code string, orderSubtotal decimal.Decimal) (*ValidationOutcome, error)
	Preview(ctx context.Context, storeID uuid.UUID, code string, items []types.CartItem) (*Allocation, error)
	RecordUsage(ctx context.Context, couponID uuid.UUID) error
}

// CreateCouponInput captures a merchant's new coupon definition.
type CreateCouponInput struct {
	StoreID       uuid.UUID           `json:"store_id"`
	Code          string              `json:"code"`
	DiscountType  enums.DiscountType  `json:"discount_type"`
	DiscountValue decimal.Decimal     `json:"discount_value"`
	Scope         enums.CouponScope   `json:"scope"`
	ProductIDs    []string            `json:"product_ids"`
	CategoryNames []string            `json:"category_names"`
	MinOrderValue *decimal.Decimal    `json:"min_order_value"`
	UsageLimit    *int                `json:"usage_limit"`
	ValidFrom     *time.Time          `json:"valid_from"`
	ValidUntil    *time.Time          `json:"valid_until"`
	Rules         []DiscountRuleInput `json:"rules"`
}

// DiscountRuleInput is one per-product or per-category override.
type DiscountRuleInput struct {
	RuleType      enums.DiscountRuleType `json:"rule_type"`
	ProductID     *string                `json:"product_id"`
	CategoryName  *string                `json:"category_name"`
	DiscountType  enums.DiscountType     `json:"discount_type"`
	DiscountValue decimal.Decimal        `json:"discount_value"`
}

// ListParams filters the coupon listing for one store.
type ListParams struct {
	StoreID    uuid.UUID
	Limit      int
	Cursor     string
	ActiveOnly bool
}

// ListResult wraps returned coupons and the cursor for the next page.
type ListResult struct {
	Items  []models.Coupon `json:"items"`
	Cursor string          `json:"cursor"`
}

// ValidationOutcome is the structured answer to "can this coupon be
// applied". Invalid coupons are an outcome, not an error.
type ValidationOutcome struct {
	Valid  bool           `json:"valid"`
	Reason InvalidReason  `json:"reason,omitempty"`
	Coupon *models.Coupon `json:"coupon,omitempty"`
}

type service struct {
	repo      Repository
	allocator *Allocator
	now       func() time.Time
}

// NewService wires coupon dependencies.
func NewService(repo Repository, allocator *Allocator) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "coupons repository required")
	}
	if allocator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "coupon allocator required")
	}
	return &service{repo: repo, allocator: allocator, now: time.Now}, nil
}

func (s *service) Create(ctx context.Context, input CreateCouponInput) (*models.Coupon, error) {
	if input.StoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code required")
	}
	if !input.DiscountType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid discount type")
	}
	if input.DiscountValue.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount value cannot be negative")
	}
	if input.DiscountType == enums.DiscountTypePercentage && input.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "percentage discount cannot exceed 100")
	}
	scope := input.Scope
	if scope == "" {
		scope = enums.CouponScopeAll
	}
	if !scope.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid coupon scope")
	}
	if scope == enums.CouponScopeProducts && len(input.ProductIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product scope requires product ids")
	}
	if scope == enums.CouponScopeCategories && len(input.CategoryNames) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category scope requires category names")
	}
	if input.ValidFrom != nil && input.ValidUntil != nil && input.ValidUntil.Before(*input.ValidFrom) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validity window ends before it starts")
	}

	rules := make([]models.DiscountRule, 0, len(input.Rules))
	for _, rule := range input.Rules {
		if !rule.RuleType.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid discount rule type")
		}
		if rule.RuleType == enums.DiscountRuleTypeProduct && (rule.ProductID == nil || *rule.ProductID == "") {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product rule requires a product id")
		}
		if rule.RuleType == enums.DiscountRuleTypeCategory && (rule.CategoryName == nil || *rule.CategoryName == "") {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category rule requires a category name")
		}
		if !rule.DiscountType.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid discount rule discount type")
		}
		if rule.DiscountValue.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount rule value cannot be negative")
		}
		rules = append(rules, models.DiscountRule{
			RuleType:      rule.RuleType,
			ProductID:     rule.ProductID,
			CategoryName:  rule.CategoryName,
			DiscountType:  rule.DiscountType,
			DiscountValue: rule.DiscountValue,
		})
	}

	coupon := &models.Coupon{
		StoreID:       input.StoreID,
		Code:          code,
		DiscountType:  input.DiscountType,
		DiscountValue: input.DiscountValue,
		Scope:         scope,
		ProductIDs:    input.ProductIDs,
		CategoryNames: input.CategoryNames,
		MinOrderValue: input.MinOrderValue,
		UsageLimit:    input.UsageLimit,
		ValidFrom:     input.ValidFrom,
		ValidUntil:    input.ValidUntil,
		Active:        true,
		Rules:         rules,
	}
	if err := s.repo.Create(ctx, coupon); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create coupon")
	}
	return coupon, nil
}

func (s *service) Get(ctx context.Context, storeID, couponID uuid.UUID) (*models.Coupon, error) {
	coupon, err := s.fetch(ctx, storeID, couponID)
	if err != nil {
		return nil, err
	}
	return coupon, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.StoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	query := ListCouponsParams{
		StoreID:    params.StoreID,
		Limit:      params.Limit,
		ActiveOnly: params.ActiveOnly,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListByStore(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list coupons")
	}
	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) Deactivate(ctx context.Context, storeID, couponID uuid.UUID) error {
	coupon, err := s.fetch(ctx, storeID, couponID)
	if err != nil {
		return err
	}
	if !coupon.Active {
		return nil
	}
	coupon.Active = false
	if err := s.repo.Update(ctx, coupon); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate coupon")
	}
	return nil
}

func (s *service) Validate(ctx context.Context, storeID uuid.UUID, code string, orderSubtotal decimal.Decimal) (*ValidationOutcome, error) {
	coupon, outcome, err := s.lookup(ctx, storeID, code)
	if err != nil || outcome != nil {
		return outcome, err
	}
	if reason := s.allocator.CheckValidity(*coupon, s.now(), orderSubtotal); reason != "" {
		return &ValidationOutcome{Valid: false, Reason: reason}, nil
	}
	return &ValidationOutcome{Valid: true, Coupon: coupon}, nil
}

func (s *service) Preview(ctx context.Context, storeID uuid.UUID, code string, items []types.CartItem) (*Allocation, error) {
	coupon, outcome, err := s.lookup(ctx, storeID, code)
	if err != nil {
		return nil, err
	}
	if outcome != nil {
		return &Allocation{Invalid: outcome.Reason, Items: []ItemAllocation{}}, nil
	}
	allocation := s.allocator.Allocate(items, *coupon, s.now())
	return &allocation, nil
}

func (s *service) RecordUsage(ctx context.Context, couponID uuid.UUID) error {
	if couponID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon id required")
	}
	if err := s.repo.IncrementUsage(ctx, couponID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record coupon usage")
	}
	return nil
}

func (s *service) fetch(ctx context.Context, storeID, couponID uuid.UUID) (*models.Coupon, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	if couponID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon id required")
	}
	coupon, err := s.repo.FindByID(ctx, couponID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	if coupon.StoreID != storeID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
	}
	return coupon, nil
}

// lookup resolves a code into a coupon, translating "not found" into a
// validation outcome rather than an error so checkout can explain it.
func (s *service) lookup(ctx context.Context, storeID uuid.UUID, code string) (*models.Coupon, *ValidationOutcome, error) {
	if storeID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code required")
	}
	coupon, err := s.repo.FindByStoreAndCode(ctx, storeID, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ValidationOutcome{Valid: false, Reason: ReasonNotFound}, nil
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	return coupon, nil, nil
}
