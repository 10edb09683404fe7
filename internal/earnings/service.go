package earnings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lojinha-app/lojinha-backend/internal/maturation"
	"github.com/lojinha-app/lojinha-backend/pkg/currency"
	"github.com/lojinha-app/lojinha-backend/pkg/db/models"
	"github.com/lojinha-app/lojinha-backend/pkg/enums"
	pkgerrors "github.com/lojinha-app/lojinha-backend/pkg/errors"
	"github.com/lojinha-app/lojinha-backend/pkg/pagination"
)

// Service exposes the affiliate-facing earning views. Earning status is
// derived from the maturation clock at read time; the stored status
// only distinguishes paid from unpaid.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Get(ctx context.Context, affiliateID, earningID uuid.UUID) (*EarningView, error)
	AvailableBalance(ctx context.Context, affiliateID, storeID uuid.UUID) (*Balance, error)
	StampAvailability(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, deliveredAt time.Time, maturityDays int) (time.Time, error)
}

// ListParams filters the earning history listing.
type ListParams struct {
	AffiliateID uuid.UUID
	StoreID     uuid.UUID
	Limit       int
	Cursor      string
}

// EarningView decorates a stored earning with its derived status and
// maturation countdown.
type EarningView struct {
	models.AffiliateEarning
	DerivedStatus enums.EarningStatus  `json:"derived_status"`
	Remaining     maturation.Remaining `json:"remaining"`
	FormattedBRL  string               `json:"formatted_amount"`
}

// ListResult wraps returned earnings and the cursor for the next page.
type ListResult struct {
	Items  []EarningView `json:"items"`
	Cursor string        `json:"cursor"`
}

// Balance is the matured, unpaid commission total for one
// affiliate/store pair.
type Balance struct {
	AffiliateID  uuid.UUID       `json:"affiliate_id"`
	StoreID      uuid.UUID       `json:"store_id"`
	Available    decimal.Decimal `json:"available"`
	FormattedBRL string          `json:"formatted_available"`
	AsOf         time.Time       `json:"as_of"`
}

type service struct {
	repo  Repository
	clock *maturation.Clock
	now   func() time.Time
}

// NewService wires earning dependencies.
func NewService(repo Repository, clock *maturation.Clock) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "earnings repository required")
	}
	if clock == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "maturation clock required")
	}
	return &service{repo: repo, clock: clock, now: time.Now}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.AffiliateID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "affiliate id required")
	}
	query := ListEarningsParams{
		AffiliateID: params.AffiliateID,
		StoreID:     params.StoreID,
		Limit:       params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListByAffiliate(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list earnings")
	}

	views := make([]EarningView, len(rows))
	for i := range rows {
		views[i] = s.view(rows[i])
	}
	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: views, Cursor: cursor}, nil
}

func (s *service) Get(ctx context.Context, affiliateID, earningID uuid.UUID) (*EarningView, error) {
	if affiliateID == uuid.Nil || earningID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "affiliate id and earning id required")
	}
	earning, err := s.repo.FindByID(ctx, earningID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "earning not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load earning")
	}
	if earning.AffiliateID != affiliateID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "earning not found")
	}
	view := s.view(*earning)
	return &view, nil
}

// AvailableBalance re-derives availability from the clock at call time.
// Withdrawal creation must use this, never a cached status.
func (s *service) AvailableBalance(ctx context.Context, affiliateID, storeID uuid.UUID) (*Balance, error) {
	if affiliateID == uuid.Nil || storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "affiliate id and store id required")
	}
	asOf := s.now().UTC()
	total, err := s.repo.SumMaturedUnpaid(ctx, affiliateID, storeID, asOf)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum matured earnings")
	}
	total = currency.RoundCurrency(total)
	return &Balance{
		AffiliateID:  affiliateID,
		StoreID:      storeID,
		Available:    total,
		FormattedBRL: currency.FormatBRL(total),
		AsOf:         asOf,
	}, nil
}

// StampAvailability sets commission_available_at for every earning of a
// delivered order. Runs inside the caller's delivery transaction.
func (s *service) StampAvailability(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, deliveredAt time.Time, maturityDays int) (time.Time, error) {
	if orderID == uuid.Nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	availableAt := s.clock.AvailableAt(deliveredAt, maturityDays)
	if _, err := s.repo.WithTx(tx).StampAvailability(ctx, orderID, availableAt); err != nil {
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stamp earning availability")
	}
	return availableAt, nil
}

func (s *service) view(earning models.AffiliateEarning) EarningView {
	derived := earning.Status
	if derived != enums.EarningStatusPaid {
		if s.clock.IsAvailable(earning.CommissionAvailableAt) {
			derived = enums.EarningStatusAvailable
		} else {
			derived = enums.EarningStatusPending
		}
	}
	return EarningView{
		AffiliateEarning: earning,
		DerivedStatus:    derived,
		Remaining:        s.clock.Until(earning.CommissionAvailableAt),
		FormattedBRL:     currency.FormatBRL(earning.CommissionAmount),
	}
}
