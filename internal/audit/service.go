package audit

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lojinha-app/lojinha-backend/pkg/currency"
	"github.com/lojinha-app/lojinha-backend/pkg/db/models"
	pkgerrors "github.com/lojinha-app/lojinha-backend/pkg/errors"
	"github.com/lojinha-app/lojinha-backend/pkg/pagination"
)

// Service exposes the recalculation audit trail for transparency
// reporting.
type Service interface {
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.CommissionAuditLog, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Stats(ctx context.Context, storeID uuid.UUID) (*Stats, error)
}

// ListParams filters the audit listing.
type ListParams struct {
	StoreID     uuid.UUID
	AffiliateID uuid.UUID
	Limit       int
	Cursor      string
}

// ListResult wraps returned entries and the cursor for the next page.
type ListResult struct {
	Items  []models.CommissionAuditLog `json:"items"`
	Cursor string                      `json:"cursor"`
}

// Stats aggregates a store's recalculation history. Positive and
// negative variation totals are absolute sums; the average is their
// signed net divided by the entry count.
type Stats struct {
	StoreID                uuid.UUID       `json:"store_id"`
	TotalRecalculations    int             `json:"total_recalculations"`
	PositiveCount          int             `json:"positive_count"`
	NegativeCount          int             `json:"negative_count"`
	TotalPositiveVariation decimal.Decimal `json:"total_positive_variation"`
	TotalNegativeVariation decimal.Decimal `json:"total_negative_variation"`
	AverageVariation       decimal.Decimal `json:"average_variation"`
}

type service struct {
	repo Repository
}

// NewService wires audit dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "audit repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.CommissionAuditLog, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	entries, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit entries")
	}
	return entries, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.StoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	query := ListAuditParams{
		StoreID:     params.StoreID,
		AffiliateID: params.AffiliateID,
		Limit:       params.Limit,
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit entries")
	}
	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) Stats(ctx context.Context, storeID uuid.UUID) (*Stats, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	entries, err := s.repo.AllByStore(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load audit entries")
	}

	stats := &Stats{
		StoreID:                storeID,
		TotalRecalculations:    len(entries),
		TotalPositiveVariation: decimal.Zero,
		TotalNegativeVariation: decimal.Zero,
		AverageVariation:       decimal.Zero,
	}
	for _, entry := range entries {
		switch {
		case entry.Difference.IsPositive():
			stats.PositiveCount++
			stats.TotalPositiveVariation = stats.TotalPositiveVariation.Add(entry.Difference)
		case entry.Difference.IsNegative():
			stats.NegativeCount++
			stats.TotalNegativeVariation = stats.TotalNegativeVariation.Add(entry.Difference.Abs())
		}
	}
	if len(entries) > 0 {
		net := stats.TotalPositiveVariation.Sub(stats.TotalNegativeVariation)
		stats.AverageVariation = currency.RoundCurrency(net.Div(decimal.NewFromInt(int64(len(entries)))))
	}
	return stats, nil
}
