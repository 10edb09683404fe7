package withdrawals

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lojinha-app/lojinha-backend/internal/affiliates"
	"github.com/lojinha-app/lojinha-backend/internal/earnings"
	"github.com/lojinha-app/lojinha-backend/pkg/db"
	"github.com/lojinha-app/lojinha-backend/pkg/db/models"
	"github.com/lojinha-app/lojinha-backend/pkg/enums"
	pkgerrors "github.com/lojinha-app/lojinha-backend/pkg/errors"
	"github.com/lojinha-app/lojinha-backend/pkg/logger"
	"github.com/lojinha-app/lojinha-backend/pkg/outbox"
	"github.com/lojinha-app/lojinha-backend/pkg/pagination"
)

// Service handles the affiliate payout flow. The requested amount is
// always the matured balance at submission time; affiliates never type
// an amount.
type Service interface {
	Request(ctx context.Context, input RequestInput) (*models.WithdrawalRequest, error)
	Get(ctx context.Context, affiliateID, requestID uuid.UUID) (*models.WithdrawalRequest, error)
	ListByAffiliate(ctx context.Context, params ListParams) (*ListResult, error)
	ListByStore(ctx context.Context, params ListParams) (*ListResult, error)
	Approve(ctx context.Context, storeID, requestID uuid.UUID, adminNotes string) (*models.WithdrawalRequest, error)
	Reject(ctx context.Context, storeID, requestID uuid.UUID, adminNotes string) (*models.WithdrawalRequest, error)
	MarkPaid(ctx context.Context, storeID, requestID uuid.UUID) (*models.WithdrawalRequest, error)
}

// Transactor runs a function inside one database transaction.
// Satisfied by *db.Client.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// EventEmitter appends a domain event inside the caller's transaction.
// Satisfied by *outbox.Service.
type EventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// RequestInput opens a withdrawal request for an affiliate's matured
// balance in one store.
type RequestInput struct {
	AffiliateID uuid.UUID `json:"affiliate_id"`
	StoreID     uuid.UUID `json:"store_id"`
	Notes       string    `json:"notes"`
}

// ListParams filters withdrawal listings.
type ListParams struct {
	AffiliateID uuid.UUID
	StoreID     uuid.UUID
	Status      string
	Limit       int
	Cursor      string
}

// ListResult wraps returned requests and the cursor for the next page.
type ListResult struct {
	Items  []models.WithdrawalRequest `json:"items"`
	Cursor string                     `json:"cursor"`
}

type service struct {
	client     Transactor
	repo       Repository
	affiliates affiliates.Repository
	earnings   earnings.Service
	earningsDB earnings.Repository
	outbox     EventEmitter
	logg       *logger.Logger
	now        func() time.Time
}

// NewService wires withdrawal dependencies.
func NewService(
	client Transactor,
	repo Repository,
	affiliatesRepo affiliates.Repository,
	earningsSvc earnings.Service,
	earningsRepo earnings.Repository,
	outboxSvc EventEmitter,
	logg *logger.Logger,
) (Service, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db client required")
	}
	if repo == nil || affiliatesRepo == nil || earningsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "withdrawal repositories required")
	}
	if earningsSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "earnings service required")
	}
	if outboxSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox service required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		client:     client,
		repo:       repo,
		affiliates: affiliatesRepo,
		earnings:   earningsSvc,
		earningsDB: earningsRepo,
		outbox:     outboxSvc,
		logg:       logg,
		now:        time.Now,
	}, nil
}

func (s *service) Request(ctx context.Context, input RequestInput) (*models.WithdrawalRequest, error) {
	affiliate, err := s.affiliates.FindAffiliateByID(ctx, input.AffiliateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "affiliate not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load affiliate")
	}
	if affiliate.PixKey == nil || strings.TrimSpace(*affiliate.PixKey) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a pix key must be registered before requesting a withdrawal")
	}

	// The balance is re-derived from the maturation clock here; a
	// cached or client-supplied amount is never trusted.
	balance, err := s.earnings.AvailableBalance(ctx, input.AffiliateID, input.StoreID)
	if err != nil {
		return nil, err
	}
	if !balance.Available.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no matured balance available for withdrawal")
	}

	request := &models.WithdrawalRequest{
		AffiliateID: input.AffiliateID,
		StoreID:     input.StoreID,
		Amount:      balance.Available,
		Status:      enums.WithdrawalStatusPending,
		PixKey:      *affiliate.PixKey,
	}
	if notes := strings.TrimSpace(input.Notes); notes != "" {
		request.Notes = &notes
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, request); err != nil {
			if db.IsUniqueViolation(err, models.UniquePendingWithdrawalConstraint) {
				return pkgerrors.New(pkgerrors.CodeConflict, "a pending withdrawal request already exists for this store")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create withdrawal request")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventWithdrawalRequested,
			AggregateType: enums.OutboxAggregateWithdrawal,
			AggregateID:   request.ID,
			Data: map[string]any{
				"request_id":   request.ID.String(),
				"affiliate_id": request.AffiliateID.String(),
				"store_id":     request.StoreID.String(),
				"amount":       request.Amount.String(),
			},
			Version:    1,
			OccurredAt: s.now(),
		})
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"request_id":   request.ID.String(),
		"affiliate_id": request.AffiliateID.String(),
		"amount":       request.Amount.String(),
	})
	s.logg.Info(logCtx, "withdrawal requested")
	return request, nil
}

func (s *service) Get(ctx context.Context, affiliateID, requestID uuid.UUID) (*models.WithdrawalRequest, error) {
	request, err := s.findRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.AffiliateID != affiliateID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal request not found")
	}
	return request, nil
}

func (s *service) ListByAffiliate(ctx context.Context, params ListParams) (*ListResult, error) {
	query, err := s.listQuery(params)
	if err != nil {
		return nil, err
	}
	rows, next, err := s.repo.ListByAffiliate(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list withdrawals")
	}
	return listResult(rows, next), nil
}

func (s *service) ListByStore(ctx context.Context, params ListParams) (*ListResult, error) {
	query, err := s.listQuery(params)
	if err != nil {
		return nil, err
	}
	rows, next, err := s.repo.ListByStore(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list withdrawals")
	}
	return listResult(rows, next), nil
}

func (s *service) Approve(ctx context.Context, storeID, requestID uuid.UUID, adminNotes string) (*models.WithdrawalRequest, error) {
	return s.transition(ctx, storeID, requestID, enums.WithdrawalStatusApproved, adminNotes)
}

func (s *service) Reject(ctx context.Context, storeID, requestID uuid.UUID, adminNotes string) (*models.WithdrawalRequest, error) {
	return s.transition(ctx, storeID, requestID, enums.WithdrawalStatusRejected, adminNotes)
}

// MarkPaid settles an approved request: the request flips to paid and
// the earnings that backed its amount flip with it, in one transaction.
func (s *service) MarkPaid(ctx context.Context, storeID, requestID uuid.UUID) (*models.WithdrawalRequest, error) {
	request, err := s.findStoreRequest(ctx, storeID, requestID)
	if err != nil {
		return nil, err
	}
	if !request.Status.CanTransitionTo(enums.WithdrawalStatusPaid) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "withdrawal request cannot be marked paid").
			WithDetails(map[string]any{"status": string(request.Status)})
	}

	// The covering set is the earnings that had matured when the
	// request was opened; anything matured since belongs to the next
	// request.
	covering, err := s.earningsDB.ListMaturedUnpaid(ctx, request.AffiliateID, request.StoreID, request.CreatedAt)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load covering earnings")
	}
	ids := make([]uuid.UUID, len(covering))
	for i, earning := range covering {
		ids[i] = earning.ID
	}

	resolvedAt := s.now()
	request.Status = enums.WithdrawalStatusPaid
	request.ResolvedAt = &resolvedAt

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Update(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update withdrawal request")
		}
		if len(ids) > 0 {
			if _, err := s.earningsDB.WithTx(tx).MarkPaid(ctx, ids); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark earnings paid")
			}
		}
		return s.emitResolved(ctx, tx, request)
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"request_id":    request.ID.String(),
		"earnings_paid": len(ids),
		"amount":        request.Amount.String(),
	})
	s.logg.Info(logCtx, "withdrawal paid")
	return request, nil
}

func (s *service) transition(ctx context.Context, storeID, requestID uuid.UUID, target enums.WithdrawalStatus, adminNotes string) (*models.WithdrawalRequest, error) {
	request, err := s.findStoreRequest(ctx, storeID, requestID)
	if err != nil {
		return nil, err
	}
	if !request.Status.CanTransitionTo(target) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "illegal withdrawal status transition").
			WithDetails(map[string]any{"from": string(request.Status), "to": string(target)})
	}

	request.Status = target
	if notes := strings.TrimSpace(adminNotes); notes != "" {
		request.AdminNotes = &notes
	}
	if target.IsTerminal() {
		resolvedAt := s.now()
		request.ResolvedAt = &resolvedAt
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Update(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update withdrawal request")
		}
		if !target.IsTerminal() {
			return nil
		}
		return s.emitResolved(ctx, tx, request)
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

func (s *service) emitResolved(ctx context.Context, tx *gorm.DB, request *models.WithdrawalRequest) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.OutboxEventWithdrawalResolved,
		AggregateType: enums.OutboxAggregateWithdrawal,
		AggregateID:   request.ID,
		Data: map[string]any{
			"request_id":   request.ID.String(),
			"affiliate_id": request.AffiliateID.String(),
			"store_id":     request.StoreID.String(),
			"amount":       request.Amount.String(),
			"status":       string(request.Status),
		},
		Version:    1,
		OccurredAt: s.now(),
	})
}

func (s *service) findRequest(ctx context.Context, requestID uuid.UUID) (*models.WithdrawalRequest, error) {
	request, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load withdrawal request")
	}
	return request, nil
}

func (s *service) findStoreRequest(ctx context.Context, storeID, requestID uuid.UUID) (*models.WithdrawalRequest, error) {
	request, err := s.findRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.StoreID != storeID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal request not found")
	}
	return request, nil
}

func (s *service) listQuery(params ListParams) (ListWithdrawalsParams, error) {
	query := ListWithdrawalsParams{
		AffiliateID: params.AffiliateID,
		StoreID:     params.StoreID,
		Limit:       params.Limit,
	}
	if params.Status != "" {
		status, err := enums.ParseWithdrawalStatus(params.Status)
		if err != nil {
			return query, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		query.Status = status
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return query, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}
	return query, nil
}

func listResult(rows []models.WithdrawalRequest, next *pagination.Cursor) *ListResult {
	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}
}
