package withdrawals

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lojinha-app/lojinha-backend/internal/affiliates"
	"github.com/lojinha-app/lojinha-backend/internal/earnings"
	"github.com/lojinha-app/lojinha-backend/pkg/db/models"
	"github.com/lojinha-app/lojinha-backend/pkg/enums"
	pkgerrors "github.com/lojinha-app/lojinha-backend/pkg/errors"
	"github.com/lojinha-app/lojinha-backend/pkg/logger"
	"github.com/lojinha-app/lojinha-backend/pkg/outbox"
	"github.com/lojinha-app/lojinha-backend/pkg/pagination"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type fakeTransactor struct{}

func (fakeTransactor) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeEmitter struct {
	events []outbox.DomainEvent
}

func (f *fakeEmitter) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type fakeRepo struct {
	byID map[uuid.UUID]*models.WithdrawalRequest
}

func (f *fakeRepo) WithTx(_ *gorm.DB) Repository { return f }

func (f *fakeRepo) Create(_ context.Context, request *models.WithdrawalRequest) error {
	for _, existing := range f.byID {
		if existing.AffiliateID == request.AffiliateID &&
			existing.StoreID == request.StoreID &&
			existing.Status == enums.WithdrawalStatusPending {
			return gorm.ErrDuplicatedKey
		}
	}
	request.ID = uuid.New()
	request.CreatedAt = time.Now()
	f.byID[request.ID] = request
	return nil
}

func (f *fakeRepo) FindByID(_ context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	if request, ok := f.byID[id]; ok {
		return request, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) ListByAffiliate(_ context.Context, _ ListWithdrawalsParams) ([]models.WithdrawalRequest, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (f *fakeRepo) ListByStore(_ context.Context, _ ListWithdrawalsParams) ([]models.WithdrawalRequest, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (f *fakeRepo) Update(_ context.Context, request *models.WithdrawalRequest) error {
	f.byID[request.ID] = request
	return nil
}

type fakeAffiliates struct {
	affiliates.Repository
	byID map[uuid.UUID]*models.Affiliate
}

func (f *fakeAffiliates) FindAffiliateByID(_ context.Context, id uuid.UUID) (*models.Affiliate, error) {
	if affiliate, ok := f.byID[id]; ok {
		return affiliate, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeBalance struct {
	earnings.Service
	available decimal.Decimal
}

func (f *fakeBalance) AvailableBalance(_ context.Context, affiliateID, storeID uuid.UUID) (*earnings.Balance, error) {
	return &earnings.Balance{
		AffiliateID: affiliateID,
		StoreID:     storeID,
		Available:   f.available,
		AsOf:        time.Now(),
	}, nil
}

type fakeEarningsRepo struct {
	earnings.Repository
	matured []models.AffiliateEarning
	paidIDs []uuid.UUID
}

func (f *fakeEarningsRepo) WithTx(_ *gorm.DB) earnings.Repository { return f }

func (f *fakeEarningsRepo) ListMaturedUnpaid(_ context.Context, _, _ uuid.UUID, _ time.Time) ([]models.AffiliateEarning, error) {
	return f.matured, nil
}

func (f *fakeEarningsRepo) MarkPaid(_ context.Context, ids []uuid.UUID) (int64, error) {
	f.paidIDs = append(f.paidIDs, ids...)
	return int64(len(ids)), nil
}

type harness struct {
	svc       Service
	repo      *fakeRepo
	balance   *fakeBalance
	earnings  *fakeEarningsRepo
	emitter   *fakeEmitter
	affiliate *models.Affiliate
	storeID   uuid.UUID
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	pix := "maria@pix.com.br"
	affiliate := &models.Affiliate{ID: uuid.New(), Name: "Maria Silva", Email: "maria@example.com", PixKey: &pix}

	h := &harness{
		repo:      &fakeRepo{byID: map[uuid.UUID]*models.WithdrawalRequest{}},
		balance:   &fakeBalance{available: dec("40.00")},
		earnings:  &fakeEarningsRepo{},
		emitter:   &fakeEmitter{},
		affiliate: affiliate,
		storeID:   uuid.New(),
	}
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
	svc, err := NewService(
		fakeTransactor{}, h.repo,
		&fakeAffiliates{byID: map[uuid.UUID]*models.Affiliate{affiliate.ID: affiliate}},
		h.balance, h.earnings, h.emitter, logg,
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	h.svc = svc
	return h
}

func (h *harness) request(t *testing.T) *models.WithdrawalRequest {
	t.Helper()
	request, err := h.svc.Request(context.Background(), RequestInput{
		AffiliateID: h.affiliate.ID,
		StoreID:     h.storeID,
	})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	return request
}

func errCode(t *testing.T, err error) pkgerrors.Code {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error")
	}
	return pkgerrors.As(err).Code()
}

func TestRequestSnapshotsMaturedBalance(t *testing.T) {
	h := newHarness(t)

	request := h.request(t)
	if !request.Amount.Equal(dec("40.00")) {
		t.Fatalf("amount = %s, want 40.00", request.Amount)
	}
	if request.Status != enums.WithdrawalStatusPending {
		t.Fatalf("status = %s, want pending", request.Status)
	}
	if request.PixKey != *h.affiliate.PixKey {
		t.Fatalf("pix key not copied onto the request")
	}
	if len(h.emitter.events) != 1 || h.emitter.events[0].EventType != enums.OutboxEventWithdrawalRequested {
		t.Fatalf("expected one withdrawal.requested event")
	}
}

func TestRequestRequiresPixKey(t *testing.T) {
	h := newHarness(t)
	h.affiliate.PixKey = nil

	_, err := h.svc.Request(context.Background(), RequestInput{AffiliateID: h.affiliate.ID, StoreID: h.storeID})
	if code := errCode(t, err); code != pkgerrors.CodeValidation {
		t.Fatalf("code = %s, want VALIDATION_ERROR", code)
	}
}

func TestRequestRequiresPositiveBalance(t *testing.T) {
	h := newHarness(t)
	h.balance.available = decimal.Zero

	_, err := h.svc.Request(context.Background(), RequestInput{AffiliateID: h.affiliate.ID, StoreID: h.storeID})
	if code := errCode(t, err); code != pkgerrors.CodeValidation {
		t.Fatalf("code = %s, want VALIDATION_ERROR", code)
	}
}

func TestRequestRejectsSecondPending(t *testing.T) {
	h := newHarness(t)
	h.request(t)

	_, err := h.svc.Request(context.Background(), RequestInput{AffiliateID: h.affiliate.ID, StoreID: h.storeID})
	if code := errCode(t, err); code != pkgerrors.CodeConflict {
		t.Fatalf("code = %s, want CONFLICT", code)
	}
}

func TestMarkPaidFlipsCoveringEarnings(t *testing.T) {
	h := newHarness(t)
	matured := []models.AffiliateEarning{
		{ID: uuid.New(), CommissionAmount: dec("15.00")},
		{ID: uuid.New(), CommissionAmount: dec("25.00")},
	}
	h.earnings.matured = matured

	request := h.request(t)
	if _, err := h.svc.Approve(context.Background(), h.storeID, request.ID, "ok"); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	paid, err := h.svc.MarkPaid(context.Background(), h.storeID, request.ID)
	if err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}
	if paid.Status != enums.WithdrawalStatusPaid || paid.ResolvedAt == nil {
		t.Fatalf("paid transition not recorded: %+v", paid)
	}
	if len(h.earnings.paidIDs) != 2 {
		t.Fatalf("earnings paid = %d, want 2", len(h.earnings.paidIDs))
	}

	var resolved int
	for _, event := range h.emitter.events {
		if event.EventType == enums.OutboxEventWithdrawalResolved {
			resolved++
		}
	}
	if resolved != 1 {
		t.Fatalf("withdrawal.resolved events = %d, want 1", resolved)
	}
}

func TestTransitionRules(t *testing.T) {
	h := newHarness(t)
	request := h.request(t)

	// pending cannot jump straight to paid.
	_, err := h.svc.MarkPaid(context.Background(), h.storeID, request.ID)
	if code := errCode(t, err); code != pkgerrors.CodeStateConflict {
		t.Fatalf("pending->paid code = %s", code)
	}

	rejected, err := h.svc.Reject(context.Background(), h.storeID, request.ID, "saldo em disputa")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rejected.Status != enums.WithdrawalStatusRejected || rejected.ResolvedAt == nil {
		t.Fatalf("reject not recorded: %+v", rejected)
	}
	if rejected.AdminNotes == nil || *rejected.AdminNotes != "saldo em disputa" {
		t.Fatalf("admin notes not kept")
	}

	_, err = h.svc.Approve(context.Background(), h.storeID, request.ID, "")
	if code := errCode(t, err); code != pkgerrors.CodeStateConflict {
		t.Fatalf("rejected->approved code = %s", code)
	}
}

func TestRequestsAreStoreScoped(t *testing.T) {
	h := newHarness(t)
	request := h.request(t)

	_, err := h.svc.Approve(context.Background(), uuid.New(), request.ID, "")
	if code := errCode(t, err); code != pkgerrors.CodeNotFound {
		t.Fatalf("foreign store code = %s", code)
	}
	_, err = h.svc.Get(context.Background(), uuid.New(), request.ID)
	if code := errCode(t, err); code != pkgerrors.CodeNotFound {
		t.Fatalf("foreign affiliate code = %s", code)
	}
}
