package earnings

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lojinha-app/lojinha-backend/internal/maturation"
	"github.com/lojinha-app/lojinha-backend/pkg/config"
	"github.com/lojinha-app/lojinha-backend/pkg/db/models"
	"github.com/lojinha-app/lojinha-backend/pkg/enums"
	"github.com/lojinha-app/lojinha-backend/pkg/pagination"
)

type fakeRepo struct {
	earnings map[uuid.UUID]*models.AffiliateEarning
	stamped  map[uuid.UUID]time.Time
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		earnings: map[uuid.UUID]*models.AffiliateEarning{},
		stamped:  map[uuid.UUID]time.Time{},
	}
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) Create(ctx context.Context, earning *models.AffiliateEarning) error {
	if earning.ID == uuid.Nil {
		earning.ID = uuid.New()
	}
	f.earnings[earning.ID] = earning
	return nil
}

func (f *fakeRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.AffiliateEarning, error) {
	earning, ok := f.earnings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return earning, nil
}

func (f *fakeRepo) FindByOrderAndAffiliate(ctx context.Context, orderID, affiliateID uuid.UUID) (*models.AffiliateEarning, error) {
	for _, earning := range f.earnings {
		if earning.OrderID == orderID && earning.AffiliateID == affiliateID {
			return earning, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) ListByAffiliate(ctx context.Context, params ListEarningsParams) ([]models.AffiliateEarning, *pagination.Cursor, error) {
	var out []models.AffiliateEarning
	for _, earning := range f.earnings {
		if earning.AffiliateID != params.AffiliateID {
			continue
		}
		if params.StoreID != uuid.Nil && earning.StoreID != params.StoreID {
			continue
		}
		out = append(out, *earning)
	}
	return out, nil, nil
}

func (f *fakeRepo) ListMaturedUnpaid(ctx context.Context, affiliateID, storeID uuid.UUID, asOf time.Time) ([]models.AffiliateEarning, error) {
	var out []models.AffiliateEarning
	for _, earning := range f.earnings {
		if earning.AffiliateID != affiliateID || earning.StoreID != storeID {
			continue
		}
		if earning.Status == enums.EarningStatusPaid {
			continue
		}
		if earning.CommissionAvailableAt == nil || earning.CommissionAvailableAt.After(asOf) {
			continue
		}
		out = append(out, *earning)
	}
	return out, nil
}

func (f *fakeRepo) Update(ctx context.Context, earning *models.AffiliateEarning) error {
	f.earnings[earning.ID] = earning
	return nil
}

func (f *fakeRepo) ReplaceItems(ctx context.Context, earningID uuid.UUID, items []models.ItemEarning) error {
	earning, ok := f.earnings[earningID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	earning.Items = items
	return nil
}

func (f *fakeRepo) StampAvailability(ctx context.Context, orderID uuid.UUID, availableAt time.Time) (int64, error) {
	f.stamped[orderID] = availableAt
	var count int64
	for _, earning := range f.earnings {
		if earning.OrderID == orderID && earning.CommissionAvailableAt == nil {
			at := availableAt
			earning.CommissionAvailableAt = &at
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) MarkPaid(ctx context.Context, ids []uuid.UUID) (int64, error) {
	var count int64
	for _, id := range ids {
		if earning, ok := f.earnings[id]; ok && earning.Status != enums.EarningStatusPaid {
			earning.Status = enums.EarningStatusPaid
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) SumMaturedUnpaid(ctx context.Context, affiliateID, storeID uuid.UUID, asOf time.Time) (decimal.Decimal, error) {
	matured, err := f.ListMaturedUnpaid(ctx, affiliateID, storeID, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, earning := range matured {
		total = total.Add(earning.CommissionAmount)
	}
	return total, nil
}

func (f *fakeRepo) CountMaturingBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	for _, earning := range f.earnings {
		if earning.Status != enums.EarningStatusPending || earning.CommissionAvailableAt == nil {
			continue
		}
		at := *earning.CommissionAvailableAt
		if !at.Before(from) && !at.After(to) {
			count++
		}
	}
	return count, nil
}

var testNow = time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	clock, err := maturation.NewClock(config.CommissionConfig{
		DefaultMaturityDays: 7,
		MaxMaturityDays:     90,
		FixedSplitPolicy:    "proportional",
	})
	if err != nil {
		t.Fatalf("new clock: %v", err)
	}
	svc, err := NewService(repo, clock.WithNow(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	svc.(*service).now = func() time.Time { return testNow }
	return svc
}

func seedEarning(t *testing.T, repo *fakeRepo, amount string, availableAt *time.Time, status enums.EarningStatus) *models.AffiliateEarning {
	t.Helper()
	value, err := decimal.NewFromString(amount)
	if err != nil {
		t.Fatalf("parse amount: %v", err)
	}
	earning := &models.AffiliateEarning{
		OrderID:               uuid.New(),
		AffiliateID:           uuid.New(),
		StoreAffiliateID:      uuid.New(),
		StoreID:               uuid.New(),
		CommissionAmount:      value,
		CommissionType:        enums.CommissionBasisPercentage,
		CommissionValue:       decimal.NewFromInt(10),
		OrderTotal:            value.Mul(decimal.NewFromInt(10)),
		Status:                status,
		CommissionAvailableAt: availableAt,
	}
	if err := repo.Create(context.Background(), earning); err != nil {
		t.Fatalf("seed earning: %v", err)
	}
	return earning
}

func TestDerivedStatus(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)

	past := testNow.Add(-time.Hour)
	future := testNow.Add(48 * time.Hour)

	matured := seedEarning(t, repo, "15", &past, enums.EarningStatusPending)
	immature := seedEarning(t, repo, "25", &future, enums.EarningStatusPending)
	undelivered := seedEarning(t, repo, "5", nil, enums.EarningStatusPending)
	paid := seedEarning(t, repo, "30", &past, enums.EarningStatusPaid)

	cases := []struct {
		earning *models.AffiliateEarning
		want    enums.EarningStatus
	}{
		{matured, enums.EarningStatusAvailable},
		{immature, enums.EarningStatusPending},
		{undelivered, enums.EarningStatusPending},
		{paid, enums.EarningStatusPaid},
	}
	for _, tc := range cases {
		view, err := svc.Get(context.Background(), tc.earning.AffiliateID, tc.earning.ID)
		if err != nil {
			t.Fatalf("get earning: %v", err)
		}
		if view.DerivedStatus != tc.want {
			t.Errorf("earning %s: want %s got %s", tc.earning.ID, tc.want, view.DerivedStatus)
		}
	}
}

func TestRemainingCountdown(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)

	availableAt := testNow.Add(2*24*time.Hour + 5*time.Hour)
	earning := seedEarning(t, repo, "15", &availableAt, enums.EarningStatusPending)

	view, err := svc.Get(context.Background(), earning.AffiliateID, earning.ID)
	if err != nil {
		t.Fatalf("get earning: %v", err)
	}
	if view.Remaining.IsAvailable {
		t.Fatalf("expected countdown still running")
	}
	if view.Remaining.Days != 2 || view.Remaining.Hours != 5 {
		t.Fatalf("unexpected countdown %+v", view.Remaining)
	}
	if view.FormattedBRL != "R$ 15,00" {
		t.Fatalf("unexpected formatting %q", view.FormattedBRL)
	}
}

func TestAvailableBalanceSumsOnlyMatured(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)

	affiliateID := uuid.New()
	storeID := uuid.New()
	past := testNow.Add(-time.Hour)
	future := testNow.Add(time.Hour)

	for _, seed := range []struct {
		amount      string
		availableAt *time.Time
		status      enums.EarningStatus
	}{
		{"15", &past, enums.EarningStatusPending},
		{"25", &past, enums.EarningStatusPending},
		{"40", &future, enums.EarningStatusPending},
		{"99", &past, enums.EarningStatusPaid},
	} {
		earning := seedEarning(t, repo, seed.amount, seed.availableAt, seed.status)
		earning.AffiliateID = affiliateID
		earning.StoreID = storeID
	}

	balance, err := svc.AvailableBalance(context.Background(), affiliateID, storeID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !balance.Available.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("expected 40 available, got %s", balance.Available)
	}
	if balance.FormattedBRL != "R$ 40,00" {
		t.Fatalf("unexpected formatting %q", balance.FormattedBRL)
	}
}

func TestStampAvailability(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)

	earning := seedEarning(t, repo, "15", nil, enums.EarningStatusPending)
	deliveredAt := testNow

	availableAt, err := svc.StampAvailability(context.Background(), nil, earning.OrderID, deliveredAt, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := deliveredAt.Add(7 * 24 * time.Hour)
	if !availableAt.Equal(want) {
		t.Fatalf("expected %v got %v", want, availableAt)
	}
	if earning.CommissionAvailableAt == nil || !earning.CommissionAvailableAt.Equal(want) {
		t.Fatalf("expected earning stamped with %v", want)
	}
}
