package orders

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
	"github.com/lojinha-app/lojinha-backend/internal/coupons"
	"github.com/lojinha-app/lojinha-backend/internal/earnings"
	"github.com/lojinha-app/lojinha-backend/internal/stores"
	"github.com/lojinha-app/lojinha-backend/pkg/db/models"
	"github.com/lojinha-app/lojinha-backend/pkg/enums"
	pkgerrors "github.com/lojinha-app/lojinha-backend/pkg/errors"
	"github.com/lojinha-app/lojinha-backend/pkg/logger"
	"github.com/lojinha-app/lojinha-backend/pkg/types"
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

// rollbackTransactor discards repo writes when the callback errors, the
// way a real transaction would.
type rollbackTransactor struct {
	repo *fakeRepo
}

func (r rollbackTransactor) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	snapshot := make(map[uuid.UUID]*models.Order, len(r.repo.byID))
	for id, order := range r.repo.byID {
		snapshot[id] = order
	}
	if err := fn(nil); err != nil {
		r.repo.byID = snapshot
		return err
	}
	return nil
}

type fakeRepo struct {
	Repository
	byID map[uuid.UUID]*models.Order
}

func (f *fakeRepo) WithTx(_ *gorm.DB) Repository { return f }

func (f *fakeRepo) Create(_ context.Context, order *models.Order) error {
	order.ID = uuid.New()
	for i := range order.Items {
		order.Items[i].ID = uuid.New()
		order.Items[i].OrderID = order.ID
	}
	f.byID[order.ID] = order
	return nil
}

func (f *fakeRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	if order, ok := f.byID[id]; ok {
		return order, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) Update(_ context.Context, order *models.Order) error {
	f.byID[order.ID] = order
	return nil
}

type fakeStores struct {
	stores.Repository
	byID map[uuid.UUID]*models.Store
}

func (f *fakeStores) FindByID(_ context.Context, id uuid.UUID) (*models.Store, error) {
	if store, ok := f.byID[id]; ok {
		return store, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeAffiliates struct {
	affiliates.Repository
	links map[string]*models.StoreAffiliate
}

func (f *fakeAffiliates) FindLinkByReferralCode(_ context.Context, _ uuid.UUID, code string) (*models.StoreAffiliate, error) {
	if link, ok := f.links[code]; ok {
		return link, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeCoupons struct {
	coupons.Service
	coupon     *models.Coupon
	usageCalls int
}

func (f *fakeCoupons) Validate(_ context.Context, _ uuid.UUID, code string, _ decimal.Decimal) (*coupons.ValidationOutcome, error) {
	if f.coupon == nil || f.coupon.Code != code {
		return &coupons.ValidationOutcome{Valid: false, Reason: coupons.ReasonNotFound}, nil
	}
	if !f.coupon.Active {
		return &coupons.ValidationOutcome{Valid: false, Reason: coupons.ReasonInactive}, nil
	}
	return &coupons.ValidationOutcome{Valid: true, Coupon: f.coupon}, nil
}

func (f *fakeCoupons) RecordUsage(_ context.Context, _ uuid.UUID) error {
	f.usageCalls++
	return nil
}

type stampCall struct {
	orderID      uuid.UUID
	deliveredAt  time.Time
	maturityDays int
}

type fakeEarnings struct {
	earnings.Service
	stamps []stampCall
}

func (f *fakeEarnings) StampAvailability(_ context.Context, _ *gorm.DB, orderID uuid.UUID, deliveredAt time.Time, maturityDays int) (time.Time, error) {
	f.stamps = append(f.stamps, stampCall{orderID: orderID, deliveredAt: deliveredAt, maturityDays: maturityDays})
	return deliveredAt.AddDate(0, 0, maturityDays), nil
}

type fakeCreator struct {
	calls []uuid.UUID
	err   error
}

func (f *fakeCreator) CreateForOrderTx(_ context.Context, _ *gorm.DB, orderID uuid.UUID) (*models.AffiliateEarning, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.calls = append(f.calls, orderID)
	return &models.AffiliateEarning{ID: uuid.New(), OrderID: orderID}, nil
}

type harness struct {
	svc        Service
	repo       *fakeRepo
	stores     *fakeStores
	affiliates *fakeAffiliates
	coupons    *fakeCoupons
	earnings   *fakeEarnings
	creator    *fakeCreator
	store      *models.Store
	link       *models.StoreAffiliate
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := &models.Store{ID: uuid.New(), Name: "Pizzaria do Bairro", Slug: "pizzaria-do-bairro", MaturityDays: 10, Active: true}
	link := &models.StoreAffiliate{ID: uuid.New(), StoreID: store.ID, AffiliateID: uuid.New(), ReferralCode: "maria10", Active: true}

	h := &harness{
		repo:       &fakeRepo{byID: map[uuid.UUID]*models.Order{}},
		stores:     &fakeStores{byID: map[uuid.UUID]*models.Store{store.ID: store}},
		affiliates: &fakeAffiliates{links: map[string]*models.StoreAffiliate{link.ReferralCode: link}},
		coupons:    &fakeCoupons{},
		earnings:   &fakeEarnings{},
		creator:    &fakeCreator{},
		store:      store,
		link:       link,
	}
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
	svc, err := NewService(
		fakeTransactor{}, h.repo, h.stores, h.affiliates, h.coupons,
		coupons.NewAllocator(enums.FixedSplitProportional), h.earnings, h.creator, logg,
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	h.svc = svc
	return h
}

func cartFixture() []types.CartItem {
	return []types.CartItem{
		{ProductID: "product-1", ProductName: "Pizza Grande", UnitPrice: dec("100"), Quantity: 2, CategoryName: "categoria1"},
		{ProductID: "product-2", ProductName: "Refrigerante 2L", UnitPrice: dec("10"), Quantity: 1, CategoryName: "categoria2"},
	}
}

func errCode(t *testing.T, err error) pkgerrors.Code {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error")
	}
	return pkgerrors.As(err).Code()
}

func TestCreateWithCouponAndReferral(t *testing.T) {
	h := newHarness(t)
	h.coupons.coupon = &models.Coupon{
		ID:            uuid.New(),
		StoreID:       h.store.ID,
		Code:          "DESCONTO10",
		DiscountType:  enums.DiscountTypePercentage,
		DiscountValue: dec("10"),
		Scope:         enums.CouponScopeAll,
		Active:        true,
	}

	order, err := h.svc.Create(context.Background(), CreateInput{
		StoreID:      h.store.ID,
		CustomerName: "Ana Souza",
		Items:        cartFixture(),
		CouponCode:   "DESCONTO10",
		ReferralCode: "maria10",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !order.Subtotal.Equal(dec("210")) || !order.DiscountTotal.Equal(dec("21")) || !order.Total.Equal(dec("189")) {
		t.Fatalf("totals = %s / %s / %s", order.Subtotal, order.DiscountTotal, order.Total)
	}
	if order.StoreAffiliateID == nil || *order.StoreAffiliateID != h.link.ID {
		t.Fatalf("referral attribution missing")
	}
	if order.CouponID == nil || *order.CouponID != h.coupons.coupon.ID {
		t.Fatalf("coupon not attached")
	}
	if h.coupons.usageCalls != 1 {
		t.Fatalf("usage calls = %d, want 1", h.coupons.usageCalls)
	}
	if len(h.creator.calls) != 1 || h.creator.calls[0] != order.ID {
		t.Fatalf("earning creation not triggered")
	}
	if len(order.Items) != 2 || !order.Items[0].Subtotal.Equal(dec("200")) {
		t.Fatalf("order items not snapshotted: %+v", order.Items)
	}
}

func TestCreateRollsBackWhenEarningCreationFails(t *testing.T) {
	h := newHarness(t)
	h.creator.err = pkgerrors.New(pkgerrors.CodeInternal, "earning insert failed")
	h.coupons.coupon = &models.Coupon{
		ID:            uuid.New(),
		StoreID:       h.store.ID,
		Code:          "DESCONTO10",
		DiscountType:  enums.DiscountTypePercentage,
		DiscountValue: dec("10"),
		Scope:         enums.CouponScopeAll,
		Active:        true,
	}
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
	svc, err := NewService(
		rollbackTransactor{repo: h.repo}, h.repo, h.stores, h.affiliates, h.coupons,
		coupons.NewAllocator(enums.FixedSplitProportional), h.earnings, h.creator, logg,
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, err = svc.Create(context.Background(), CreateInput{
		StoreID:      h.store.ID,
		CustomerName: "Ana Souza",
		Items:        cartFixture(),
		CouponCode:   "DESCONTO10",
		ReferralCode: "maria10",
	})
	if err == nil {
		t.Fatalf("Create must surface the earning failure")
	}
	if len(h.repo.byID) != 0 {
		t.Fatalf("order must not survive a failed earning write")
	}
	if h.coupons.usageCalls != 0 {
		t.Fatalf("usage calls = %d, want 0 after rollback", h.coupons.usageCalls)
	}
}

func TestCreateIgnoresUnknownReferralCode(t *testing.T) {
	h := newHarness(t)

	order, err := h.svc.Create(context.Background(), CreateInput{
		StoreID:      h.store.ID,
		CustomerName: "Ana Souza",
		Items:        cartFixture(),
		ReferralCode: "nao-existe",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if order.StoreAffiliateID != nil {
		t.Fatalf("unknown referral code must not attribute")
	}
	if len(h.creator.calls) != 0 {
		t.Fatalf("no earning may be created without attribution")
	}
}

func TestCreateRejectsInvalidCoupon(t *testing.T) {
	h := newHarness(t)
	h.coupons.coupon = &models.Coupon{Code: "EXPIRADO", Active: false}

	_, err := h.svc.Create(context.Background(), CreateInput{
		StoreID:      h.store.ID,
		CustomerName: "Ana Souza",
		Items:        cartFixture(),
		CouponCode:   "EXPIRADO",
	})
	if code := errCode(t, err); code != pkgerrors.CodeCouponInvalid {
		t.Fatalf("code = %s, want COUPON_INVALID", code)
	}
	if len(h.repo.byID) != 0 {
		t.Fatalf("no order may be created with an invalid coupon")
	}
}

func TestCreateValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input CreateInput
	}{
		{"blank customer", CreateInput{StoreID: h.store.ID, CustomerName: "  ", Items: cartFixture()}},
		{"no items", CreateInput{StoreID: h.store.ID, CustomerName: "Ana"}},
		{"zero quantity", CreateInput{StoreID: h.store.ID, CustomerName: "Ana", Items: []types.CartItem{{ProductID: "p", Quantity: 0}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.svc.Create(ctx, tc.input)
			if code := errCode(t, err); code != pkgerrors.CodeValidation {
				t.Fatalf("code = %s, want VALIDATION_ERROR", code)
			}
		})
	}

	_, err := h.svc.Create(ctx, CreateInput{StoreID: uuid.New(), CustomerName: "Ana", Items: cartFixture()})
	if code := errCode(t, err); code != pkgerrors.CodeMissingReference {
		t.Fatalf("unknown store code = %s", code)
	}
}

func TestMarkDeliveredAnchorsMaturation(t *testing.T) {
	h := newHarness(t)
	order, err := h.svc.Create(context.Background(), CreateInput{
		StoreID:      h.store.ID,
		CustomerName: "Ana Souza",
		Items:        cartFixture(),
		ReferralCode: "maria10",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	delivered, err := h.svc.MarkDelivered(context.Background(), h.store.ID, order.ID)
	if err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	if delivered.Status != enums.OrderStatusDelivered || delivered.DeliveredAt == nil {
		t.Fatalf("delivery not stamped: %+v", delivered)
	}
	if len(h.earnings.stamps) != 1 {
		t.Fatalf("stamp calls = %d, want 1", len(h.earnings.stamps))
	}
	stamp := h.earnings.stamps[0]
	if stamp.orderID != order.ID || stamp.maturityDays != 10 {
		t.Fatalf("stamp = %+v", stamp)
	}

	_, err = h.svc.MarkDelivered(context.Background(), h.store.ID, order.ID)
	if code := errCode(t, err); code != pkgerrors.CodeStateConflict {
		t.Fatalf("double delivery code = %s", code)
	}
}

func TestMarkDeliveredSkipsStampWithoutAttribution(t *testing.T) {
	h := newHarness(t)
	order, err := h.svc.Create(context.Background(), CreateInput{
		StoreID:      h.store.ID,
		CustomerName: "Ana Souza",
		Items:        cartFixture(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := h.svc.MarkDelivered(context.Background(), h.store.ID, order.ID); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	if len(h.earnings.stamps) != 0 {
		t.Fatalf("unattributed orders must not stamp availability")
	}
}

func TestCancelTransitions(t *testing.T) {
	h := newHarness(t)
	order, err := h.svc.Create(context.Background(), CreateInput{
		StoreID:      h.store.ID,
		CustomerName: "Ana Souza",
		Items:        cartFixture(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	canceled, err := h.svc.Cancel(context.Background(), h.store.ID, order.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if canceled.Status != enums.OrderStatusCanceled || canceled.CanceledAt == nil {
		t.Fatalf("cancel not stamped: %+v", canceled)
	}

	// Cancel is idempotent.
	if _, err := h.svc.Cancel(context.Background(), h.store.ID, order.ID); err != nil {
		t.Fatalf("repeat cancel: %v", err)
	}

	delivered, err := h.svc.Create(context.Background(), CreateInput{
		StoreID:      h.store.ID,
		CustomerName: "Bruno Lima",
		Items:        cartFixture(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := h.svc.MarkDelivered(context.Background(), h.store.ID, delivered.ID); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	_, err = h.svc.Cancel(context.Background(), h.store.ID, delivered.ID)
	if code := errCode(t, err); code != pkgerrors.CodeStateConflict {
		t.Fatalf("cancel delivered code = %s", code)
	}
}

func TestGetIsStoreScoped(t *testing.T) {
	h := newHarness(t)
	order, err := h.svc.Create(context.Background(), CreateInput{
		StoreID:      h.store.ID,
		CustomerName: "Ana Souza",
		Items:        cartFixture(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := h.svc.Get(context.Background(), h.store.ID, order.ID); err != nil {
		t.Fatalf("Get: %v", err)
	}
	_, err = h.svc.Get(context.Background(), uuid.New(), order.ID)
	if code := errCode(t, err); code != pkgerrors.CodeNotFound {
		t.Fatalf("foreign store code = %s", code)
	}
}