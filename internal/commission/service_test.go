package commission

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/lojinha-app/lojinha-backend/internal/affiliates"
	"github.com/lojinha-app/lojinha-backend/internal/audit"
	"github.com/lojinha-app/lojinha-backend/internal/coupons"
	"github.com/lojinha-app/lojinha-backend/internal/earnings"
	"github.com/lojinha-app/lojinha-backend/internal/orders"
	"github.com/lojinha-app/lojinha-backend/pkg/db/models"
	"github.com/lojinha-app/lojinha-backend/pkg/enums"
	pkgerrors "github.com/lojinha-app/lojinha-backend/pkg/errors"
	"github.com/lojinha-app/lojinha-backend/pkg/logger"
	"github.com/lojinha-app/lojinha-backend/pkg/outbox"
)

type fakeTransactor struct {
	calls int
}

func (f *fakeTransactor) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	f.calls++
	return fn(nil)
}

type fakeEmitter struct {
	events []outbox.DomainEvent
}

func (f *fakeEmitter) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type fakeOrders struct {
	orders.Repository
	byID    map[uuid.UUID]*models.Order
	updated []*models.Order
}

func (f *fakeOrders) WithTx(_ *gorm.DB) orders.Repository { return f }

func (f *fakeOrders) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	if order, ok := f.byID[id]; ok {
		copied := *order
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeOrders) Update(_ context.Context, order *models.Order) error {
	f.updated = append(f.updated, order)
	f.byID[order.ID] = order
	return nil
}

type fakeCoupons struct {
	coupons.Repository
	byID map[uuid.UUID]*models.Coupon
}

func (f *fakeCoupons) WithTx(_ *gorm.DB) coupons.Repository { return f }

func (f *fakeCoupons) FindByID(_ context.Context, id uuid.UUID) (*models.Coupon, error) {
	if coupon, ok := f.byID[id]; ok {
		return coupon, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeAffiliates struct {
	affiliates.Repository
	links map[uuid.UUID]*models.StoreAffiliate
}

func (f *fakeAffiliates) WithTx(_ *gorm.DB) affiliates.Repository { return f }

func (f *fakeAffiliates) FindLinkByID(_ context.Context, id uuid.UUID) (*models.StoreAffiliate, error) {
	if link, ok := f.links[id]; ok {
		return link, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeEarnings struct {
	earnings.Repository
	byID        map[uuid.UUID]*models.AffiliateEarning
	createCalls int
	replaced    map[uuid.UUID][]models.ItemEarning
}

func (f *fakeEarnings) WithTx(_ *gorm.DB) earnings.Repository { return f }

func (f *fakeEarnings) FindByOrderAndAffiliate(_ context.Context, orderID, affiliateID uuid.UUID) (*models.AffiliateEarning, error) {
	for _, earning := range f.byID {
		if earning.OrderID == orderID && earning.AffiliateID == affiliateID {
			return earning, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeEarnings) Create(_ context.Context, earning *models.AffiliateEarning) error {
	f.createCalls++
	earning.ID = uuid.New()
	for i := range earning.Items {
		earning.Items[i].EarningID = earning.ID
	}
	f.byID[earning.ID] = earning
	return nil
}

func (f *fakeEarnings) Update(_ context.Context, earning *models.AffiliateEarning) error {
	f.byID[earning.ID] = earning
	return nil
}

func (f *fakeEarnings) ReplaceItems(_ context.Context, earningID uuid.UUID, items []models.ItemEarning) error {
	if f.replaced == nil {
		f.replaced = map[uuid.UUID][]models.ItemEarning{}
	}
	f.replaced[earningID] = items
	return nil
}

type fakeAudit struct {
	audit.Repository
	entries []*models.CommissionAuditLog
}

func (f *fakeAudit) WithTx(_ *gorm.DB) audit.Repository { return f }

func (f *fakeAudit) Append(_ context.Context, entry *models.CommissionAuditLog) error {
	f.entries = append(f.entries, entry)
	return nil
}

type serviceHarness struct {
	svc      Service
	orders   *fakeOrders
	coupons  *fakeCoupons
	links    *fakeAffiliates
	earnings *fakeEarnings
	audit    *fakeAudit
	emitter  *fakeEmitter
}

func newHarness(t *testing.T) *serviceHarness {
	t.Helper()
	h := &serviceHarness{
		orders:   &fakeOrders{byID: map[uuid.UUID]*models.Order{}},
		coupons:  &fakeCoupons{byID: map[uuid.UUID]*models.Coupon{}},
		links:    &fakeAffiliates{links: map[uuid.UUID]*models.StoreAffiliate{}},
		earnings: &fakeEarnings{byID: map[uuid.UUID]*models.AffiliateEarning{}},
		audit:    &fakeAudit{},
		emitter:  &fakeEmitter{},
	}
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
	svc, err := NewService(
		&fakeTransactor{}, h.orders, h.coupons, h.links, h.earnings, h.audit,
		h.emitter, newTestAggregator(), nil, logg,
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	h.svc = svc
	return h
}

// seedOrder wires an attributed order with a default 10% rule and
// returns it alongside its link.
func (h *serviceHarness) seedOrder(t *testing.T) *models.Order {
	t.Helper()
	link := &models.StoreAffiliate{
		ID:           uuid.New(),
		StoreID:      uuid.New(),
		AffiliateID:  uuid.New(),
		ReferralCode: "maria10",
		Active:       true,
		Rules:        []models.CommissionRule{defaultRule(enums.CommissionBasisPercentage, "10")},
	}
	h.links.links[link.ID] = link

	order := &models.Order{
		ID:               uuid.New(),
		StoreID:          link.StoreID,
		StoreAffiliateID: &link.ID,
		CustomerName:     "Ana Souza",
		Status:           enums.OrderStatusConfirmed,
		Subtotal:         dec("410"),
		Total:            dec("410"),
		Items:            fixtureOrderItems(),
	}
	h.orders.byID[order.ID] = order
	return order
}

func errCode(t *testing.T, err error) pkgerrors.Code {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error")
	}
	return pkgerrors.As(err).Code()
}

func TestCreateForOrderComputesEarning(t *testing.T) {
	h := newHarness(t)
	order := h.seedOrder(t)

	earning, err := h.svc.CreateForOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("CreateForOrder: %v", err)
	}
	if !earning.CommissionAmount.Equal(dec("41.00")) {
		t.Fatalf("commission = %s, want 41.00", earning.CommissionAmount)
	}
	if earning.Status != enums.EarningStatusPending {
		t.Fatalf("status = %s, want pending", earning.Status)
	}
	if earning.CommissionAvailableAt != nil {
		t.Fatalf("availability must not be stamped before delivery")
	}
	if len(earning.Items) != 3 {
		t.Fatalf("item earnings = %d, want 3", len(earning.Items))
	}
	if len(h.emitter.events) != 1 || h.emitter.events[0].EventType != enums.OutboxEventEarningCreated {
		t.Fatalf("expected one earning.created event, got %+v", h.emitter.events)
	}
}

func TestCreateForOrderIsIdempotent(t *testing.T) {
	h := newHarness(t)
	order := h.seedOrder(t)

	first, err := h.svc.CreateForOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := h.svc.CreateForOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("second call must return the existing earning")
	}
	if h.earnings.createCalls != 1 {
		t.Fatalf("create calls = %d, want 1", h.earnings.createCalls)
	}
	if len(h.emitter.events) != 1 {
		t.Fatalf("events = %d, want 1", len(h.emitter.events))
	}
}

func TestCreateForOrderMissingReferences(t *testing.T) {
	h := newHarness(t)

	if code := errCode(t, func() error {
		_, err := h.svc.CreateForOrder(context.Background(), uuid.New())
		return err
	}()); code != pkgerrors.CodeMissingReference {
		t.Fatalf("missing order code = %s", code)
	}

	unattributed := &models.Order{ID: uuid.New(), StoreID: uuid.New(), Items: fixtureOrderItems()}
	h.orders.byID[unattributed.ID] = unattributed
	if code := errCode(t, func() error {
		_, err := h.svc.CreateForOrder(context.Background(), unattributed.ID)
		return err
	}()); code != pkgerrors.CodeMissingReference {
		t.Fatalf("unattributed order code = %s", code)
	}

	order := h.seedOrder(t)
	danglingCoupon := uuid.New()
	order.CouponID = &danglingCoupon
	h.orders.byID[order.ID] = order
	if code := errCode(t, func() error {
		_, err := h.svc.CreateForOrder(context.Background(), order.ID)
		return err
	}()); code != pkgerrors.CodeMissingReference {
		t.Fatalf("dangling coupon code = %s", code)
	}
	if h.earnings.createCalls != 0 {
		t.Fatalf("no earning may be written when references dangle")
	}
}

func TestRecalculateWritesAuditOnChange(t *testing.T) {
	h := newHarness(t)
	order := h.seedOrder(t)
	earning, err := h.svc.CreateForOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("CreateForOrder: %v", err)
	}

	// Drop the 150 line; commission falls from 41.00 to 26.00.
	shrunk := h.orders.byID[order.ID]
	shrunk.Items = shrunk.Items[:2]

	result, err := h.svc.Recalculate(context.Background(), order.ID, RecalculateInput{
		Reason:      "item removed by merchant",
		TriggeredBy: "merchant",
	})
	if err != nil {
		t.Fatalf("Recalculate: %v", err)
	}
	if !result.Changed {
		t.Fatalf("expected a changed result")
	}
	if !result.Difference.Equal(dec("-15.00")) {
		t.Fatalf("difference = %s, want -15.00", result.Difference)
	}
	if !result.Earning.CommissionAmount.Equal(dec("26.00")) {
		t.Fatalf("new amount = %s, want 26.00", result.Earning.CommissionAmount)
	}

	if len(h.audit.entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(h.audit.entries))
	}
	entry := h.audit.entries[0]
	if !entry.OldCommissionAmount.Equal(dec("41.00")) || !entry.NewCommissionAmount.Equal(dec("26.00")) {
		t.Fatalf("audit amounts = %s -> %s", entry.OldCommissionAmount, entry.NewCommissionAmount)
	}
	if entry.OldItemCount != 3 || entry.NewItemCount != 2 {
		t.Fatalf("audit item counts = %d -> %d", entry.OldItemCount, entry.NewItemCount)
	}
	if entry.Reason != "item removed by merchant" {
		t.Fatalf("audit reason = %q", entry.Reason)
	}

	if len(h.earnings.replaced[earning.ID]) != 2 {
		t.Fatalf("item earnings must be replaced with the new breakdown")
	}
	synced := h.orders.byID[order.ID]
	if !synced.Total.Equal(dec("260")) {
		t.Fatalf("order total = %s, want 260", synced.Total)
	}

	var recalcEvents int
	for _, event := range h.emitter.events {
		if event.EventType == enums.OutboxEventCommissionRecalculated {
			recalcEvents++
		}
	}
	if recalcEvents != 1 {
		t.Fatalf("recalculated events = %d, want 1", recalcEvents)
	}
}

func TestRecalculateUnchangedSkipsAudit(t *testing.T) {
	h := newHarness(t)
	order := h.seedOrder(t)
	if _, err := h.svc.CreateForOrder(context.Background(), order.ID); err != nil {
		t.Fatalf("CreateForOrder: %v", err)
	}

	result, err := h.svc.Recalculate(context.Background(), order.ID, RecalculateInput{Reason: "routine check"})
	if err != nil {
		t.Fatalf("Recalculate: %v", err)
	}
	if result.Changed || !result.Difference.IsZero() {
		t.Fatalf("expected no change, got diff %s", result.Difference)
	}
	if len(h.audit.entries) != 0 {
		t.Fatalf("unchanged recalculation must not write audit rows")
	}
	for _, event := range h.emitter.events {
		if event.EventType == enums.OutboxEventCommissionRecalculated {
			t.Fatalf("unchanged recalculation must not emit events")
		}
	}
}

func TestCreateForOrderWarnsOnInapplicableCoupon(t *testing.T) {
	h := newHarness(t)
	order := h.seedOrder(t)

	// Coupon expired before the order was ever placed: the earning
	// falls back to gross values and the drop is logged.
	placedAt := time.Now().UTC().Add(-24 * time.Hour)
	until := placedAt.Add(-time.Hour)
	coupon := percentCoupon("10")
	coupon.ValidUntil = &until
	h.coupons.byID[coupon.ID] = coupon
	order.CreatedAt = placedAt
	order.CouponID = &coupon.ID
	h.orders.byID[order.ID] = order

	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.WarnLevel, Output: &buf})
	svc, err := NewService(
		&fakeTransactor{}, h.orders, h.coupons, h.links, h.earnings, h.audit,
		h.emitter, newTestAggregator(), nil, logg,
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	earning, err := svc.CreateForOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("CreateForOrder: %v", err)
	}
	if !earning.CommissionAmount.Equal(dec("41.00")) {
		t.Fatalf("commission = %s, want 41.00 on gross values", earning.CommissionAmount)
	}
	logged := buf.String()
	if !strings.Contains(logged, "coupon not applicable") {
		t.Fatalf("expected a warning about the dropped coupon, got %q", logged)
	}
	if !strings.Contains(logged, string(coupons.ReasonExpired)) {
		t.Fatalf("warning must carry the reason, got %q", logged)
	}
}

func TestRecalculateKeepsLapsedCouponDiscount(t *testing.T) {
	h := newHarness(t)
	order := h.seedOrder(t)

	// The coupon window covered placement but has since closed. Both
	// the initial computation and any later recalculation anchor at
	// the order's creation time, so the discount never evaporates.
	placedAt := time.Now().UTC().Add(-72 * time.Hour)
	until := placedAt.Add(24 * time.Hour)
	coupon := percentCoupon("10")
	coupon.ValidUntil = &until
	h.coupons.byID[coupon.ID] = coupon
	order.CreatedAt = placedAt
	order.CouponID = &coupon.ID
	h.orders.byID[order.ID] = order

	earning, err := h.svc.CreateForOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("CreateForOrder: %v", err)
	}
	if !earning.CommissionAmount.Equal(dec("36.90")) {
		t.Fatalf("commission = %s, want 36.90", earning.CommissionAmount)
	}

	result, err := h.svc.Recalculate(context.Background(), order.ID, RecalculateInput{Reason: "routine check"})
	if err != nil {
		t.Fatalf("Recalculate: %v", err)
	}
	if result.Changed || !result.Difference.IsZero() {
		t.Fatalf("untouched order must not change, got diff %s", result.Difference)
	}
	if !result.Earning.CommissionAmount.Equal(dec("36.90")) {
		t.Fatalf("recalculated amount = %s, want 36.90", result.Earning.CommissionAmount)
	}
	if len(h.audit.entries) != 0 {
		t.Fatalf("unchanged recalculation must not write audit rows")
	}
	for _, event := range h.emitter.events {
		if event.EventType == enums.OutboxEventCommissionRecalculated {
			t.Fatalf("unchanged recalculation must not emit events")
		}
	}
}

func TestRecalculateValidation(t *testing.T) {
	h := newHarness(t)
	order := h.seedOrder(t)

	_, err := h.svc.Recalculate(context.Background(), order.ID, RecalculateInput{Reason: "   "})
	if code := errCode(t, err); code != pkgerrors.CodeValidation {
		t.Fatalf("blank reason code = %s", code)
	}

	_, err = h.svc.Recalculate(context.Background(), order.ID, RecalculateInput{Reason: "audit"})
	if code := errCode(t, err); code != pkgerrors.CodeNotFound {
		t.Fatalf("missing earning code = %s", code)
	}
}
