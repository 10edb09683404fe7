package commission

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lojinha-app/lojinha-backend/internal/affiliates"
	"github.com/lojinha-app/lojinha-backend/internal/audit"
	"github.com/lojinha-app/lojinha-backend/internal/coupons"
	"github.com/lojinha-app/lojinha-backend/internal/earnings"
	"github.com/lojinha-app/lojinha-backend/internal/orders"
	"github.com/lojinha-app/lojinha-backend/pkg/db"
	"github.com/lojinha-app/lojinha-backend/pkg/db/models"
	"github.com/lojinha-app/lojinha-backend/pkg/enums"
	pkgerrors "github.com/lojinha-app/lojinha-backend/pkg/errors"
	"github.com/lojinha-app/lojinha-backend/pkg/logger"
	"github.com/lojinha-app/lojinha-backend/pkg/metrics"
	"github.com/lojinha-app/lojinha-backend/pkg/outbox"
)

// Service owns the earning lifecycle: creating the earning when an
// attributed order lands and recalculating it when the order changes.
// CreateForOrderTx runs inside the caller's transaction so order and
// earning commit or roll back together.
type Service interface {
	CreateForOrder(ctx context.Context, orderID uuid.UUID) (*models.AffiliateEarning, error)
	CreateForOrderTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.AffiliateEarning, error)
	Recalculate(ctx context.Context, orderID uuid.UUID, input RecalculateInput) (*RecalculateResult, error)
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

// RecalculateInput records who asked for the recalculation and why.
// Both end up verbatim in the audit log.
type RecalculateInput struct {
	Reason      string `json:"reason"`
	TriggeredBy string `json:"triggered_by"`
}

// RecalculateResult reports the earning after recalculation and how far
// the commission moved.
type RecalculateResult struct {
	Earning    *models.AffiliateEarning `json:"earning"`
	Difference decimal.Decimal          `json:"difference"`
	Changed    bool                     `json:"changed"`
}

type service struct {
	client     Transactor
	orders     orders.Repository
	coupons    coupons.Repository
	affiliates affiliates.Repository
	earnings   earnings.Repository
	audit      audit.Repository
	outbox     EventEmitter
	aggregator *Aggregator
	metrics    *metrics.CommissionMetrics
	logg       *logger.Logger
	now        func() time.Time
}

// NewService wires the commission orchestration dependencies. Metrics
// may be nil; everything else is required.
func NewService(
	client Transactor,
	ordersRepo orders.Repository,
	couponsRepo coupons.Repository,
	affiliatesRepo affiliates.Repository,
	earningsRepo earnings.Repository,
	auditRepo audit.Repository,
	outboxSvc EventEmitter,
	aggregator *Aggregator,
	commissionMetrics *metrics.CommissionMetrics,
	logg *logger.Logger,
) (Service, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db client required")
	}
	if ordersRepo == nil || couponsRepo == nil || affiliatesRepo == nil || earningsRepo == nil || auditRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "commission repositories required")
	}
	if outboxSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox service required")
	}
	if aggregator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "aggregator required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		client:     client,
		orders:     ordersRepo,
		coupons:    couponsRepo,
		affiliates: affiliatesRepo,
		earnings:   earningsRepo,
		audit:      auditRepo,
		outbox:     outboxSvc,
		aggregator: aggregator,
		metrics:    commissionMetrics,
		logg:       logg,
		now:        time.Now,
	}, nil
}

// orderContext gathers everything a commission computation needs. Any
// dangling reference fails the whole operation; there are no partial
// computations.
type orderContext struct {
	order  *models.Order
	link   *models.StoreAffiliate
	coupon *models.Coupon
}

func (s *service) loadOrderContext(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*orderContext, error) {
	order, err := s.orders.WithTx(tx).FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeMissingReference, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order.StoreAffiliateID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeMissingReference, "order has no affiliate attribution")
	}

	link, err := s.affiliates.WithTx(tx).FindLinkByID(ctx, *order.StoreAffiliateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeMissingReference, "affiliate link not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load affiliate link")
	}

	oc := &orderContext{order: order, link: link}
	if order.CouponID != nil {
		coupon, err := s.coupons.WithTx(tx).FindByID(ctx, *order.CouponID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeMissingReference, "coupon not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load coupon")
		}
		oc.coupon = coupon
	}
	return oc, nil
}

// compute runs the aggregator anchored at the order's placement time, so
// a coupon that was valid at checkout keeps its discount no matter when
// the earning math runs. A coupon that still comes back inapplicable is
// logged; the earning proceeds on gross values.
func (s *service) compute(ctx context.Context, oc *orderContext) Computed {
	computed := s.aggregator.Compute(oc.order.Items, oc.coupon, oc.link.Rules, oc.order.CreatedAt)
	if computed.CouponInvalid != "" && oc.order.CouponID != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":  oc.order.ID.String(),
			"coupon_id": oc.order.CouponID.String(),
			"reason":    string(computed.CouponInvalid),
		})
		s.logg.Warn(logCtx, "order coupon not applicable, commission computed on gross values")
	}
	return computed
}

func (s *service) CreateForOrder(ctx context.Context, orderID uuid.UUID) (*models.AffiliateEarning, error) {
	var earning *models.AffiliateEarning
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.CreateForOrderTx(ctx, tx, orderID)
		if err != nil {
			return err
		}
		earning = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return earning, nil
}

func (s *service) CreateForOrderTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.AffiliateEarning, error) {
	oc, err := s.loadOrderContext(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	erepo := s.earnings.WithTx(tx)
	existing, err := erepo.FindByOrderAndAffiliate(ctx, orderID, oc.link.AffiliateID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check existing earning")
	}

	computed := s.compute(ctx, oc)
	earning := &models.AffiliateEarning{
		OrderID:          orderID,
		AffiliateID:      oc.link.AffiliateID,
		StoreAffiliateID: oc.link.ID,
		StoreID:          oc.order.StoreID,
		CommissionAmount: computed.CommissionAmount,
		CommissionType:   computed.CommissionType,
		CommissionValue:  computed.CommissionValue,
		OrderTotal:       computed.OrderTotal,
		Status:           enums.EarningStatusPending,
		Items:            computed.ToItemEarnings(uuid.Nil),
	}

	if err := erepo.Create(ctx, earning); err != nil {
		if db.IsUniqueViolation(err, "idx_earning_order_affiliate") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "earning already exists for order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create earning")
	}
	err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.OutboxEventEarningCreated,
		AggregateType: enums.OutboxAggregateEarning,
		AggregateID:   earning.ID,
		Data: map[string]any{
			"earning_id":        earning.ID.String(),
			"order_id":          orderID.String(),
			"affiliate_id":      oc.link.AffiliateID.String(),
			"store_id":          oc.order.StoreID.String(),
			"commission_amount": computed.CommissionAmount.String(),
		},
		Version:    1,
		OccurredAt: s.now(),
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"earning_id":        earning.ID.String(),
		"order_id":          orderID.String(),
		"affiliate_id":      oc.link.AffiliateID.String(),
		"commission_amount": computed.CommissionAmount.String(),
	})
	s.logg.Info(logCtx, "affiliate earning created")
	return earning, nil
}

func (s *service) Recalculate(ctx context.Context, orderID uuid.UUID, input RecalculateInput) (*RecalculateResult, error) {
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recalculation reason required")
	}
	triggeredBy := strings.TrimSpace(input.TriggeredBy)
	if triggeredBy == "" {
		triggeredBy = "merchant"
	}

	oc, err := s.loadOrderContext(ctx, nil, orderID)
	if err != nil {
		return nil, err
	}
	earning, err := s.earnings.FindByOrderAndAffiliate(ctx, orderID, oc.link.AffiliateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no earning recorded for order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load earning")
	}

	computed := s.compute(ctx, oc)
	diff := computed.CommissionAmount.Sub(earning.CommissionAmount)

	entry := &models.CommissionAuditLog{
		OrderID:             orderID,
		EarningID:           earning.ID,
		StoreID:             earning.StoreID,
		AffiliateID:         earning.AffiliateID,
		OldOrderTotal:       earning.OrderTotal,
		NewOrderTotal:       computed.OrderTotal,
		OldCouponDiscount:   oc.order.DiscountTotal,
		NewCouponDiscount:   computed.DiscountTotal,
		OldCommissionAmount: earning.CommissionAmount,
		NewCommissionAmount: computed.CommissionAmount,
		OldItemCount:        len(earning.Items),
		NewItemCount:        len(computed.Items),
		Difference:          diff,
		Reason:              reason,
		TriggeredBy:         triggeredBy,
	}

	earning.CommissionAmount = computed.CommissionAmount
	earning.CommissionType = computed.CommissionType
	earning.CommissionValue = computed.CommissionValue
	earning.OrderTotal = computed.OrderTotal

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		erepo := s.earnings.WithTx(tx)
		if err := erepo.Update(ctx, earning); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update earning")
		}
		if err := erepo.ReplaceItems(ctx, earning.ID, computed.ToItemEarnings(earning.ID)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "replace item earnings")
		}

		oc.order.Subtotal = computed.OrderSubtotal
		oc.order.DiscountTotal = computed.DiscountTotal
		oc.order.Total = computed.OrderTotal
		if err := s.orders.WithTx(tx).Update(ctx, oc.order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sync order totals")
		}

		if diff.IsZero() {
			return nil
		}
		if err := s.audit.WithTx(tx).Append(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append audit log")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventCommissionRecalculated,
			AggregateType: enums.OutboxAggregateEarning,
			AggregateID:   earning.ID,
			Data: map[string]any{
				"earning_id":   earning.ID.String(),
				"order_id":     orderID.String(),
				"affiliate_id": earning.AffiliateID.String(),
				"old_amount":   entry.OldCommissionAmount.String(),
				"new_amount":   entry.NewCommissionAmount.String(),
				"difference":   diff.String(),
				"reason":       reason,
			},
			Version:    1,
			OccurredAt: s.now(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveRecalculation(diff.InexactFloat64())
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"earning_id": earning.ID.String(),
		"order_id":   orderID.String(),
		"difference": diff.String(),
		"reason":     reason,
	})
	s.logg.Info(logCtx, "commission recalculated")

	return &RecalculateResult{Earning: earning, Difference: diff, Changed: !diff.IsZero()}, nil
}
