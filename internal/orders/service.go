package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lojinha-app/lojinha-backend/internal/affiliates"
	"github.com/lojinha-app/lojinha-backend/internal/coupons"
	"github.com/lojinha-app/lojinha-backend/internal/earnings"
	"github.com/lojinha-app/lojinha-backend/internal/stores"
	"github.com/lojinha-app/lojinha-backend/pkg/db/models"
	"github.com/lojinha-app/lojinha-backend/pkg/enums"
	pkgerrors "github.com/lojinha-app/lojinha-backend/pkg/errors"
	"github.com/lojinha-app/lojinha-backend/pkg/logger"
	"github.com/lojinha-app/lojinha-backend/pkg/pagination"
	"github.com/lojinha-app/lojinha-backend/pkg/types"
)

// Service handles storefront order intake and lifecycle transitions.
// Delivery is the transition that anchors commission maturation.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	Get(ctx context.Context, storeID, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	UpdateStatus(ctx context.Context, storeID, orderID uuid.UUID, status enums.OrderStatus) (*models.Order, error)
	MarkDelivered(ctx context.Context, storeID, orderID uuid.UUID) (*models.Order, error)
	Cancel(ctx context.Context, storeID, orderID uuid.UUID) (*models.Order, error)
}

// EarningCreator creates the affiliate earning for a newly placed
// order inside the caller's transaction. Satisfied by the commission
// service.
type EarningCreator interface {
	CreateForOrderTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.AffiliateEarning, error)
}

// Transactor runs a function inside one database transaction.
// Satisfied by *db.Client.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateInput is the checkout payload for a new order.
type CreateInput struct {
	StoreID      uuid.UUID        `json:"store_id"`
	CustomerName string           `json:"customer_name"`
	Items        []types.CartItem `json:"items"`
	CouponCode   string           `json:"coupon_code"`
	ReferralCode string           `json:"referral_code"`
}

// ListParams filters a store's order listing.
type ListParams struct {
	StoreID uuid.UUID
	Limit   int
	Cursor  string
}

// ListResult wraps returned orders and the cursor for the next page.
type ListResult struct {
	Items  []models.Order `json:"items"`
	Cursor string         `json:"cursor"`
}

type service struct {
	client     Transactor
	repo       Repository
	stores     stores.Repository
	affiliates affiliates.Repository
	coupons    coupons.Service
	allocator  *coupons.Allocator
	earnings   earnings.Service
	commission EarningCreator
	logg       *logger.Logger
	now        func() time.Time
}

// NewService wires order dependencies.
func NewService(
	client Transactor,
	repo Repository,
	storesRepo stores.Repository,
	affiliatesRepo affiliates.Repository,
	couponsSvc coupons.Service,
	allocator *coupons.Allocator,
	earningsSvc earnings.Service,
	commission EarningCreator,
	logg *logger.Logger,
) (Service, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db client required")
	}
	if repo == nil || storesRepo == nil || affiliatesRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order repositories required")
	}
	if couponsSvc == nil || allocator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "coupon dependencies required")
	}
	if earningsSvc == nil || commission == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "earning dependencies required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		client:     client,
		repo:       repo,
		stores:     storesRepo,
		affiliates: affiliatesRepo,
		coupons:    couponsSvc,
		allocator:  allocator,
		earnings:   earningsSvc,
		commission: commission,
		logg:       logg,
		now:        time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	customer := strings.TrimSpace(input.CustomerName)
	if customer == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name is required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must have at least one item")
	}
	for i, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive").
				WithDetails(map[string]any{"index": i, "product_id": item.ProductID})
		}
		if item.ProductID == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item product id is required").
				WithDetails(map[string]any{"index": i})
		}
	}

	store, err := s.stores.FindByID(ctx, input.StoreID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeMissingReference, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}

	order := &models.Order{
		StoreID:      store.ID,
		CustomerName: customer,
		Status:       enums.OrderStatusPending,
		Subtotal:     types.CartSubtotal(input.Items),
	}
	order.Total = order.Subtotal

	// Unknown or inactive referral codes drop attribution instead of
	// failing checkout; the buyer should never pay for a stale link.
	if code := strings.TrimSpace(input.ReferralCode); code != "" {
		link, err := s.affiliates.FindLinkByReferralCode(ctx, store.ID, code)
		switch {
		case err == nil && link.Active:
			order.StoreAffiliateID = &link.ID
		case err == nil:
			s.logg.Warn(s.logg.WithField(ctx, "referral_code", code), "inactive referral link ignored")
		case errors.Is(err, gorm.ErrRecordNotFound):
			s.logg.Warn(s.logg.WithField(ctx, "referral_code", code), "unknown referral code ignored")
		default:
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve referral code")
		}
	}

	var coupon *models.Coupon
	if code := strings.TrimSpace(input.CouponCode); code != "" {
		outcome, err := s.coupons.Validate(ctx, store.ID, code, order.Subtotal)
		if err != nil {
			return nil, err
		}
		if !outcome.Valid {
			return nil, pkgerrors.New(pkgerrors.CodeCouponInvalid, "coupon cannot be applied").
				WithDetails(map[string]any{"reason": string(outcome.Reason)})
		}
		coupon = outcome.Coupon
		allocation := s.allocator.Allocate(input.Items, *coupon, s.now())
		if allocation.Invalid != "" {
			return nil, pkgerrors.New(pkgerrors.CodeCouponInvalid, "coupon cannot be applied").
				WithDetails(map[string]any{"reason": string(allocation.Invalid)})
		}
		order.CouponID = &coupon.ID
		order.DiscountTotal = allocation.TotalDiscount
		order.Total = allocation.OrderSubtotal.Sub(allocation.TotalDiscount)
	}

	order.Items = make([]models.OrderItem, len(input.Items))
	for i, item := range input.Items {
		order.Items[i] = models.OrderItem{
			ProductID:        item.ProductID,
			ProductName:      item.ProductName,
			CategoryName:     item.CategoryName,
			UnitPrice:        item.UnitPrice,
			PromotionalPrice: item.PromotionalPrice,
			Quantity:         item.Quantity,
			Addons:           item.Addons,
			Flavors:          item.Flavors,
			SelectedSize:     item.SelectedSize,
			SelectedColor:    item.SelectedColor,
			Subtotal:         item.Subtotal(),
		}
	}

	// Order and earning commit together; a failed earning write rolls
	// the whole placement back so a storefront retry starts clean.
	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		if order.StoreAffiliateID != nil {
			if _, err := s.commission.CreateForOrderTx(ctx, tx, order.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create affiliate earning")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if coupon != nil {
		if err := s.coupons.RecordUsage(ctx, coupon.ID); err != nil {
			s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "record coupon usage", err)
		}
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id": order.ID.String(),
		"store_id": store.ID.String(),
		"total":    order.Total.String(),
	})
	s.logg.Info(logCtx, "order created")
	return order, nil
}

func (s *service) Get(ctx context.Context, storeID, orderID uuid.UUID) (*models.Order, error) {
	return s.fetch(ctx, storeID, orderID)
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := ListOrdersParams{StoreID: params.StoreID, Limit: params.Limit}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListByStore(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) UpdateStatus(ctx context.Context, storeID, orderID uuid.UUID, status enums.OrderStatus) (*models.Order, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	switch status {
	case enums.OrderStatusDelivered:
		return s.MarkDelivered(ctx, storeID, orderID)
	case enums.OrderStatusCanceled:
		return s.Cancel(ctx, storeID, orderID)
	}

	order, err := s.fetch(ctx, storeID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == enums.OrderStatusDelivered || order.Status == enums.OrderStatusCanceled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is in a terminal status")
	}
	order.Status = status
	if err := s.repo.Update(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	return order, nil
}

// MarkDelivered stamps the delivery time and anchors the maturation
// window for any attributed earning, atomically.
func (s *service) MarkDelivered(ctx context.Context, storeID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.fetch(ctx, storeID, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanDeliver() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be delivered from its current status").
			WithDetails(map[string]any{"status": string(order.Status)})
	}

	store, err := s.stores.FindByID(ctx, order.StoreID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store settings")
	}

	deliveredAt := s.now()
	order.Status = enums.OrderStatusDelivered
	order.DeliveredAt = &deliveredAt

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Update(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order delivered")
		}
		if order.StoreAffiliateID == nil {
			return nil
		}
		availableAt, err := s.earnings.StampAvailability(ctx, tx, order.ID, deliveredAt, store.MaturityDays)
		if err != nil {
			return err
		}
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":     order.ID.String(),
			"available_at": availableAt,
		})
		s.logg.Info(logCtx, "commission maturation anchored")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Cancel(ctx context.Context, storeID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.fetch(ctx, storeID, orderID)
	if err != nil {
		return nil, err
	}
	switch order.Status {
	case enums.OrderStatusCanceled:
		return order, nil
	case enums.OrderStatusDelivered:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "delivered orders cannot be canceled")
	}

	canceledAt := s.now()
	order.Status = enums.OrderStatusCanceled
	order.CanceledAt = &canceledAt
	if err := s.repo.Update(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
	}
	return order, nil
}

func (s *service) fetch(ctx context.Context, storeID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.StoreID != storeID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}
