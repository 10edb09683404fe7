package controllers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lojinha-app/lojinha-backend/api/responses"
	"github.com/lojinha-app/lojinha-backend/api/validators"
	"github.com/lojinha-app/lojinha-backend/internal/coupons"
	"github.com/lojinha-app/lojinha-backend/pkg/enums"
	"github.com/lojinha-app/lojinha-backend/pkg/logger"
	"github.com/lojinha-app/lojinha-backend/pkg/types"
)

type discountRuleRequest struct {
	RuleType      string          `json:"rule_type" validate:"required,oneof=product category"`
	ProductID     *string         `json:"product_id,omitempty"`
	CategoryName  *string         `json:"category_name,omitempty"`
	DiscountType  string          `json:"discount_type" validate:"required,oneof=percentage fixed"`
	DiscountValue decimal.Decimal `json:"discount_value" validate:"required"`
}

type couponCreateRequest struct {
	Code          string                `json:"code" validate:"required,min=1"`
	DiscountType  string                `json:"discount_type" validate:"required,oneof=percentage fixed"`
	DiscountValue decimal.Decimal       `json:"discount_value" validate:"required"`
	Scope         string                `json:"scope" validate:"required,oneof=all products categories"`
	ProductIDs    []string              `json:"product_ids,omitempty"`
	CategoryNames []string              `json:"category_names,omitempty"`
	MinOrderValue *decimal.Decimal      `json:"min_order_value,omitempty"`
	UsageLimit    *int                  `json:"usage_limit,omitempty"`
	ValidFrom     *time.Time            `json:"valid_from,omitempty"`
	ValidUntil    *time.Time            `json:"valid_until,omitempty"`
	Rules         []discountRuleRequest `json:"rules,omitempty" validate:"dive"`
}

func CouponCreate(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := uuidParam(r, "storeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req couponCreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := coupons.CreateCouponInput{
			StoreID:       storeID,
			Code:          req.Code,
			DiscountType:  enums.DiscountType(req.DiscountType),
			DiscountValue: req.DiscountValue,
			Scope:         enums.CouponScope(req.Scope),
			ProductIDs:    req.ProductIDs,
			CategoryNames: req.CategoryNames,
			MinOrderValue: req.MinOrderValue,
			UsageLimit:    req.UsageLimit,
			ValidFrom:     req.ValidFrom,
			ValidUntil:    req.ValidUntil,
		}
		for _, rule := range req.Rules {
			input.Rules = append(input.Rules, coupons.DiscountRuleInput{
				RuleType:      enums.DiscountRuleType(rule.RuleType),
				ProductID:     rule.ProductID,
				CategoryName:  rule.CategoryName,
				DiscountType:  enums.DiscountType(rule.DiscountType),
				DiscountValue: rule.DiscountValue,
			})
		}

		coupon, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, coupon)
	}
}

func CouponGet(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := uuidParam(r, "storeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		couponID, err := uuidParam(r, "couponID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		coupon, err := svc.Get(r.Context(), storeID, couponID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, coupon)
	}
}

func CouponList(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := uuidParam(r, "storeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, maxPageSize)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), coupons.ListParams{
			StoreID:    storeID,
			Limit:      limit,
			Cursor:     r.URL.Query().Get("cursor"),
			ActiveOnly: r.URL.Query().Get("active") == "true",
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func CouponDeactivate(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := uuidParam(r, "storeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		couponID, err := uuidParam(r, "couponID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Deactivate(r.Context(), storeID, couponID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deactivated"})
	}
}

type couponValidateRequest struct {
	Code          string          `json:"code" validate:"required,min=1"`
	OrderSubtotal decimal.Decimal `json:"order_subtotal" validate:"required"`
}

// CouponValidate answers whether a coupon can be applied to an order of
// the given subtotal. A non-applicable coupon is a 200 with the reason,
// not an error.
func CouponValidate(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := uuidParam(r, "storeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req couponValidateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := svc.Validate(r.Context(), storeID, req.Code, req.OrderSubtotal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, outcome)
	}
}

type couponPreviewRequest struct {
	Code  string           `json:"code" validate:"required,min=1"`
	Items []types.CartItem `json:"items" validate:"required,min=1"`
}

// CouponPreview returns the exact per-item discount split a coupon
// would produce on the given cart.
func CouponPreview(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := uuidParam(r, "storeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req couponPreviewRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		allocation, err := svc.Preview(r.Context(), storeID, req.Code, req.Items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, allocation)
	}
}
