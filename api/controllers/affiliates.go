package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/lojinha-app/lojinha-backend/api/responses"
	"github.com/lojinha-app/lojinha-backend/api/validators"
	"github.com/lojinha-app/lojinha-backend/internal/affiliates"
	"github.com/lojinha-app/lojinha-backend/pkg/enums"
	"github.com/lojinha-app/lojinha-backend/pkg/logger"
)

type affiliateRegisterRequest struct {
	Name   string  `json:"name" validate:"required,min=1"`
	Email  string  `json:"email" validate:"required,email"`
	PixKey *string `json:"pix_key,omitempty"`
}

func AffiliateRegister(svc affiliates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req affiliateRegisterRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		affiliate, err := svc.Register(r.Context(), affiliates.RegisterInput{
			Name:   req.Name,
			Email:  req.Email,
			PixKey: req.PixKey,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, affiliate)
	}
}

func AffiliateGet(svc affiliates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		affiliateID, err := uuidParam(r, "affiliateID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		affiliate, err := svc.Get(r.Context(), affiliateID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, affiliate)
	}
}

type affiliateLinkRequest struct {
	AffiliateID  string `json:"affiliate_id" validate:"required,uuid"`
	ReferralCode string `json:"referral_code" validate:"required,min=1"`
}

func AffiliateLink(svc affiliates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := uuidParam(r, "storeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req affiliateLinkRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		link, err := svc.LinkToStore(r.Context(), affiliates.LinkInput{
			StoreID:      storeID,
			AffiliateID:  mustUUID(req.AffiliateID),
			ReferralCode: req.ReferralCode,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, link)
	}
}

func AffiliateLinkGet(svc affiliates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := uuidParam(r, "storeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		affiliateID, err := uuidParam(r, "affiliateID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		link, err := svc.GetLink(r.Context(), storeID, affiliateID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, link)
	}
}

func AffiliateLinkList(svc affiliates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := uuidParam(r, "storeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		links, err := svc.ListStoreLinks(r.Context(), storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, links)
	}
}

type commissionRuleRequest struct {
	AppliesTo       string          `json:"applies_to" validate:"required,oneof=product category default"`
	ProductID       *string         `json:"product_id,omitempty"`
	CategoryName    *string         `json:"category_name,omitempty"`
	CommissionType  string          `json:"commission_type" validate:"required,oneof=percentage fixed"`
	CommissionValue decimal.Decimal `json:"commission_value" validate:"required"`
}

func CommissionRuleAdd(svc affiliates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		linkID, err := uuidParam(r, "linkID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req commissionRuleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rule, err := svc.AddRule(r.Context(), affiliates.AddRuleInput{
			StoreAffiliateID: linkID,
			AppliesTo:        enums.CommissionAppliesTo(req.AppliesTo),
			ProductID:        req.ProductID,
			CategoryName:     req.CategoryName,
			CommissionType:   enums.CommissionBasis(req.CommissionType),
			CommissionValue:  req.CommissionValue,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, rule)
	}
}

func CommissionRuleList(svc affiliates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		linkID, err := uuidParam(r, "linkID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rules, err := svc.ListRules(r.Context(), linkID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rules)
	}
}

func CommissionRuleDeactivate(svc affiliates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		linkID, err := uuidParam(r, "linkID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ruleID, err := uuidParam(r, "ruleID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeactivateRule(r.Context(), linkID, ruleID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deactivated"})
	}
}
