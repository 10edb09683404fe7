package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/lojinha-app/lojinha-backend/api/responses"
	"github.com/lojinha-app/lojinha-backend/api/validators"
	"github.com/lojinha-app/lojinha-backend/internal/audit"
	pkgerrors "github.com/lojinha-app/lojinha-backend/pkg/errors"
	"github.com/lojinha-app/lojinha-backend/pkg/logger"
)

func AuditListByOrder(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := uuidParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entries, err := svc.ListByOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}

func AuditList(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
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

		affiliateID := uuid.Nil
		if raw := r.URL.Query().Get("affiliate_id"); raw != "" {
			affiliateID, err = uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "invalid affiliate_id query parameter"))
				return
			}
		}

		result, err := svc.List(r.Context(), audit.ListParams{
			StoreID:     storeID,
			AffiliateID: affiliateID,
			Limit:       limit,
			Cursor:      r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AuditStats aggregates a store's recalculation history for the
// transparency dashboard.
func AuditStats(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := uuidParam(r, "storeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stats, err := svc.Stats(r.Context(), storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}
