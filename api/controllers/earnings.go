package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/lojinha-app/lojinha-backend/api/responses"
	"github.com/lojinha-app/lojinha-backend/api/validators"
	"github.com/lojinha-app/lojinha-backend/internal/earnings"
	pkgerrors "github.com/lojinha-app/lojinha-backend/pkg/errors"
	"github.com/lojinha-app/lojinha-backend/pkg/logger"
)

func EarningList(svc earnings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		affiliateID, err := uuidParam(r, "affiliateID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, maxPageSize)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// store_id narrows the history to one store when present.
		storeID := uuid.Nil
		if raw := r.URL.Query().Get("store_id"); raw != "" {
			storeID, err = uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "invalid store_id query parameter"))
				return
			}
		}

		result, err := svc.List(r.Context(), earnings.ListParams{
			AffiliateID: affiliateID,
			StoreID:     storeID,
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

func EarningGet(svc earnings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		affiliateID, err := uuidParam(r, "affiliateID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		earningID, err := uuidParam(r, "earningID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Get(r.Context(), affiliateID, earningID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// EarningBalance reports the matured, unpaid total for one
// affiliate/store pair. The amount a withdrawal would snapshot.
func EarningBalance(svc earnings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		affiliateID, err := uuidParam(r, "affiliateID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		storeID, err := uuidQuery(r, "store_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		balance, err := svc.AvailableBalance(r.Context(), affiliateID, storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, balance)
	}
}
