package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lojinha-app/lojinha-backend/api/controllers"
	"github.com/lojinha-app/lojinha-backend/api/middleware"
	"github.com/lojinha-app/lojinha-backend/internal/affiliates"
	"github.com/lojinha-app/lojinha-backend/internal/audit"
	"github.com/lojinha-app/lojinha-backend/internal/commission"
	"github.com/lojinha-app/lojinha-backend/internal/coupons"
	"github.com/lojinha-app/lojinha-backend/internal/earnings"
	"github.com/lojinha-app/lojinha-backend/internal/orders"
	"github.com/lojinha-app/lojinha-backend/internal/stores"
	"github.com/lojinha-app/lojinha-backend/internal/withdrawals"
	"github.com/lojinha-app/lojinha-backend/pkg/config"
	"github.com/lojinha-app/lojinha-backend/pkg/logger"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Pingers     map[string]controllers.Pinger
	Registry    *prometheus.Registry
	Stores      stores.Service
	Affiliates  affiliates.Service
	Coupons     coupons.Service
	Orders      orders.Service
	Commission  commission.Service
	Earnings    earnings.Service
	Withdrawals withdrawals.Service
	Audit       audit.Service
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.Pingers))
	})

	if d.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/stores", func(r chi.Router) {
			r.Post("/", controllers.StoreCreate(d.Stores, logg))
			r.Get("/slug/{slug}", controllers.StoreGetBySlug(d.Stores, logg))

			r.Route("/{storeID}", func(r chi.Router) {
				r.Get("/", controllers.StoreGet(d.Stores, logg))
				r.Patch("/maturity", controllers.StoreUpdateMaturity(d.Stores, logg))

				r.Route("/affiliates", func(r chi.Router) {
					r.Post("/", controllers.AffiliateLink(d.Affiliates, logg))
					r.Get("/", controllers.AffiliateLinkList(d.Affiliates, logg))
					r.Get("/{affiliateID}", controllers.AffiliateLinkGet(d.Affiliates, logg))
				})
				r.Route("/links/{linkID}/rules", func(r chi.Router) {
					r.Post("/", controllers.CommissionRuleAdd(d.Affiliates, logg))
					r.Get("/", controllers.CommissionRuleList(d.Affiliates, logg))
					r.Delete("/{ruleID}", controllers.CommissionRuleDeactivate(d.Affiliates, logg))
				})

				r.Route("/coupons", func(r chi.Router) {
					r.Post("/", controllers.CouponCreate(d.Coupons, logg))
					r.Get("/", controllers.CouponList(d.Coupons, logg))
					r.Post("/validate", controllers.CouponValidate(d.Coupons, logg))
					r.Post("/preview", controllers.CouponPreview(d.Coupons, logg))
					r.Get("/{couponID}", controllers.CouponGet(d.Coupons, logg))
					r.Delete("/{couponID}", controllers.CouponDeactivate(d.Coupons, logg))
				})

				r.Route("/orders", func(r chi.Router) {
					r.Post("/", controllers.OrderCreate(d.Orders, logg))
					r.Get("/", controllers.OrderList(d.Orders, logg))
					r.Route("/{orderID}", func(r chi.Router) {
						r.Get("/", controllers.OrderGet(d.Orders, logg))
						r.Patch("/status", controllers.OrderUpdateStatus(d.Orders, logg))
						r.Post("/deliver", controllers.OrderDeliver(d.Orders, logg))
						r.Post("/cancel", controllers.OrderCancel(d.Orders, logg))
						r.Post("/recalculate", controllers.CommissionRecalculate(d.Commission, d.Orders, logg))
						r.Get("/audit", controllers.AuditListByOrder(d.Audit, logg))
					})
				})

				r.Route("/withdrawals", func(r chi.Router) {
					r.Get("/", controllers.WithdrawalListByStore(d.Withdrawals, logg))
					r.Post("/{requestID}/approve", controllers.WithdrawalApprove(d.Withdrawals, logg))
					r.Post("/{requestID}/reject", controllers.WithdrawalReject(d.Withdrawals, logg))
					r.Post("/{requestID}/paid", controllers.WithdrawalMarkPaid(d.Withdrawals, logg))
				})

				r.Route("/audit", func(r chi.Router) {
					r.Get("/", controllers.AuditList(d.Audit, logg))
					r.Get("/stats", controllers.AuditStats(d.Audit, logg))
				})
			})
		})

		r.Route("/affiliates", func(r chi.Router) {
			r.Post("/", controllers.AffiliateRegister(d.Affiliates, logg))
			r.Route("/{affiliateID}", func(r chi.Router) {
				r.Get("/", controllers.AffiliateGet(d.Affiliates, logg))
				r.Get("/earnings", controllers.EarningList(d.Earnings, logg))
				r.Get("/earnings/balance", controllers.EarningBalance(d.Earnings, logg))
				r.Get("/earnings/{earningID}", controllers.EarningGet(d.Earnings, logg))
				r.Route("/withdrawals", func(r chi.Router) {
					r.Post("/", controllers.WithdrawalRequest(d.Withdrawals, logg))
					r.Get("/", controllers.WithdrawalListByAffiliate(d.Withdrawals, logg))
					r.Get("/{requestID}", controllers.WithdrawalGet(d.Withdrawals, logg))
				})
			})
		})
	})

	return r
}
