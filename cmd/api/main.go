package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/lojinha-app/lojinha-backend/api/controllers"
	"github.com/lojinha-app/lojinha-backend/api/routes"
	"github.com/lojinha-app/lojinha-backend/internal/affiliates"
	"github.com/lojinha-app/lojinha-backend/internal/audit"
	"github.com/lojinha-app/lojinha-backend/internal/commission"
	"github.com/lojinha-app/lojinha-backend/internal/coupons"
	"github.com/lojinha-app/lojinha-backend/internal/earnings"
	"github.com/lojinha-app/lojinha-backend/internal/maturation"
	"github.com/lojinha-app/lojinha-backend/internal/orders"
	"github.com/lojinha-app/lojinha-backend/internal/stores"
	"github.com/lojinha-app/lojinha-backend/internal/withdrawals"
	"github.com/lojinha-app/lojinha-backend/pkg/config"
	"github.com/lojinha-app/lojinha-backend/pkg/db"
	"github.com/lojinha-app/lojinha-backend/pkg/logger"
	"github.com/lojinha-app/lojinha-backend/pkg/metrics"
	"github.com/lojinha-app/lojinha-backend/pkg/migrate"
	"github.com/lojinha-app/lojinha-backend/pkg/outbox"
	"github.com/lojinha-app/lojinha-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	deps, err := buildServices(cfg, logg, dbClient, registry)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}
	deps.Config = cfg
	deps.Logger = logg
	deps.Registry = registry
	deps.Pingers = map[string]controllers.Pinger{
		"db":    dbClient,
		"redis": redisClient,
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(deps),
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-stopCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, registry *prometheus.Registry) (routes.Deps, error) {
	gdb := dbClient.DB()

	storesRepo := stores.NewRepository(gdb)
	affiliatesRepo := affiliates.NewRepository(gdb)
	couponsRepo := coupons.NewRepository(gdb)
	ordersRepo := orders.NewRepository(gdb)
	earningsRepo := earnings.NewRepository(gdb)
	withdrawalsRepo := withdrawals.NewRepository(gdb)
	auditRepo := audit.NewRepository(gdb)
	outboxSvc := outbox.NewService(outbox.NewRepository(gdb), logg)

	allocator := coupons.NewAllocator(cfg.Commission.SplitPolicy())
	clock, err := maturation.NewClock(cfg.Commission)
	if err != nil {
		return routes.Deps{}, err
	}

	storesSvc, err := stores.NewService(storesRepo, cfg.Commission)
	if err != nil {
		return routes.Deps{}, err
	}
	affiliatesSvc, err := affiliates.NewService(affiliatesRepo)
	if err != nil {
		return routes.Deps{}, err
	}
	couponsSvc, err := coupons.NewService(couponsRepo, allocator)
	if err != nil {
		return routes.Deps{}, err
	}
	earningsSvc, err := earnings.NewService(earningsRepo, clock)
	if err != nil {
		return routes.Deps{}, err
	}
	commissionSvc, err := commission.NewService(
		dbClient,
		ordersRepo,
		couponsRepo,
		affiliatesRepo,
		earningsRepo,
		auditRepo,
		outboxSvc,
		commission.NewAggregator(allocator),
		metrics.NewCommissionMetrics(registry),
		logg,
	)
	if err != nil {
		return routes.Deps{}, err
	}
	ordersSvc, err := orders.NewService(
		dbClient,
		ordersRepo,
		storesRepo,
		affiliatesRepo,
		couponsSvc,
		allocator,
		earningsSvc,
		commissionSvc,
		logg,
	)
	if err != nil {
		return routes.Deps{}, err
	}
	withdrawalsSvc, err := withdrawals.NewService(
		dbClient,
		withdrawalsRepo,
		affiliatesRepo,
		earningsSvc,
		earningsRepo,
		outboxSvc,
		logg,
	)
	if err != nil {
		return routes.Deps{}, err
	}
	auditSvc, err := audit.NewService(auditRepo)
	if err != nil {
		return routes.Deps{}, err
	}

	return routes.Deps{
		Stores:      storesSvc,
		Affiliates:  affiliatesSvc,
		Coupons:     couponsSvc,
		Orders:      ordersSvc,
		Commission:  commissionSvc,
		Earnings:    earningsSvc,
		Withdrawals: withdrawalsSvc,
		Audit:       auditSvc,
	}, nil
}
