package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/haiminhngo/farmlink-backend/api/routes"
	"github.com/haiminhngo/farmlink-backend/internal/audit"
	"github.com/haiminhngo/farmlink-backend/internal/inventory"
	"github.com/haiminhngo/farmlink-backend/internal/notifications"
	"github.com/haiminhngo/farmlink-backend/internal/orders"
	"github.com/haiminhngo/farmlink-backend/internal/payments"
	"github.com/haiminhngo/farmlink-backend/internal/shipments"
	"github.com/haiminhngo/farmlink-backend/pkg/bigquery"
	"github.com/haiminhngo/farmlink-backend/pkg/config"
	"github.com/haiminhngo/farmlink-backend/pkg/db"
	"github.com/haiminhngo/farmlink-backend/pkg/gateway"
	"github.com/haiminhngo/farmlink-backend/pkg/logger"
	"github.com/haiminhngo/farmlink-backend/pkg/metrics"
	"github.com/haiminhngo/farmlink-backend/pkg/migrate"
	"github.com/haiminhngo/farmlink-backend/pkg/outbox"
	"github.com/haiminhngo/farmlink-backend/pkg/outbox/idempotency"
	"github.com/haiminhngo/farmlink-backend/pkg/redis"
)

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

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gatewayClient, err := gateway.NewClient(cfg.Gateway)
	if err != nil {
		logg.Error(context.Background(), "failed to configure payment gateway", err)
		os.Exit(1)
	}

	// Audit is best effort. A missing BigQuery project degrades to receipts
	// being skipped, it never blocks payment or shipment flows.
	var auditWriter *audit.Writer
	bqClient, err := bigquery.NewClient(context.Background(), cfg.GCP, cfg.Audit, logg)
	if err != nil {
		logg.Warn(context.Background(), "bigquery unavailable, audit receipts disabled")
	} else {
		auditWriter = audit.NewWriter(bqClient, logg)
		defer func() {
			if err := bqClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing bigquery client", err)
			}
		}()
	}

	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxSvc := outbox.NewService(outboxRepo, logg)

	notificationsSvc, err := notifications.NewService(notifications.NewRepository(dbClient.DB()), outboxSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(
		orders.NewRepository(dbClient.DB()),
		dbClient,
		outboxSvc,
		inventory.NewGuard(),
		notificationsSvc,
		cfg.Payments,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	replayGuard, err := idempotency.NewManager(redisClient, cfg.Payments.CallbackTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create callback replay guard", err)
		os.Exit(1)
	}

	paymentsSvc, err := payments.NewService(
		payments.NewRepository(dbClient.DB()),
		dbClient,
		outboxSvc,
		notificationsSvc,
		gatewayClient,
		replayGuard,
		auditWriter,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	shipmentsSvc, err := shipments.NewService(
		shipments.NewRepository(dbClient.DB()),
		dbClient,
		outboxSvc,
		notificationsSvc,
		auditWriter,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create shipments service", err)
		os.Exit(1)
	}

	callbackMetrics := metrics.NewGatewayCallbackMetrics(prometheus.DefaultRegisterer)

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
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:          cfg,
			Logger:          logg,
			DBPinger:        dbClient,
			RedisPinger:     redisClient,
			Orders:          ordersSvc,
			Payments:        paymentsSvc,
			Shipments:       shipmentsSvc,
			Notifications:   notificationsSvc,
			CallbackMetrics: callbackMetrics,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
