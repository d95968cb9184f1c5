package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/angelmondragon/tradeledger/api/routes"
	"github.com/angelmondragon/tradeledger/internal/cart"
	"github.com/angelmondragon/tradeledger/internal/ledger"
	"github.com/angelmondragon/tradeledger/internal/notifications"
	"github.com/angelmondragon/tradeledger/internal/orders"
	"github.com/angelmondragon/tradeledger/internal/payments"
	"github.com/angelmondragon/tradeledger/internal/refunds"
	"github.com/angelmondragon/tradeledger/pkg/config"
	"github.com/angelmondragon/tradeledger/pkg/db"
	"github.com/angelmondragon/tradeledger/pkg/logger"
	"github.com/angelmondragon/tradeledger/pkg/metrics"
	"github.com/angelmondragon/tradeledger/pkg/migrate"
	"github.com/angelmondragon/tradeledger/pkg/outbox"
	"github.com/angelmondragon/tradeledger/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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

	services, err := buildServices(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	router := routes.NewRouter(cfg, logg, dbClient, redisClient, prometheus.DefaultGatherer, services)
	server := &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(router, "tradeledger-api"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down")
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (routes.Services, error) {
	conn := dbClient.DB()
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	notifier := notifications.NewNotifier(emitter)

	ledgerService, err := ledger.NewService(ledger.ServiceParams{
		Repository: ledger.NewRepository(conn),
		DB:         dbClient,
		Outbox:     emitter,
		Logger:     logg,
		Metrics:    metrics.NewLedgerMetrics(prometheus.DefaultRegisterer),
		Config:     cfg.Credit,
	})
	if err != nil {
		return routes.Services{}, err
	}

	paymentRepo := payments.NewRepository(conn)
	orderRepo := orders.NewRepository(conn)
	orderService, err := orders.NewService(orders.ServiceParams{
		Repository: orderRepo,
		DB:         dbClient,
		Outbox:     emitter,
		Ledger:     ledgerService,
		Payments:   payments.NewOrderGuard(paymentRepo),
		Notifier:   notifier,
		Logger:     logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	paymentService, err := payments.NewService(payments.ServiceParams{
		Repository: paymentRepo,
		Orders:     orderRepo,
		Payer:      orderService,
		Ledger:     ledgerService,
		DB:         dbClient,
		Outbox:     emitter,
		Notifier:   notifier,
		Logger:     logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	refundService, err := refunds.NewService(refunds.ServiceParams{
		Orders:   orderRepo,
		Ledger:   ledgerService,
		DB:       dbClient,
		Notifier: notifier,
		Logger:   logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	// SKU checks stay off until a catalog client is configured.
	cartService, err := cart.NewService(cart.ServiceParams{
		Credit: ledgerService,
		Logger: logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Cart:     cartService,
		Orders:   orderService,
		Payments: paymentService,
		Refunds:  refundService,
		Ledger:   ledgerService,
	}, nil
}
