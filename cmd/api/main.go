package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	stripewebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
	"github.com/angelmondragon/storefront-backend/pkg/stripe"
)

const (
	serviceName        = "api"
	shutdownTimeout    = 15 * time.Second
	readHeaderTimeout  = 10 * time.Second
	webhookReplayTTL   = 72 * time.Hour
	webhookLedgerScope = "stripe-webhook"
)

func main() {
	boot := logger.New(logger.Options{ServiceName: serviceName})
	if err := godotenv.Load(); err != nil {
		boot.Warn(context.Background(), ".env file not found, relying on environment")
	}
	cfg, err := config.Load()
	if err != nil {
		boot.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg := logger.ForApp(serviceName, cfg.App)
	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	boot := context.Background()

	dbClient, err := db.New(boot, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	redisClient, err := redis.New(boot, cfg.Redis, logg)
	if err != nil {
		_ = dbClient.Close()
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer func() {
		err = multierr.Append(err, multierr.Combine(redisClient.Close(), dbClient.Close()))
	}()

	if err := migrate.MaybeRunDev(boot, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	handler, err := build(boot, cfg, logg, dbClient, redisClient)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return serve(ctx, cfg, logg, handler)
}

// build wires the services behind the HTTP router.
func build(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (http.Handler, error) {
	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap stripe: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	storeMetrics := metrics.NewStoreMetrics(registry)

	cartCache := cart.NoopCache()
	if cfg.FeatureFlags.CartCache {
		cartCache = cart.NewRedisCache(redisClient, cfg.Cart.CacheTTL, cfg.Cart.CacheJitter)
	}
	carts := cart.NewRepository(dbClient.DB())
	cartService, err := cart.NewService(cart.ServiceParams{
		Repo:    carts,
		Tx:      dbClient,
		Cache:   cartCache,
		Logger:  logg,
		Metrics: storeMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("cart service: %w", err)
	}

	refundGateway, err := payments.NewStripeRefundGateway(stripeClient.Refunds(), cfg.Refunds, logg, storeMetrics)
	if err != nil {
		return nil, fmt.Errorf("refund gateway: %w", err)
	}
	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:     orders.NewRepository(dbClient.DB()),
		Carts:    carts,
		CartSync: cartService,
		Tx:       dbClient,
		Outbox:   outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Refunds:  refundGateway,
		Logger:   logg,
		Metrics:  storeMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("order service: %w", err)
	}

	paymentsService, err := payments.NewService(stripeClient.PaymentIntents(), cfg.App.Currency, logg)
	if err != nil {
		return nil, fmt.Errorf("payments service: %w", err)
	}
	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{Orders: ordersService, Logger: logg})
	if err != nil {
		return nil, fmt.Errorf("stripe webhook service: %w", err)
	}
	webhookLedger, err := stripewebhook.NewEventLedger(redisClient, webhookLedgerScope, webhookReplayTTL)
	if err != nil {
		return nil, fmt.Errorf("stripe event ledger: %w", err)
	}

	return routes.NewRouter(
		cfg,
		logg,
		dbClient,
		redisClient,
		registry,
		cartService,
		ordersService,
		paymentsService,
		stripeClient,
		webhookService,
		webhookLedger,
	), nil
}

// serve runs the server until ctx ends, then drains in-flight requests.
func serve(ctx context.Context, cfg *config.Config, logg *logger.Logger, handler http.Handler) error {
	addr := ":" + firstSet(os.Getenv("PORT"), cfg.App.Port)
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": firstSet(os.Getenv("DYNO"), "local"),
	})

	server := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: readHeaderTimeout}
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.ListenAndServe() }()
	logg.Info(ctx, "starting api server")

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logg.Info(shutdownCtx, "api server shut down gracefully")
	return nil
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
