package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/janitor"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const serviceName = "janitor"

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
		logg.Error(context.Background(), "janitor stopped unexpectedly", err)
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

	service, err := newService(cfg, logg, dbClient, redisClient)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Janitor.Interval.String(),
	})
	logg.Info(ctx, "starting janitor")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "janitor shutting down gracefully")
	return nil
}

// newService assembles the retention jobs under a single redis lock.
func newService(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (*janitor.Service, error) {
	carts := cart.NewRepository(dbClient.DB())
	cartCache := cart.NoopCache()
	if cfg.FeatureFlags.CartCache {
		cartCache = cart.NewRedisCache(redisClient, cfg.Cart.CacheTTL, cfg.Cart.CacheJitter)
	}
	cartService, err := cart.NewService(cart.ServiceParams{
		Repo:   carts,
		Tx:     dbClient,
		Cache:  cartCache,
		Logger: logg,
	})
	if err != nil {
		return nil, fmt.Errorf("cart service: %w", err)
	}

	outboxJob, err := janitor.NewOutboxRetentionJob(janitor.OutboxRetentionJobParams{
		Logger:           logg,
		DB:               dbClient,
		Events:           outbox.NewRepository(dbClient.DB()),
		DLQ:              outbox.NewDLQRepository(dbClient.DB()),
		Retention:        cfg.Janitor.OutboxRetention,
		DLQRetention:     cfg.Janitor.DLQRetention,
		TerminalAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("outbox retention job: %w", err)
	}
	cartJob, err := janitor.NewStaleCartJob(janitor.StaleCartJobParams{
		Logger:    logg,
		Carts:     carts,
		Cache:     cartService,
		Retention: cfg.Janitor.CartRetention,
	})
	if err != nil {
		return nil, fmt.Errorf("stale cart job: %w", err)
	}

	lock, err := janitor.NewRedisLock(redisClient, janitor.LockKey(cfg.App.Env), cfg.Janitor.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("janitor lock: %w", err)
	}
	return janitor.NewService(janitor.ServiceParams{
		Logger:   logg,
		Jobs:     []janitor.Job{outboxJob, cartJob},
		Lock:     lock,
		Metrics:  metrics.NewJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Janitor.Interval,
	})
}
