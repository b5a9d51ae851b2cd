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
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/rentalkit-backend/api/routes"
	"github.com/angelmondragon/rentalkit-backend/internal/cart"
	"github.com/angelmondragon/rentalkit-backend/internal/catalog"
	"github.com/angelmondragon/rentalkit-backend/internal/kits"
	"github.com/angelmondragon/rentalkit-backend/pkg/config"
	"github.com/angelmondragon/rentalkit-backend/pkg/db"
	"github.com/angelmondragon/rentalkit-backend/pkg/logger"
	"github.com/angelmondragon/rentalkit-backend/pkg/metrics"
	"github.com/angelmondragon/rentalkit-backend/pkg/migrate"
	"github.com/angelmondragon/rentalkit-backend/pkg/recordstore"
	"github.com/angelmondragon/rentalkit-backend/pkg/redis"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if redis.Configured(cfg.Redis) {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
	} else {
		logg.Warn(ctx, "redis not configured, using embedded miniredis")
		redisClient, err = redis.NewInMemory()
	}
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	kitMetrics := metrics.NewKitMetrics(registry)
	cartMetrics := metrics.NewCartMetrics(registry)

	source, err := catalogSource(cfg, dbClient)
	if err != nil {
		logg.Error(ctx, "failed to build catalog source", err)
		os.Exit(1)
	}
	catalogAccessor, err := catalog.NewCachedAccessor(source, redisClient, cfg.Catalog.CacheTTL, cartMetrics, logg)
	if err != nil {
		logg.Error(ctx, "failed to build catalog cache", err)
		os.Exit(1)
	}

	resolver, err := kits.NewResolver(catalogAccessor, kitMetrics, logg)
	if err != nil {
		logg.Error(ctx, "failed to create kit resolver", err)
		os.Exit(1)
	}
	selectionStore, err := kits.NewRedisSelectionStore(redisClient, cfg.Kit.SelectionTTL)
	if err != nil {
		logg.Error(ctx, "failed to create kit selection store", err)
		os.Exit(1)
	}
	kitService, err := kits.NewService(resolver, selectionStore, kitMetrics, logg)
	if err != nil {
		logg.Error(ctx, "failed to create kit service", err)
		os.Exit(1)
	}

	guestStore, err := cart.NewGuestStore(redisClient, cfg.Cart.GuestTTL)
	if err != nil {
		logg.Error(ctx, "failed to create guest cart store", err)
		os.Exit(1)
	}
	cartService, err := cart.NewService(cart.ServiceParams{
		Catalog: catalogAccessor,
		Kits:    kitService,
		Users:   cart.NewRepository(dbClient.DB()),
		Guests:  guestStore,
		Metrics: cartMetrics,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create cart service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(cfg, logg, dbClient, redisClient, registry, catalogAccessor, kitService, cartService)

	port := cfg.App.Port
	if override := os.Getenv("PORT"); override != "" {
		port = override
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logg.WithField(ctx, "port", port), "starting api server")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var closeErr error
	multierr.AppendInto(&closeErr, srv.Shutdown(shutdownCtx))
	multierr.AppendInto(&closeErr, redisClient.Close())
	multierr.AppendInto(&closeErr, dbClient.Close())
	if closeErr != nil {
		logg.Error(shutdownCtx, "error during shutdown", closeErr)
		os.Exit(1)
	}
	logg.Info(shutdownCtx, "api server shut down gracefully")
}

func catalogSource(cfg *config.Config, dbClient *db.Client) (catalog.Accessor, error) {
	if !cfg.Catalog.UsesRecordStore() {
		return catalog.NewRepository(dbClient.DB()), nil
	}
	client, err := recordstore.NewClient(
		cfg.RecordStore.BaseURL,
		recordstore.WithHTTPClient(&http.Client{Timeout: cfg.RecordStore.Timeout}),
		recordstore.WithToken(cfg.RecordStore.Token),
		recordstore.WithPerPage(cfg.RecordStore.PerPage),
	)
	if err != nil {
		return nil, err
	}
	return catalog.NewRecordStoreSource(client, cfg.RecordStore)
}
