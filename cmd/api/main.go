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

	"github.com/shoplane/storefront-backend/api/controllers"
	"github.com/shoplane/storefront-backend/api/routes"
	cartsvc "github.com/shoplane/storefront-backend/internal/cart"
	"github.com/shoplane/storefront-backend/internal/catalog"
	"github.com/shoplane/storefront-backend/internal/coupons"
	"github.com/shoplane/storefront-backend/internal/currency"
	"github.com/shoplane/storefront-backend/internal/pricing"
	"github.com/shoplane/storefront-backend/internal/tax"
	"github.com/shoplane/storefront-backend/pkg/config"
	"github.com/shoplane/storefront-backend/pkg/db"
	"github.com/shoplane/storefront-backend/pkg/logger"
	"github.com/shoplane/storefront-backend/pkg/metrics"
	"github.com/shoplane/storefront-backend/pkg/migrate"
	"github.com/shoplane/storefront-backend/pkg/redis"
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

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags, logg)
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

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	} else {
		logg.Warn(context.Background(), "redis not configured, using in-process cart locks")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	engineMetrics := metrics.NewEngineMetrics(registry)

	conn := dbClient.DB()
	catalogRepo := catalog.NewRepository(conn)
	pricingRepo := pricing.NewRepository(conn)
	taxRepo := tax.NewRepository(conn)
	rateRepo := currency.NewRepository(conn)
	couponRepo := coupons.NewRepository(conn)
	cartRepo := cartsvc.NewRepository(conn)

	taxService, err := tax.NewService(taxRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create tax service", err)
		os.Exit(1)
	}

	rateService, err := currency.NewService(rateRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create currency service", err)
		os.Exit(1)
	}

	couponService, err := coupons.NewService(couponRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create coupon service", err)
		os.Exit(1)
	}

	priceResolver, err := pricing.NewResolver(pricingRepo, catalogRepo, taxService, rateService, engineMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create price resolver", err)
		os.Exit(1)
	}

	pricingAdmin, err := pricing.NewAdmin(pricingRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing admin", err)
		os.Exit(1)
	}

	var locker cartsvc.Locker
	if redisClient != nil {
		locker, err = cartsvc.NewRedisLocker(redisClient, cfg.Engine.CartLockTTL, cfg.Engine.CartLockRetry, cfg.Engine.CartLockWait)
		if err != nil {
			logg.Error(context.Background(), "failed to create cart locker", err)
			os.Exit(1)
		}
	} else {
		locker = cartsvc.NewMemoryLocker()
	}

	cartService, err := cartsvc.NewService(
		cartRepo,
		dbClient,
		couponRepo,
		priceResolver,
		catalogRepo,
		locker,
		engineMetrics,
		logg,
		cfg.Engine.DefaultCurrency,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	var redisPinger controllers.RedisPinger
	if redisClient != nil {
		redisPinger = redisClient
	}

	router := routes.NewRouter(routes.Deps{
		Config:        cfg,
		Logger:        logg,
		DBPinger:      dbClient,
		Redis:         redisPinger,
		Registry:      registry,
		PriceResolver: priceResolver,
		PricingAdmin:  pricingAdmin,
		TaxService:    taxService,
		RateService:   rateService,
		CouponService: couponService,
		CartService:   cartService,
	})

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
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-shutdown:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}
}
