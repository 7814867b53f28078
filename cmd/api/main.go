package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/cartrescue/cartrescue-backend/api/routes"
	authsvc "github.com/cartrescue/cartrescue-backend/internal/auth"
	"github.com/cartrescue/cartrescue-backend/internal/carts"
	"github.com/cartrescue/cartrescue-backend/internal/checkouts"
	"github.com/cartrescue/cartrescue-backend/internal/coupons"
	"github.com/cartrescue/cartrescue-backend/internal/marketing"
	"github.com/cartrescue/cartrescue-backend/internal/products"
	"github.com/cartrescue/cartrescue-backend/internal/recovery"
	"github.com/cartrescue/cartrescue-backend/internal/session"
	"github.com/cartrescue/cartrescue-backend/internal/users"
	"github.com/cartrescue/cartrescue-backend/pkg/config"
	"github.com/cartrescue/cartrescue-backend/pkg/db"
	"github.com/cartrescue/cartrescue-backend/pkg/logger"
	"github.com/cartrescue/cartrescue-backend/pkg/migrate"
	"github.com/cartrescue/cartrescue-backend/pkg/redis"
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

	authService, err := authsvc.NewService(users.NewRepository(dbClient.DB()), cfg.JWT, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	productRepo := products.NewRepository(dbClient.DB())
	couponRepo := coupons.NewRepository(dbClient.DB())
	checkoutRepo := checkouts.NewRepository(dbClient.DB())
	marketingRepo := marketing.NewRepository(dbClient.DB())
	sessionStore := session.NewStore(redisClient, cfg.Checkouts)

	cartService, err := carts.NewService(redisClient, productRepo, couponRepo, cfg.Checkouts, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	checkoutService, err := checkouts.NewService(checkoutRepo, sessionStore, cartService, cfg.Checkouts, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	recoveryService, err := recovery.NewService(checkoutRepo, sessionStore, cartService, cfg.Store, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create recovery service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:          cfg,
			Logger:          logg,
			DB:              dbClient,
			Redis:           redisClient,
			RateLimiter:     redisClient,
			AuthService:     authService,
			CartService:     cartService,
			CheckoutService: checkoutService,
			CheckoutRepo:    checkoutRepo,
			ProductRepo:     productRepo,
			MarketingRepo:   marketingRepo,
			RecoveryService: recoveryService,
		}),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "error shutting down api server", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shut down gracefully")
}
