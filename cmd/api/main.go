package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/virtucloud/virtucloud-backend/api/routes"
	"github.com/virtucloud/virtucloud-backend/internal/auth"
	"github.com/virtucloud/virtucloud-backend/internal/payments"
	"github.com/virtucloud/virtucloud-backend/internal/plans"
	"github.com/virtucloud/virtucloud-backend/internal/subscriptions"
	"github.com/virtucloud/virtucloud-backend/internal/users"
	"github.com/virtucloud/virtucloud-backend/internal/vms"
	"github.com/virtucloud/virtucloud-backend/pkg/cardpay"
	"github.com/virtucloud/virtucloud-backend/pkg/config"
	"github.com/virtucloud/virtucloud-backend/pkg/db"
	"github.com/virtucloud/virtucloud-backend/pkg/logger"
	"github.com/virtucloud/virtucloud-backend/pkg/mailer"
	"github.com/virtucloud/virtucloud-backend/pkg/migrate"
	"github.com/virtucloud/virtucloud-backend/pkg/mpesa"
	"github.com/virtucloud/virtucloud-backend/pkg/redis"
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

	userRepo, err := users.NewRepository(dbClient.DB())
	exitOn(logg, "user repository", err)
	planRepo, err := plans.NewRepository(dbClient.DB())
	exitOn(logg, "plan repository", err)
	subRepo, err := subscriptions.NewRepository(dbClient.DB())
	exitOn(logg, "subscription repository", err)
	paymentRepo, err := payments.NewRepository(dbClient.DB())
	exitOn(logg, "payment repository", err)
	vmRepo, err := vms.NewRepository(dbClient.DB())
	exitOn(logg, "vm repository", err)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		Mailer:         mailer.New(cfg.SMTP, logg),
		Logger:         logg,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	exitOn(logg, "auth service", err)

	planService, err := plans.NewService(plans.ServiceParams{Repo: planRepo, Logger: logg})
	exitOn(logg, "plans service", err)
	if err := planService.EnsureDefaults(context.Background()); err != nil {
		logg.Error(context.Background(), "failed to seed rate plans", err)
		os.Exit(1)
	}

	subService, err := subscriptions.NewService(subscriptions.ServiceParams{Repo: subRepo, Logger: logg})
	exitOn(logg, "subscriptions service", err)

	paymentParams := payments.ServiceParams{
		Repo:          paymentRepo,
		Plans:         planRepo,
		Subscriptions: subService,
		Billing:       cfg.Billing,
		Logger:        logg,
	}
	if cfg.Mpesa.Configured() {
		mpesaClient, err := mpesa.NewClient(context.Background(), cfg.Mpesa, logg)
		exitOn(logg, "mpesa client", err)
		paymentParams.Mpesa = mpesaClient
	}
	if cfg.Card.AccessToken != "" {
		cardClient, err := cardpay.NewClient(context.Background(), cfg.Card, logg)
		exitOn(logg, "card client", err)
		paymentParams.Card = cardClient
	}
	paymentService, err := payments.NewService(paymentParams)
	exitOn(logg, "payments service", err)

	vmService, err := vms.NewService(vms.ServiceParams{
		Repo:          vmRepo,
		Subscriptions: subService,
		Logger:        logg,
	})
	exitOn(logg, "vms service", err)

	userService, err := users.NewService(users.ServiceParams{Repo: userRepo, Logger: logg})
	exitOn(logg, "users service", err)

	router := routes.NewRouter(routes.RouterParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Redis:         redisClient,
		AuthService:   authService,
		Plans:         planService,
		Payments:      paymentService,
		Subscriptions: subService,
		VMs:           vmService,
		Users:         userService,
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

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		graceCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logg.Error(ctx, "error during server shutdown", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}

func exitOn(logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+resource, err)
	os.Exit(1)
}
