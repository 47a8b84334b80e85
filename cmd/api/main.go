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

	"github.com/angelmondragon/fulfillment-backend/api/routes"
	"github.com/angelmondragon/fulfillment-backend/internal/directory"
	"github.com/angelmondragon/fulfillment-backend/internal/dispatches"
	"github.com/angelmondragon/fulfillment-backend/internal/ledger"
	"github.com/angelmondragon/fulfillment-backend/internal/locks"
	"github.com/angelmondragon/fulfillment-backend/internal/orders"
	"github.com/angelmondragon/fulfillment-backend/internal/payments"
	"github.com/angelmondragon/fulfillment-backend/internal/production"
	"github.com/angelmondragon/fulfillment-backend/internal/sequence"
	"github.com/angelmondragon/fulfillment-backend/pkg/config"
	"github.com/angelmondragon/fulfillment-backend/pkg/db"
	"github.com/angelmondragon/fulfillment-backend/pkg/logger"
	"github.com/angelmondragon/fulfillment-backend/pkg/metrics"
	"github.com/angelmondragon/fulfillment-backend/pkg/migrate"
	"github.com/angelmondragon/fulfillment-backend/pkg/outbox"
	"github.com/angelmondragon/fulfillment-backend/pkg/redis"
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

	services, err := buildServices(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to build services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, routes.Pingers{DB: dbClient, Redis: redisClient}, services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
		logg.Info(shutdownCtx, "api server shutting down gracefully")
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (routes.Services, error) {
	conn := dbClient.DB()
	orderRepo := orders.NewRepository(conn)
	ledgerRepo := ledger.NewRepository(conn)

	var locker locks.OrderLocker = locks.NoopLocker{}
	if cfg.OrderLock.Enabled {
		redisLocker, err := locks.NewRedisOrderLocker(locks.RedisParams{
			Client:     redisClient.Scripter(),
			Keys:       redisClient,
			Logger:     logg,
			TTL:        cfg.OrderLock.TTL,
			RetryLimit: cfg.OrderLock.RetryLimit,
			RetryDelay: cfg.OrderLock.RetryDelay,
		})
		if err != nil {
			return routes.Services{}, err
		}
		locker = redisLocker
	}

	writer, err := orders.NewWriter(orders.WriterParams{
		Repository: orderRepo,
		Tx:         dbClient,
		Outbox:     outbox.NewService(outbox.NewRepository(conn), logg),
		Locker:     locker,
		Metrics:    metrics.NewFulfillmentMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return routes.Services{}, err
	}

	paymentSvc, err := payments.NewService(payments.ServiceParams{
		Repository: payments.NewRepository(conn),
		Orders:     orderRepo,
		Writer:     writer,
		Tx:         dbClient,
		Logger:     logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repository: orderRepo,
		Ledger:     ledgerRepo,
		Writer:     writer,
		Directory:  directory.NewRepository(conn),
		Sequencer:  sequence.NewSequencer(logg),
		Followups:  paymentSvc,
		Logger:     logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	dispatchSvc, err := dispatches.NewService(dispatches.NewRepository(conn), orderRepo, ledgerRepo, writer, nil)
	if err != nil {
		return routes.Services{}, err
	}

	productionSvc, err := production.NewService(production.NewRepository(conn), orderRepo, ledgerRepo, writer, production.StorageKeyNamer{})
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Orders:     orderSvc,
		Dispatches: dispatchSvc,
		Production: productionSvc,
		Payments:   paymentSvc,
	}, nil
}
