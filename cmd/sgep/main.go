package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sgep-io/sgep/internal/app"
	"github.com/sgep-io/sgep/internal/catalog"
	"github.com/sgep-io/sgep/internal/dashboard"
	"github.com/sgep-io/sgep/internal/knowledge"
	"github.com/sgep-io/sgep/internal/observability"
	"github.com/sgep-io/sgep/internal/platform/cache"
	"github.com/sgep-io/sgep/internal/platform/db"
	"github.com/sgep-io/sgep/internal/suppliers"
	"github.com/sgep-io/sgep/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Warn("redis unavailable, dashboard cache disabled", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	jobsClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	catalogRepo := catalog.NewRepository(dbpool)
	catalogService := catalog.NewService(catalogRepo)
	catalogHandler := catalog.NewHandler(logger, catalogService, jobsClient, cfg.ImportMaxBytes)

	supplierRepo := suppliers.NewRepository(dbpool)
	supplierService := suppliers.NewService(supplierRepo)
	supplierHandler := suppliers.NewHandler(logger, supplierService)

	knowledgeRepo := knowledge.NewRepository(dbpool)
	knowledgeService := knowledge.NewService(knowledgeRepo)
	knowledgeHandler := knowledge.NewHandler(logger, knowledgeService)

	dashboardService := dashboard.NewService(catalogRepo, redisClient, cfg.DashboardCacheTTL, logger)
	dashboardHandler := dashboard.NewHandler(logger, dashboardService)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		CatalogHandler:   catalogHandler,
		SupplierHandler:  supplierHandler,
		KnowledgeHandler: knowledgeHandler,
		DashboardHandler: dashboardHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
