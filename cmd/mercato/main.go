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

	"github.com/mercato-admin/mercato-admin/internal/app"
	"github.com/mercato-admin/mercato-admin/internal/auth"
	"github.com/mercato-admin/mercato-admin/internal/brands"
	"github.com/mercato-admin/mercato-admin/internal/catalog"
	"github.com/mercato-admin/mercato-admin/internal/observability"
	"github.com/mercato-admin/mercato-admin/internal/platform/cache"
	"github.com/mercato-admin/mercato-admin/internal/platform/db"
	"github.com/mercato-admin/mercato-admin/internal/shared"
	"github.com/mercato-admin/mercato-admin/internal/storage"
	"github.com/mercato-admin/mercato-admin/internal/view"
	"github.com/mercato-admin/mercato-admin/jobs"
	"github.com/mercato-admin/mercato-admin/report"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "mercato_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager)

	auditLogger := shared.NewAuditLogger(dbpool)

	catalogRepo := catalog.NewRepository(dbpool)
	catalogService := catalog.NewService(catalogRepo, nil, auditLogger, logger)
	brandService := brands.NewService(brands.NewRepository(dbpool))

	reportClient := report.NewClient(cfg.GotenbergURL)
	productRenderer := report.NewProductRenderer(reportClient)
	catalogHandler := catalog.NewHandler(logger, catalogService, brandService, productRenderer, templates, csrfManager)

	imageStore, err := storage.NewImageStore(cfg.MediaRoot, cfg.MediaBaseURL+"/media")
	if err != nil {
		logger.Error("init image store", slog.Any("error", err))
		os.Exit(1)
	}
	uploadHandler := storage.NewHandler(logger, imageStore)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		AuthHandler:    authHandler,
		CatalogHandler: catalogHandler,
		UploadHandler:  uploadHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
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
