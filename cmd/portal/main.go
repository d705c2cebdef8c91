package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/portal/internal/access"
	"github.com/odyssey-erp/portal/internal/apiclient"
	"github.com/odyssey-erp/portal/internal/app"
	"github.com/odyssey-erp/portal/internal/auth"
	"github.com/odyssey-erp/portal/internal/dashboard"
	"github.com/odyssey-erp/portal/internal/guard"
	"github.com/odyssey-erp/portal/internal/nav"
	"github.com/odyssey-erp/portal/internal/observability"
	"github.com/odyssey-erp/portal/internal/platform/cache"
	"github.com/odyssey-erp/portal/internal/platform/db"
	"github.com/odyssey-erp/portal/internal/resources"
	"github.com/odyssey-erp/portal/internal/shared"
	"github.com/odyssey-erp/portal/internal/view"
	"github.com/odyssey-erp/portal/jobs"
	"github.com/odyssey-erp/portal/migrations"
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

	var authRepo auth.Repository
	if cfg.PGDSN != "" {
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		version, err := db.Migrate(ctx, pool, migrations.FS)
		if err != nil {
			logger.Error("apply migrations", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("schema up to date", slog.Uint64("version", uint64(version)))
		authRepo = auth.NewRepository(pool)
	} else {
		logger.Warn("PG_DSN not set, sign-in audit disabled")
	}

	metrics := observability.NewMetrics()
	sessionManager := shared.NewSessionManager(redisClient, "portal_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}
	renderer := &view.Renderer{Engine: templates, CSRF: csrfManager, Logger: logger}
	routeGuard := &guard.Guard{Logger: logger, Metrics: metrics}

	api := apiclient.NewClient(cfg.APIBaseURL, cfg.APITimeout)

	authService := auth.NewService(api, authRepo)
	authHandler := auth.NewHandler(logger, authService, renderer, sessionManager, csrfManager, metrics)
	dashboardHandler := dashboard.NewHandler(logger, api, renderer, routeGuard)

	var resourceHandlers []*resources.Handler
	for _, entry := range nav.All() {
		if entry.Resource == access.ResourceDashboard {
			continue
		}
		h, err := resources.NewHandler(logger, api, renderer, routeGuard, entry.Resource)
		if err != nil {
			logger.Error("build resource handler", slog.String("resource", string(entry.Resource)), slog.Any("error", err))
			os.Exit(1)
		}
		resourceHandlers = append(resourceHandlers, h)
	}

	redisOpts, err := cache.Options(cfg.RedisAddr)
	if err != nil {
		logger.Error("redis options", slog.Any("error", err))
		os.Exit(1)
	}
	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: redisOpts.Addr, Password: redisOpts.Password, DB: redisOpts.DB})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		Guard:            routeGuard,
		AuthHandler:      authHandler,
		DashboardHandler: dashboardHandler,
		ResourceHandlers: resourceHandlers,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("api", cfg.APIBaseURL),
			slog.Bool("enforce_role_routes", cfg.EnforceRoleRoutes),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
