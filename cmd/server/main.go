package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"debt_flow_app_go/config"
	"debt_flow_app_go/db"
	"debt_flow_app_go/handlers"
	"debt_flow_app_go/logger"
	"debt_flow_app_go/middleware"
	"debt_flow_app_go/models"
	"debt_flow_app_go/services"
	"debt_flow_app_go/services/backend"
	"debt_flow_app_go/services/jobs"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	zlog, err := logger.New(logger.Config{
		ServiceName: "debt-flow",
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	// Initialize database
	if err := db.Initialize(cfg); err != nil {
		zlog.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(&models.Session{}, &models.AuditLog{}); err != nil {
		zlog.Fatal("Failed to run migrations", zap.Error(err))
	}

	access, err := services.NewAccess(db.DB)
	if err != nil {
		zlog.Fatal("Failed to load access policy", zap.Error(err))
	}
	cipher, err := services.NewTokenCipher(cfg.SessionSecret)
	if err != nil {
		zlog.Fatal("Failed to create token cipher", zap.Error(err))
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		if rdb, err = services.NewRedisClient(cfg.RedisURL); err != nil {
			zlog.Warn("Redis unavailable, dashboard cache stays in memory", zap.Error(err))
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	client := backend.NewClient(cfg.APIBaseURL, cfg.APITimeout)
	toasts := services.NewToastStore(cfg.ToastDuration)
	progress := services.NewProgressStore(cfg.ProgressResetDelay)
	defer toasts.Close()
	defer progress.Close()

	mailer := services.NewMailer(cfg)
	logins := services.NewLoginMonitor(mailer, cfg.OpsEmail)
	defer logins.Close()

	cache := services.NewDashboardCache(rdb, 2*cfg.DashboardRefreshInterval)
	audit := services.NewAuditLogger(db.DB)
	hub := handlers.NewHub()

	authAPI := func(token string) services.AuthAPI {
		return backend.NewAPI(client.WithToken(token)).Auth
	}

	h := &handlers.Handler{
		Config:   cfg,
		Client:   client,
		Auth:     services.NewAuthStore(db.DB, cipher, authAPI, toasts, progress),
		Toasts:   toasts,
		Progress: progress,
		Access:   access,
		Cache:    cache,
		Audit:    audit,
		DB:       db.DB,
		Archive:  services.NewArchiveStore(cfg),
		Logins:   logins,
		PDF:      services.NewPDFGenerator(cfg.ChromePath),
		Hub:      hub,
	}

	middleware.InitAssetVersions()

	e := echo.New()
	e.HideBanner = true
	h.Register(e, zlog)

	// Background jobs run under a service account
	account := jobs.NewServiceAccount(client, cfg.AutoAssignEmail, cfg.AutoAssignPassword)
	scheduler, err := jobs.NewScheduler(jobs.SchedulerConfig{
		AutoAssignSpec: cfg.AutoAssignCron,
		AutoAssign: &jobs.AutoAssignSweep{
			Account:     account,
			Threshold:   cfg.AutoAssignThresholdHours,
			Concurrency: cfg.AutoAssignConcurrency,
			Mailer:      mailer,
			OpsEmail:    cfg.OpsEmail,
			AppURL:      cfg.AppURL,
			Cache:       cache,
			Audit:       audit,
		},
		Sessions: h.Auth,
	})
	if err != nil {
		zlog.Fatal("Failed to schedule jobs", zap.Error(err))
	}
	scheduler.Start()

	jobCtx, stopJobs := context.WithCancel(context.Background())
	if account.Configured() {
		refresher := &jobs.DashboardRefresher{
			Account:  account,
			Cache:    cache,
			Hub:      hub,
			Interval: cfg.DashboardRefreshInterval,
		}
		go refresher.Run(jobCtx)
	} else {
		zlog.Info("No service account configured, dashboard refreshes on demand only")
	}

	// Start server
	go func() {
		zlog.Info("Server starting", zap.String("port", cfg.ServerPort))
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	zlog.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stopJobs()
	hub.Close()
	if err := e.Shutdown(ctx); err != nil {
		zlog.Error("Server shutdown failed", zap.Error(err))
	}
	if err := h.WaitImports(ctx); err != nil {
		zlog.Warn("Imports still running at shutdown", zap.Error(err))
	}
	scheduler.Stop(ctx)
}
