package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/carebridge/telemed-platform/internal/api/router"
	"github.com/carebridge/telemed-platform/internal/appointments"
	"github.com/carebridge/telemed-platform/internal/assist"
	"github.com/carebridge/telemed-platform/internal/cleanup"
	"github.com/carebridge/telemed-platform/internal/clinictime"
	appconfig "github.com/carebridge/telemed-platform/internal/config"
	"github.com/carebridge/telemed-platform/internal/identity"
	"github.com/carebridge/telemed-platform/internal/observability/metrics"
	"github.com/carebridge/telemed-platform/internal/sessions"
	"github.com/carebridge/telemed-platform/pkg/logging"
)

func main() {
	// Load .env if present; real deployments set env vars directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting telemed-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(rootCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(rootCtx); err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	zone := clinictime.NewZone(cfg.ClinicUTCOffsetMinutes)

	reg := prometheus.NewRegistry()
	appMetrics := metrics.NewAppointmentMetrics(reg)

	apptStore := appointments.NewStore(pool)
	doctors := identity.NewDirectory(pool)

	apptService := appointments.NewService(apptStore, doctors, zone, appointments.Settings{
		DefaultDurationMinutes: cfg.DefaultDurationMin,
		DefaultFee:             cfg.DefaultFee,
	}, appMetrics, logger.Component("appointments"))

	sessionService := sessions.NewService(apptStore, zone, sessions.Windows{
		StartGrace: cfg.SessionStartGrace,
	}, appMetrics, logger.Component("sessions"))

	cleanupStore := cleanup.NewStore(pool)
	cleanupService := cleanup.NewService(apptStore, cleanupStore, cfg.SessionStaleAfter, appMetrics, logger.Component("cleanup"))
	cleanupWorker := cleanup.NewWorker(cleanupService, cfg.CleanupInterval, logger.Component("cleanup-worker"))

	apptHandler := appointments.NewHandler(apptService, logger.Component("appointments"))
	sessionHandler := sessions.NewHandler(sessionService, logger.Component("sessions"))
	cleanupHandler := cleanup.NewHandler(cleanupService, cleanupStore, logger.Component("cleanup"))

	var assistHandler *assist.Handler
	if cfg.GeminiAPIKey != "" {
		assistClient, err := assist.NewClient(rootCtx, cfg.GeminiAPIKey, cfg.GeminiModels, logger.Component("assist"))
		if err != nil {
			logger.Error("failed to initialize assist client", "error", err)
			os.Exit(1)
		}
		defer assistClient.Close()
		assistHandler = assist.NewHandler(assistClient, logger.Component("assist"))
	} else {
		logger.Warn("GEMINI_API_KEY not set, assist endpoint disabled")
	}

	r := router.New(&router.Config{
		Logger:              logger,
		AppointmentsHandler: apptHandler,
		SessionsHandler:     sessionHandler,
		CleanupHandler:      cleanupHandler,
		AssistHandler:       assistHandler,
		AuthSecret:          cfg.AuthJWTSecret,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimitRPS:        cfg.RateLimitRPS,
		RateLimitBurst:      cfg.RateLimitBurst,
		MetricsHandler:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	go cleanupWorker.Start(rootCtx)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-rootCtx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
