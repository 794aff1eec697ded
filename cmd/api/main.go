package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/familycare/visit-service/internal/adapters/evidence"
	"github.com/familycare/visit-service/internal/adapters/handler"
	"github.com/familycare/visit-service/internal/adapters/middleware"
	"github.com/familycare/visit-service/internal/adapters/repository"
	"github.com/familycare/visit-service/internal/config"
	"github.com/familycare/visit-service/internal/core/ports"
	"github.com/familycare/visit-service/internal/core/services"
	"github.com/familycare/visit-service/internal/metrics"
)

func main() {
	cfg := config.Load()
	logger := config.NewLogger(os.Stdout, cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.AutoMigrate {
		if err := repository.Migrate(ctx, db); err != nil {
			logger.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}
		logger.Info("database schema applied")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to redis", "address", cfg.Redis.Address)

	store, err := newEvidenceStore(ctx, cfg.Evidence)
	if err != nil {
		logger.Error("failed to set up evidence store", "driver", cfg.Evidence.Driver, "error", err)
		os.Exit(1)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	visitRepo := repository.NewVisitRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	itemRepo := repository.NewItemRepository(db)
	users := repository.NewUserDirectory(db)

	validator := services.NewCheckInValidator(services.GeofencePolicy{
		ValidateRadiusMeters: cfg.Geofence.ValidateRadiusMeters,
		CheckInRadiusMeters:  cfg.Geofence.CheckInRadiusMeters,
	})
	visitService := services.NewVisitService(visitRepo, familyRepo, users, store, validator, m, logger)
	alertService := services.NewAlertService(familyRepo, visitRepo, itemRepo, users, services.NeglectPolicy{
		Threshold:          time.Duration(cfg.Alerts.NeglectThresholdDays) * 24 * time.Hour,
		RecentReportsLimit: cfg.Alerts.RecentReportsLimit,
	}, m, logger)

	router := handler.NewRouter(handler.RouterConfig{
		Visits:         handler.NewVisitHandler(visitService, logger),
		Alerts:         handler.NewAlertHandler(alertService, logger),
		Health:         handler.NewHealthHandler(db, redisClient, logger),
		Auth:           middleware.NewAuthMiddleware(cfg.JWTPublicKey, redisClient, logger),
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			"port", cfg.Port,
			"validate_radius_meters", cfg.Geofence.ValidateRadiusMeters,
			"checkin_radius_meters", cfg.Geofence.CheckInRadiusMeters,
			"neglect_threshold_days", cfg.Alerts.NeglectThresholdDays,
			"evidence_driver", cfg.Evidence.Driver,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		logger.Error("server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down server", "error", err)
	}
	logger.Info("shutdown complete")
}

func newEvidenceStore(ctx context.Context, cfg config.EvidenceConfig) (ports.EvidenceStore, error) {
	if cfg.Driver == "s3" {
		return evidence.NewS3Store(ctx, cfg)
	}
	slog.Warn("proof photos are kept in memory and lost on restart", "driver", cfg.Driver)
	return evidence.NewMemoryStore(), nil
}
