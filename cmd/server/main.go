package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"retailer-service/internal/handler"
	"retailer-service/internal/service"
	"retailer-service/pkg/cache"
	"retailer-service/pkg/config"
	"retailer-service/pkg/database"
	"retailer-service/pkg/jwtutil"
	"retailer-service/pkg/logger"
	"retailer-service/prometheus"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		// Can't use structured logger yet since it's not initialized
		panic("Failed to load configuration: " + err.Error())
	}

	if err := logger.InitLogger(cfg); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting retailer-service", cfg.LogConfig()...)

	db, err := database.InitDB(&cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}
	log.Info("Database connection established")

	lookupCache, err := newCache(cfg)
	if err != nil {
		log.Fatal("Failed to initialize cache", zap.String("driver", cfg.Cache.Driver), zap.Error(err))
	}
	defer lookupCache.Close()
	log.Info("Cache initialized", zap.String("driver", cfg.Cache.Driver))

	metrics := prometheus.NewMetrics(cfg.Metrics.Prefix, promclient.DefaultRegisterer)
	log.Info("Prometheus metrics initialized", zap.String("metrics_prefix", cfg.Metrics.Prefix))

	jwtUtil := jwtutil.NewJWTUtil(&cfg.JWT)

	authService := service.NewAuthService(db, jwtUtil, metrics, log)
	h := handler.New(db,
		service.NewMasterDataService(db, lookupCache, cfg.Cache.MasterDataTTL, metrics, log),
		service.NewRetailerService(db, lookupCache, cfg.Cache.RetailerTTL, metrics, log),
		service.NewRetailerManagementService(db, lookupCache, cfg.Cache.RetailerTTL, cfg.Import.BatchSize, metrics, log),
		authService,
	)

	e := handler.NewEcho(metrics, log)
	handler.Register(e, h.Routes(cfg.Import.MaxUploadMB), authService, metrics)

	go func() {
		port := cfg.Server.Port
		log.Info("Starting server", zap.String("port", port))
		if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
}

func newCache(cfg *config.Config) (cache.Cache, error) {
	switch cfg.Cache.Driver {
	case "memory":
		return cache.NewMemoryCache(cfg.Cache.CleanupEvery), nil
	case "redis":
		return cache.NewRedisCache(&cfg.Redis)
	default:
		return nil, errors.New("unknown CACHE_DRIVER " + cfg.Cache.Driver)
	}
}
