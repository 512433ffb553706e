package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/julienreichel/on-track-career-os-sub005/internal/app"
	"github.com/julienreichel/on-track-career-os-sub005/internal/config"
	"github.com/julienreichel/on-track-career-os-sub005/internal/export"
	"github.com/julienreichel/on-track-career-os-sub005/internal/logging"
	"github.com/julienreichel/on-track-career-os-sub005/internal/metrics"
	"github.com/julienreichel/on-track-career-os-sub005/internal/revisions"
	"github.com/julienreichel/on-track-career-os-sub005/internal/search"
	"github.com/julienreichel/on-track-career-os-sub005/internal/session"
	"github.com/julienreichel/on-track-career-os-sub005/internal/storage"
	"github.com/julienreichel/on-track-career-os-sub005/internal/store"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = logger.Sync() }()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL, store.PoolOptions{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
		ConnectTimeout:  cfg.DBConnectTimeout,
	})
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir, logger); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	redisStore, err := session.NewRedisStore(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis connection failed", zap.Error(err))
	}
	defer redisStore.Close()

	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, pgfts, logger)
	go searchService.ReindexAll(ctx)

	var uploads *storage.Storage
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		uploads, err = storage.NewMinio(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			logger.Fatal("object storage client failed", zap.Error(err))
		}
		bucketCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := uploads.EnsureBucket(bucketCtx); err != nil {
			logger.Warn("object storage unavailable, uploads disabled", zap.Error(err))
			uploads = nil
		}
		cancel()
	} else {
		logger.Info("MINIO_ENDPOINT not set, CV uploads disabled")
	}

	if err := os.MkdirAll(cfg.RevisionsDir, 0o755); err != nil {
		logger.Fatal("failed to create revisions dir", zap.Error(err))
	}

	service := app.New(cfg, app.Dependencies{
		Store:     store.NewPostgresStore(db),
		Sessions:  redisStore,
		Search:    searchService,
		Uploads:   uploads,
		Exporter:  export.NewService(),
		Revisions: revisions.New(cfg.RevisionsDir),
		Metrics:   metrics.New(),
		Logger:    logger,
	})

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("On Track API listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
}
