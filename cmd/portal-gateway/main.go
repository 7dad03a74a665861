package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/etbur/eschool-portal/internal/apiclient"
	"github.com/etbur/eschool-portal/internal/auth"
	"github.com/etbur/eschool-portal/internal/handler"
	"github.com/etbur/eschool-portal/internal/metrics"
	"github.com/etbur/eschool-portal/internal/models"
	"github.com/etbur/eschool-portal/internal/router"
	"github.com/etbur/eschool-portal/internal/teacher"
	"github.com/etbur/eschool-portal/pkg/cache"
	"github.com/etbur/eschool-portal/pkg/config"
	"github.com/etbur/eschool-portal/pkg/jobs"
	"github.com/etbur/eschool-portal/pkg/logger"
	"github.com/etbur/eschool-portal/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := metrics.New()

	checks := map[string]handler.ReadinessCheck{}
	tokens, closeTokens := tokenStore(ctx, cfg, logr, checks)
	defer closeTokens()

	refreshURL := cfg.API.BaseURL + cfg.API.RefreshPath
	manager := auth.NewManager(tokens, &http.Client{Timeout: cfg.API.Timeout}, refreshURL, logr, svc)
	client := apiclient.New(cfg.API, manager, manager, logr, svc)

	downloads, err := storage.NewLocalStorage(cfg.Downloads.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare downloads directory", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Downloads.SignedURLSecret, cfg.Downloads.SignedURLTTL)

	runtime := teacher.NewRuntime(client, manager, downloads, cfg.Session, nil, logr, svc)
	defer runtime.Close()

	var exports *handler.ExportHandler
	queue := jobs.NewQueue("exports", func(ctx context.Context, job jobs.Job) error {
		return exports.Process(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Downloads.Workers,
		MaxRetries: cfg.Downloads.Retries,
		RetryDelay: cfg.Downloads.RetryDelay,
		Retain:     cfg.Downloads.SignedURLTTL,
		Logger:     logr,
	})
	exports = handler.NewExportHandler(queue, signer, downloads, logr)
	queue.Start(ctx)
	defer queue.Stop()

	bootstrap(ctx, cfg, runtime, logr)
	go sweepDownloads(ctx, downloads, cfg.Downloads.SignedURLTTL, logr)

	r := router.New(router.Dependencies{
		Runtime:         runtime,
		Credentials:     manager,
		Exports:         exports,
		Metrics:         svc,
		ReadinessChecks: checks,
		Logger:          logr,
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		Docs:            cfg.Env != config.EnvProduction,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "api", client.BaseURL())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

// tokenStore picks the credential store. Redis registers its own readiness probe in checks.
func tokenStore(ctx context.Context, cfg *config.Config, logr *zap.Logger, checks map[string]handler.ReadinessCheck) (auth.TokenStore, func()) {
	if cfg.Tokens.Store != config.TokenStoreRedis {
		return auth.NewMemoryTokenStore(), func() {}
	}
	client, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, keeping credentials in memory", "error", err)
		return auth.NewMemoryTokenStore(), func() {}
	}
	checks["redis"] = cache.HealthCheck(client)
	return auth.NewRedisTokenStore(client, cfg.Tokens.KeyPrefix, logr), func() { _ = client.Close() }
}

// bootstrap signs in with tokens from the environment, or resumes credentials kept in Redis.
func bootstrap(ctx context.Context, cfg *config.Config, runtime *teacher.Runtime, logr *zap.Logger) {
	if cfg.Tokens.AccessToken != "" {
		_, err := runtime.Login(ctx, models.Credentials{
			AccessToken:  cfg.Tokens.AccessToken,
			RefreshToken: cfg.Tokens.RefreshToken,
		})
		if err != nil {
			logr.Sugar().Warnw("bootstrap login failed", "error", err)
		}
		return
	}
	if _, err := runtime.Resume(ctx); err == nil {
		logr.Sugar().Infow("resumed stored teacher session")
	}
}

func sweepDownloads(ctx context.Context, downloads *storage.LocalStorage, ttl time.Duration, logr *zap.Logger) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := downloads.CleanupOlderThan(ttl)
			if err != nil {
				logr.Sugar().Warnw("download cleanup failed", "error", err)
				continue
			}
			if len(removed) > 0 {
				logr.Sugar().Infow("removed expired downloads", "count", len(removed))
			}
		}
	}
}
