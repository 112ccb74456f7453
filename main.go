package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"csgo-pricecheck/internal/api"
	"csgo-pricecheck/internal/background"
	"csgo-pricecheck/internal/config"
	"csgo-pricecheck/internal/database"
	"csgo-pricecheck/internal/logx"
	"csgo-pricecheck/internal/services/fetcher"
	"csgo-pricecheck/internal/services/pricecache"
	"csgo-pricecheck/internal/services/pricempire"
	"csgo-pricecheck/internal/services/settings"
	"csgo-pricecheck/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logx.Init(logx.Options{Environment: cfg.Environment})
	if envErr != nil {
		logx.Debug().Msg("No .env file found")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kv, err := openStore(ctx, cfg)
	if err != nil {
		logx.Fatal().Err(err).Str("backend", cfg.StorageBackend).Msg("Failed to open storage")
	}
	defer kv.Close()

	cache := pricecache.New(kv)
	settingsSvc := settings.NewService(kv)
	source := pricempire.NewService(cfg.PriceEmpireURL, cfg.PriceEmpireTimeout)
	orchestrator := fetcher.NewOrchestrator(source, settingsSvc, cache)
	handler := background.NewHandler(cache, settingsSvc, orchestrator)

	if cfg.FetchInterval > 0 {
		go orchestrator.Run(ctx, cfg.FetchInterval)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	// API routes
	apiGroup := r.Group("/api/v1")
	api.SetupRoutes(apiGroup, handler, cache)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logx.Warn().Err(err).Msg("Server shutdown failed")
		}
	}()

	logx.Info().Str("addr", cfg.HTTPAddr).Str("backend", cfg.StorageBackend).Msg("Background server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logx.Fatal().Err(err).Msg("Server failed")
	}
	logx.Info().Msg("Background server stopped")
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.StorageBackend {
	case config.BackendRedis:
		return storage.NewRedis(ctx, storage.RedisConfig{
			URL:          cfg.Redis.URL,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			DialTimeout:  cfg.Redis.DialTimeout,
			KeyPrefix:    "pricecheck:",
		})
	case config.BackendMySQL:
		db, err := database.Initialize(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return storage.NewSQL(db), nil
	case config.BackendMemory:
		return storage.NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}
