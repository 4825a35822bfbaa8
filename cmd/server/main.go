package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"marketplace-sync-service/internal/api"
	"marketplace-sync-service/internal/config"
	"marketplace-sync-service/internal/logger"
	"marketplace-sync-service/internal/marketplace"
	"marketplace-sync-service/internal/proxy"
	"marketplace-sync-service/internal/scheduler"
	"marketplace-sync-service/internal/store"
	"marketplace-sync-service/internal/sync"
)

func main() {
	// Load Config
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Init Logger
	if err := logger.InitLogger(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Log.Info("Starting Marketplace Sync Service")

	// Init Document Store
	docStore, err := store.NewMySQLStore(cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to init document store", zap.Error(err))
	}
	defer docStore.Close()

	// Init Proxy Transport
	pool, err := proxy.NewPool(cfg.Proxy.Endpoints)
	if err != nil {
		logger.Log.Fatal("Failed to init proxy pool", zap.Error(err))
	}
	executor := proxy.NewExecutor(pool)
	logger.Log.Info("Proxy pool ready", zap.Int("endpoints", pool.Size()))

	// Init Marketplace Client
	client := marketplace.NewClient(executor, cfg.Marketplace.BaseURL, cfg.Marketplace.GetRequestTimeout())

	// Init Sync Engine
	orch := sync.NewOrchestrator(
		client,
		sync.NewResolver(docStore),
		sync.NewWriter(docStore),
		sync.OrchestratorConfig{
			PageSize:            cfg.Marketplace.PageSize,
			DefaultMaxPages:     cfg.Sync.MaxPages,
			RateLimitCooldown:   cfg.Sync.GetRateLimitCooldown(),
			RateLimitMaxRetries: cfg.Sync.RateLimitMaxRetries,
		},
	)
	manager := sync.NewManager(docStore, orch)

	// Init Scheduler
	sched := scheduler.NewScheduler(cfg.Scheduler, manager)
	sched.Start()

	// Init API
	handler := api.NewHandler(manager, cfg.Server)
	router := handler.Routes()

	// Start Server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  cfg.Server.GetReadTimeout(),
		WriteTimeout: cfg.Server.GetWriteTimeout(),
	}

	go func() {
		logger.Log.Info("Server listening", zap.String("addr", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down server...")
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server shutdown failed", zap.Error(err))
	}
}
