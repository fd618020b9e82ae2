package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/haleth/cardchat/internal/api"
	"github.com/haleth/cardchat/internal/chat"
	"github.com/haleth/cardchat/internal/config"
	"github.com/haleth/cardchat/internal/db"
	"github.com/haleth/cardchat/internal/logger"
	"github.com/haleth/cardchat/internal/repository/sqlite"
	"github.com/haleth/cardchat/internal/services"
	"github.com/haleth/cardchat/internal/store"
	"github.com/haleth/cardchat/internal/worker"
)

func main() {
	cfg := config.Load()

	// Initialize logger
	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(true),
	)
	logger.SetDefault(log)

	log.Info("===========================================")
	log.Info("CardChat Server Starting")
	log.Info("===========================================")
	log.Info("configuration loaded")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("db_path=%s", cfg.DBPath)
	log.Debug("chat_provider=%s", cfg.ChatProvider)
	log.Debug("chat_model=%s", cfg.Model)
	log.Debug("log_level=%s", cfg.LogLevel)
	log.Debug("maintenance_worker_count=%d", cfg.MaintenanceWorkerCount)
	log.Debug("maintenance_queue_size=%d", cfg.MaintenanceQueueSize)

	// Open database
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Error("failed to open database: %v", err)
		os.Exit(1)
	}
	defer func() {
		log.Debug("closing database connection")
		database.Close()
	}()

	// Conversation store
	repo := sqlite.NewConversationRepository(database.DB)
	convStore := store.New(repo)

	// Chat client. A missing API key disables chat but not the rest of the
	// service; the host learns about it through /healthz and CONFIG_MISSING.
	client := buildChatClient(cfg, log)
	if client == nil {
		log.Warn("no chat API key configured, chat is disabled until one is provided")
	}

	// Maintenance worker pool
	maintenancePool := worker.NewPool(cfg.MaintenanceWorkerCount, cfg.MaintenanceQueueSize)

	// Initialize services
	sessionService := services.NewSessionService(convStore, client)
	studyToolsService := services.NewStudyToolsService(convStore, client)

	srv := api.NewServer(sessionService, studyToolsService, convStore, maintenancePool, client != nil, cfg.ChatProvider)

	ctx, cancel := context.WithCancel(context.Background())
	maintenancePool.Start(ctx)

	// Configure HTTP server
	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Duration(cfg.RequestTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server
	go func() {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop

	log.Info("received signal %v, initiating graceful shutdown", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Debug("stopping maintenance pool")
	cancel()

	log.Debug("shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
	}

	maintenancePool.Stop()

	log.Info("===========================================")
	log.Info("CardChat Server Stopped")
	log.Info("===========================================")
}

func buildChatClient(cfg config.Config, log *logger.Logger) chat.Client {
	if !cfg.ChatReady() {
		return nil
	}

	settings := chat.Settings{
		APIKey:       cfg.APIKey,
		Model:        cfg.Model,
		MaxTokens:    cfg.MaxTokens,
		Temperature:  cfg.Temperature,
		Instructions: cfg.Instructions,
		Timeout:      time.Duration(cfg.RequestTimeout) * time.Second,
		MaxRetries:   cfg.MaxRetries,
		RateLimit:    rate.Limit(cfg.RateLimitRPS),
		RateBurst:    cfg.RateLimitBurst,
	}

	if cfg.ChatProvider == config.ProviderGemini {
		client, err := chat.NewGemini(context.Background(), settings)
		if err != nil {
			log.Error("failed to initialize Gemini client, chat disabled: %v", err)
			return nil
		}
		return client
	}
	return chat.NewOpenAI(settings)
}
