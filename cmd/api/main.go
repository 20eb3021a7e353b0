// Package main is the entry point for the API server.
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

	"github.com/capitalize-ai/thinking-workspace/internal/config"
	"github.com/capitalize-ai/thinking-workspace/internal/engine"
	"github.com/capitalize-ai/thinking-workspace/internal/handler"
	"github.com/capitalize-ai/thinking-workspace/internal/llm"
	natsclient "github.com/capitalize-ai/thinking-workspace/internal/nats"
	"github.com/capitalize-ai/thinking-workspace/internal/storage"
	"github.com/capitalize-ai/thinking-workspace/internal/stream"
	"github.com/capitalize-ai/thinking-workspace/internal/workspace"
	"github.com/capitalize-ai/thinking-workspace/pkg/logger"
	"github.com/capitalize-ai/thinking-workspace/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server", zap.String("storage", cfg.StorageBackend), zap.String("provider", cfg.ResponseProvider))

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "thinking-workspace", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	hub := engine.NewHub()
	notifiers := engine.Fanout{hub}

	// Storage backend
	var adapter storage.Adapter
	switch cfg.StorageBackend {
	case config.StorageDisk:
		adapter, err = storage.NewDisk(cfg.DataDir)
		if err != nil {
			log.Fatal("failed to open data directory", zap.String("dir", cfg.DataDir), zap.Error(err))
		}

	case config.StorageNATS:
		natsClient, err := natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Fatal("failed to connect to NATS", zap.Error(err))
		}
		defer natsClient.Close()

		kv, err := natsclient.EnsureKV(ctx, natsClient.JetStream(), cfg.NATSKVBucket)
		if err != nil {
			log.Fatal("failed to ensure key-value bucket", zap.Error(err))
		}
		adapter = kv

		if cfg.NATSEventsEnabled {
			publisher := natsclient.NewPublisher(natsClient.JetStream(), log)
			if err := publisher.EnsureStream(ctx); err != nil {
				log.Fatal("failed to ensure event stream", zap.Error(err))
			}
			notifiers = append(notifiers, publisher)
		}

	default:
		if cfg.StorageBackend != config.StorageMemory {
			log.Warn("unknown storage backend, using memory", zap.String("storage", cfg.StorageBackend))
		}
		adapter = storage.NewMemory()
	}
	store := storage.NewBestEffort(adapter, log)

	// Response provider
	provider, err := llm.NewProvider(cfg.ResponseProvider, providerKey(cfg), cfg.LLMModel)
	if err != nil {
		log.Warn("failed to create response provider, using canned responses", zap.Error(err))
		provider = llm.NewCanned(nil)
	}
	instrumented := llm.Instrument(provider)

	// Services
	workspaces := workspace.NewService(store, func(workspaceID string, notifier engine.Notifier) *engine.Engine {
		return engine.New(engine.Config{
			WorkspaceID:  workspaceID,
			Store:        store,
			Provider:     instrumented,
			Scheduler:    stream.TickerScheduler{},
			TickInterval: cfg.StreamTickInterval,
			Notifier:     append(engine.Fanout{notifier}, notifiers...),
			Logger:       log,
		})
	}, log, workspace.WithPendingPromptTTL(cfg.PendingPromptTTL))
	defer workspaces.Close()

	var pinger storage.Pinger
	if p, ok := adapter.(storage.Pinger); ok {
		pinger = p
	}

	router := handler.NewRouter(handler.Deps{
		Workspaces:                 workspaces,
		Hub:                        hub,
		Refiner:                    llm.NewRefiner(instrumented, log),
		Pinger:                     pinger,
		Logger:                     log,
		CORSOrigins:                cfg.CORSOrigins,
		RateLimitRequests:          cfg.RateLimitRequests,
		WorkspaceRateLimitRequests: cfg.WorkspaceRateLimitRequests,
		RateLimitWindow:            cfg.RateLimitWindow,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

func providerKey(cfg *config.Config) string {
	switch cfg.ResponseProvider {
	case config.ProviderOpenAI:
		return cfg.OpenAIAPIKey
	case config.ProviderAnthropic:
		return cfg.AnthropicAPIKey
	}
	return ""
}
