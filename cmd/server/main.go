package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/redinsight/agent/internal/agent"
	"github.com/redinsight/agent/internal/ai"
	"github.com/redinsight/agent/internal/config"
	"github.com/redinsight/agent/internal/conversation"
	"github.com/redinsight/agent/internal/handlers"
	"github.com/redinsight/agent/internal/intent"
	"github.com/redinsight/agent/internal/platform"
	"github.com/redinsight/agent/internal/session"
)

func main() {
	slog.Info("Starting content insight agent...")

	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, relying on process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Critical error loading configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	aiClient, err := ai.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		slog.Error("Critical error creating gemini client", "error", err)
		os.Exit(1)
	}

	holder := session.NewHolder(cfg.RedbookCookies, cfg.AuthFailureThreshold)
	fetcher := platform.New(cfg, holder)
	registry := handlers.Registry(handlers.Deps{
		Fetcher:  fetcher,
		AI:       aiClient,
		MaxItems: cfg.MaxItemsDefault,
		TopK:     cfg.TopKDefault,
	})
	classifier := intent.New(aiClient, cfg.ContextWindowTurns, cfg.MaxItemsDefault, cfg.TopKDefault)
	store := conversation.NewStore()
	dispatcher := agent.New(classifier, registry, store, cfg.ContextWindowTurns, cfg.RequestTimeout)

	api := &apiServer{dispatcher: dispatcher, store: store, holder: holder}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh
		slog.Info("Received signal, shutting down gracefully...", "signal", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
	}()

	slog.Info("Listening on port", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("Failed to listen and serve", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped.")
}
