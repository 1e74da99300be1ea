package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/melville-ops/melville/internal/api"
	"github.com/melville-ops/melville/internal/config"
	"github.com/melville-ops/melville/internal/convo"
	"github.com/melville-ops/melville/internal/events"
	"github.com/melville-ops/melville/internal/reasoning"
	"github.com/melville-ops/melville/internal/store"
	"github.com/melville-ops/melville/internal/view"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("melville starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Required secrets fail fast with a clear diagnostic.
	if cfg.DeepSeekAPIKey == "" {
		slog.Error("DEEPSEEK_API_KEY is required")
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database connected")

	// Event bus (optional — the dashboard runs fine without it).
	var bus *events.Publisher
	if cfg.NatsURL != "" {
		bus, err = events.NewPublisher(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer bus.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS not configured — running without mutation events")
	}

	llm := reasoning.NewClient(cfg.DeepSeekAPIKey, cfg.Model, cfg.DeepSeekAPIURL)
	slog.Info("reasoning client ready", "model", cfg.Model)

	engine := convo.NewEngine(llm, bus, slog.Default())
	views := view.NewRouter(engine)

	srv := api.NewServer(cfg.Port, engine, views, db, bus, slog.Default())
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("melville ready", "port", cfg.Port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	slog.Info("melville stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
