package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"newspulse/internal/app"
	"newspulse/internal/config"
	"newspulse/internal/embed"
	"newspulse/internal/logger"
	"newspulse/internal/metrics"
	"newspulse/internal/ratelimit"
	"newspulse/internal/retry"
	"newspulse/internal/storage"
)

func main() {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("storage unavailable: %v", err)
	}
	defer store.Close()

	embedder, err := embed.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel,
		ratelimit.New(cfg.MaxEmbedRequests),
		retry.Config{MaxAttempts: cfg.RetryAttempts, Delay: cfg.RetryDelay, Backoff: true})
	if err != nil {
		log.Fatalf("embedding provider unavailable: %v", err)
	}
	defer embedder.Close()

	service, err := app.New(cfg, store, embedder)
	if err != nil {
		log.Fatalf("service init failed: %v", err)
	}

	if os.Getenv("ENABLE_HTTP_MONITORING") == "true" {
		go startMonitoringServer()
	}

	// First cycle right away, then on the cron schedule.
	if err := service.Refresh(ctx); err != nil {
		logger.Error("initial refresh failed", "error", err)
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.RefreshSchedule, func() {
		if err := service.Refresh(ctx); err != nil {
			logger.Error("refresh failed", "error", err)
		}
	}); err != nil {
		log.Fatalf("invalid refresh schedule %q: %v", cfg.RefreshSchedule, err)
	}
	c.Start()
	defer c.Stop()

	logger.Info("newspulse running", "schedule", cfg.RefreshSchedule)
	<-ctx.Done()
	logger.Info("shutting down")
}

func startMonitoringServer() {
	port := os.Getenv("MONITORING_PORT")
	if port == "" {
		port = "8080"
	}

	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/metrics", metricsHandler)

	logger.Info("starting monitoring server", "port", port)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		logger.Error("monitoring server error", "error", err)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()

	status := "ok"
	if !stats["is_healthy"].(bool) {
		status = "error"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	response := map[string]interface{}{
		"status":     status,
		"last_run":   stats["last_refresh_time"],
		"last_error": stats["last_error"],
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func metricsHandler(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
