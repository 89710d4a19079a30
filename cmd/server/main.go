package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docforge/internal/agent"
	"docforge/internal/api"
	"docforge/internal/config"
	"docforge/internal/gaps"
	"docforge/internal/llm"
	"docforge/internal/pages"
	"docforge/internal/pipeline"
	"docforge/internal/quality"
	"docforge/internal/store"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Error("open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}

	// Initialize model clients.
	primary, err := llm.New(llm.Options{
		Provider: cfg.Primary.Provider,
		APIKey:   cfg.Primary.APIKey,
		Model:    cfg.Primary.Model,
		BaseURL:  cfg.Primary.BaseURL,
	})
	if err != nil {
		log.Error("primary model client", "error", err)
		os.Exit(1)
	}
	analysis, err := llm.New(llm.Options{
		Provider: cfg.Analysis.Provider,
		APIKey:   cfg.Analysis.APIKey,
		Model:    cfg.Analysis.Model,
		BaseURL:  cfg.Analysis.BaseURL,
	})
	if err != nil {
		log.Error("analysis model client", "error", err)
		os.Exit(1)
	}

	// Assemble the generation loop.
	detector := gaps.NewDetector(analysis, log, cfg.AnalysisTimeout)
	cache := gaps.NewCache(db)
	gate := quality.NewGate(primary, log, cfg.ReviewTimeout)
	ag := agent.New(primary, detector, cache, gate, log, agent.Config{
		Temperature:     cfg.Primary.Temperature,
		MaxTokens:       cfg.Primary.MaxTokens,
		GenerateTimeout: cfg.GenerateTimeout,
	})

	orch := pipeline.NewOrchestrator(ag, log, cfg.WorkerCount, cfg.MaxQueueSize, cfg.JobTTL)
	orch.Start(ctx)

	var pagesClient *pages.Client
	if cfg.PagesToken != "" {
		pagesClient = pages.NewClient(cfg.PagesBaseURL, cfg.PagesToken)
	}

	srv := api.NewServer(orch, ag, cache, db, primary, pagesClient, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		primary.Close()
		analysis.Close()
		if pagesClient != nil {
			pagesClient.Close()
		}
		db.Close()
	}()

	log.Info("starting docforge", "port", cfg.Port, "model", primary.Model())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
