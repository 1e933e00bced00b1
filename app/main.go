package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/rss-digest/app/api"
	"github.com/lysyi3m/rss-digest/app/cfg"
	"github.com/lysyi3m/rss-digest/app/database"
	"github.com/lysyi3m/rss-digest/app/feed"
	"github.com/lysyi3m/rss-digest/app/logging"
	"github.com/lysyi3m/rss-digest/app/pipeline"
	"github.com/lysyi3m/rss-digest/app/summary"
	"github.com/lysyi3m/rss-digest/app/tasks"
)

func main() {
	appCfg, err := cfg.Load(os.Args[1:])
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	logCloser := logging.Setup(logging.Options{Debug: appCfg.Debug, LogFile: appCfg.LogFile})
	defer logCloser.Close()

	slog.Info("Starting RSS Digest server", "version", appCfg.Version)

	store, err := openStore(appCfg)
	if err != nil {
		slog.Error("Failed to open document store", "store", appCfg.Store, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	configCache := feed.NewConfigCache(appCfg.SourcesDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load seed sources", "dir", appCfg.SourcesDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Seed sources loaded", "count", configCache.GetConfigCount(), "dir", appCfg.SourcesDir)

	sourceRepo := database.NewSourceStore(store)
	itemRepo := database.NewItemStore(store)

	parser, err := feed.NewParser(feed.ParserBackend(appCfg.Parser))
	if err != nil {
		slog.Error("Failed to create parser", "parser", appCfg.Parser, "error", err)
		os.Exit(1)
	}

	summarizer, err := summary.New(summary.Options{
		Provider: appCfg.LLMProvider,
		Model:    appCfg.LLMModel,
		BaseURL:  appCfg.LLMBaseURL,
		APIKey:   appCfg.OpenAIAPIKey,
	})
	if err != nil {
		slog.Error("Failed to create summarizer", "provider", appCfg.LLMProvider, "error", err)
		os.Exit(1)
	}

	enricher := summary.NewEnricher(summarizer, summary.EnricherOptions{
		MinLength:   appCfg.SummaryMinLength,
		Timeout:     appCfg.SummaryTimeout,
		Rate:        appCfg.SummaryRate,
		Concurrency: appCfg.SummaryConcurrency,
	})

	httpClient := &http.Client{}
	scraper := pipeline.NewScraper(httpClient, feed.NewContentExtractor(), enricher, appCfg.UserAgent)
	fetcher := pipeline.NewFetcher(httpClient, parser, feed.NewSplitter(appCfg.SplitHeading), feed.NewFilterer(),
		scraper, appCfg.UserAgent, appCfg.FetchTimeout)
	coordinator := pipeline.NewCoordinator(sourceRepo, itemRepo, fetcher, enricher, appCfg.RetentionWindow)

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount, "interval_seconds", appCfg.SchedulerInterval)
	scheduler := tasks.NewScheduler(configCache, sourceRepo, coordinator, tasks.SchedulerOptions{
		Interval:    time.Duration(appCfg.SchedulerInterval) * time.Second,
		Revalidate:  appCfg.RevalidateWindow,
		WorkerCount: appCfg.WorkerCount,
	})
	scheduler.Start()

	handler := api.NewHandler(coordinator, sourceRepo, itemRepo, store,
		feed.NewGenerator(appCfg.PublicURL(), appCfg.Version), scheduler,
		api.HandlerOptions{PublicURL: appCfg.PublicURL(), Version: appCfg.Version, Retention: appCfg.RetentionWindow})
	router := api.NewServer(handler, appCfg.APIAccessKey)

	// A refresh behind ?refresh=true can outlast a typical write timeout.
	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port, "public_url", appCfg.PublicURL())

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	scheduler.Stop()
	slog.Info("Background scheduler stopped")

	slog.Info("RSS Digest server shutdown complete")
}

func openStore(c *cfg.Cfg) (database.DocumentStore, error) {
	switch c.Store {
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return database.NewRedisStore(ctx, c.RedisAddr, c.RedisPassword, c.RedisDB)
	default:
		return database.NewSQLiteStore(c.DBPath)
	}
}
