package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/pagedeco/internal/api"
	"github.com/dgallion1/pagedeco/internal/config"
	"github.com/dgallion1/pagedeco/internal/content"
	"github.com/dgallion1/pagedeco/internal/decor"
	"github.com/dgallion1/pagedeco/internal/metrics"
	"github.com/dgallion1/pagedeco/internal/pipeline"
)

type closer interface {
	Close() error
}

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := config.LoadEnvFile(".env"); err != nil {
		log.Error("failed to load .env", "error", err)
		os.Exit(1)
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the content source.
	var src content.Source
	var srcCloser closer
	if cfg.ContentDir != "" {
		dir, err := content.NewDirSource(cfg.ContentDir, log)
		if err != nil {
			log.Error("failed to open content dir", "error", err)
			os.Exit(1)
		}
		if cfg.WatchContent {
			if err := dir.Watch(ctx); err != nil {
				log.Warn("content watch disabled", "error", err)
			}
		}
		src, srcCloser = dir, dir
	} else {
		origin := content.NewOriginSource(cfg.OriginURL, log, content.WithAPIKey(cfg.OriginAPIKey))
		src = origin
		srcCloser = closerFunc(func() error { origin.Close(); return nil })
	}

	// Initialize pipeline.
	rec := metrics.NewRecorder(nil)
	stats := pipeline.NewStats(time.Hour, nil)
	lib := decor.New(cfg.CodeBasePath, log, decor.WithFragmentLoader(content.Fragments{Source: src}))
	loader := pipeline.NewLoader(pipeline.Settings{
		CodeBasePath:  cfg.CodeBasePath,
		RUMGeneration: cfg.RUMGeneration,
		RUMWeight:     cfg.RUMWeight,
		LCPBlocks:     cfg.LCPBlocks,
		Lang:          cfg.Lang(),
		DelayedAfter:  cfg.DelayedAfter,
	}, lib, log, pipeline.WithMetrics(rec), pipeline.WithStats(stats))

	manager, err := pipeline.NewManager(loader, src, stats, pipeline.ManagerConfig{
		SessionTTL:      cfg.SessionTTL,
		CleanupInterval: cfg.CleanupInterval,
	}, log)
	if err != nil {
		log.Error("failed to create session manager", "error", err)
		os.Exit(1)
	}
	manager.Start()

	// Initialize HTTP server.
	srv := api.NewServer(manager, rec, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		if err := manager.Stop(); err != nil {
			log.Warn("session manager shutdown", "error", err)
		}
		cancel()
		if err := srcCloser.Close(); err != nil {
			log.Warn("content source close", "error", err)
		}
	}()

	log.Info("starting pagedeco", "port", cfg.Port, "content_dir", cfg.ContentDir, "origin", cfg.OriginURL)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
