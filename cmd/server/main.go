package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/assessment-engine/recommender/internal/api"
	"github.com/assessment-engine/recommender/internal/catalog"
	"github.com/assessment-engine/recommender/internal/config"
	"github.com/assessment-engine/recommender/internal/engine"
	"github.com/assessment-engine/recommender/internal/fetcher"
	"github.com/assessment-engine/recommender/internal/storage"
)

func main() {
	// 1. Config
	cfg := config.Load()

	// 2. Logging
	logger := newLogger(cfg.Log)
	entry := logger.WithField("service", "recommender-api")
	entry.Info("Starting Assessment Recommendation Service")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Catalog source
	source, err := newSource(cfg, entry)
	if err != nil {
		entry.Fatalf("Failed to initialize catalog source: %v", err)
	}

	// 4. Engine and first build
	eng := engine.NewEngine(cfg, entry.WithField("component", "engine"), source)
	if _, err := eng.Rebuild(ctx); err != nil {
		entry.Fatalf("Failed to build index: %v", err)
	}

	if cfg.Catalog.Watch {
		if err := eng.Watch(ctx); err != nil && !errors.Is(err, engine.ErrNotWatchable) {
			entry.WithError(err).Warn("Catalog watcher disabled")
		}
	}

	// 5. API Server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewServer(eng, entry.WithField("component", "api")),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		entry.Infof("Assessment Recommendation API ready on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			entry.Fatal(err)
		}
	}()

	<-ctx.Done()
	entry.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		entry.WithError(err).Error("Graceful shutdown failed")
	}
}

func newLogger(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// newSource prefers a remote catalog, cached on disk, over the local file.
func newSource(cfg *config.Config, log *logrus.Entry) (catalog.Source, error) {
	if cfg.Catalog.URL == "" {
		return catalog.NewFileSource(cfg.Catalog.Path), nil
	}

	cache, err := storage.NewFileStorage(cfg.Catalog.CacheDir)
	if err != nil {
		return nil, err
	}
	ft := fetcher.NewFetcher(fetcher.Options{
		Timeout:       cfg.Fetch.Timeout,
		UserAgent:     cfg.Fetch.UserAgent,
		RespectRobots: cfg.Fetch.RespectRobots,
	}, log.WithField("component", "fetcher"))

	return catalog.NewRemoteSource(cfg.Catalog.URL, ft, cache, log.WithField("component", "catalog")), nil
}
