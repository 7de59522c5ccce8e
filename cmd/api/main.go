package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jwebster45206/page-engine/internal/config"
	"github.com/jwebster45206/page-engine/internal/handlers"
	"github.com/jwebster45206/page-engine/internal/logger"
	"github.com/jwebster45206/page-engine/internal/middleware"
	"github.com/jwebster45206/page-engine/internal/storage"
	"github.com/jwebster45206/page-engine/internal/telemetry"
	"github.com/jwebster45206/page-engine/pkg/environment"
	"github.com/jwebster45206/page-engine/pkg/navigation"
	"github.com/jwebster45206/page-engine/pkg/session"
	pkgstorage "github.com/jwebster45206/page-engine/pkg/storage"
	"github.com/jwebster45206/page-engine/pkg/world"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Page Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"world_file", cfg.WorldFile,
		"env_window", cfg.EnvWindow,
		"env_policy", cfg.EnvPolicy)

	graph, err := world.LoadFile(cfg.WorldFile)
	if err != nil {
		var loadErr *world.LoadError
		if errors.As(err, &loadErr) {
			for _, e := range loadErr.Errs {
				log.Error("World definition error", "error", e)
			}
		}
		log.Error("Failed to load world", "path", cfg.WorldFile, "error", err)
		os.Exit(1)
	}
	for _, w := range graph.Warnings() {
		log.Warn("World warning", "kind", w.Kind, "location", w.LocationID, "detail", w.Detail)
	}
	log.Info("World loaded", "name", graph.Name(), "locations", graph.Len(), "start", graph.Start())

	shutdownTracing, err := telemetry.Setup(context.Background(), "page-engine", cfg.OTelEndpoint)
	if err != nil {
		log.Error("Failed to set up tracing", "error", err)
		os.Exit(1)
	}

	cache := environment.NewCache(cfg.EnvWindow,
		environment.ClimateGenerator{Source: graph},
		environment.SeedFor(cfg.EnvPolicy, cfg.WorldSeed),
		log)
	sessions := session.NewStore(graph.Start(), cfg.HistoryLimit)

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go cache.RunSweeper(sweepCtx, cfg.SweepInterval)

	worldsDir := filepath.Dir(cfg.WorldFile)
	var (
		backend   pkgstorage.Storage
		snapshots navigation.SnapshotStore
		pinger    handlers.Pinger
		worlds    pkgstorage.WorldLister = storage.WorldDir{Dir: worldsDir, Logger: log}
	)
	if cfg.RedisURL != "" {
		redis := storage.NewRedisStorage(cfg.RedisURL, worldsDir, cfg.SessionTTL, log)
		storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
		if err := redis.WaitForConnection(storageCtx, 30, 2*time.Second); err != nil {
			storageCancel()
			log.Error("Failed to connect to storage", "error", err)
			os.Exit(1)
		}
		storageCancel()
		backend = redis
		snapshots, pinger, worlds = backend, backend, backend
		log.Info("Session snapshots enabled", "ttl", cfg.SessionTTL)
	} else {
		log.Info("Session snapshots disabled; sessions live in memory only")
	}

	engine := navigation.NewEngine(graph, cache, sessions, snapshots, log)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(pinger, cache, sessions, log)
	mux.Handle("/health", healthHandler)

	navHandler := handlers.NewNavigationHandler(engine, log)
	mux.Handle("/v1/view", navHandler)
	mux.Handle("/v1/act", navHandler)
	mux.Handle("/v1/session", navHandler)

	mux.Handle("/v1/world", handlers.NewWorldHandler(graph, log))
	mux.Handle("/v1/worlds", handlers.NewWorldListHandler(worlds, graph.Name(), log))

	handler := middleware.Logger(log, mux)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}
	stopSweeper()

	if backend != nil {
		if err := backend.Close(); err != nil {
			log.Error("Error closing storage connection", "error", err)
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("Error flushing traces", "error", err)
	}

	log.Info("Server exited")
}
