// Package main is the entry point for the fundlens scheme aggregation server.
// It sweeps the provider's scheme directory into an active master map, groups
// plan-level schemes under parent products, computes performance and risk
// metrics for representative schemes, and serves the results over HTTP.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"fundlens/internal/artifacts"
	"fundlens/internal/clientcache"
	"fundlens/internal/config"
	"fundlens/internal/database"
	"fundlens/internal/masterlist"
	"fundlens/internal/metrics"
	"fundlens/internal/navcache"
	"fundlens/internal/overview"
	"fundlens/internal/provider"
	"fundlens/internal/scheduler"
	"fundlens/internal/server"
	"fundlens/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("data_dir", cfg.DataDir).Int("port", cfg.Port).Msg("Starting fundlens")

	// Durable payload cache database
	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "clientcache.db"),
		Profile: database.ProfileCache,
		Name:    "clientcache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	if err := cacheDB.Migrate(clientcache.Schema); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate cache database")
	}

	cacheRepo := clientcache.NewRepository(cacheDB.Conn())
	detailsCache := clientcache.NewCache("scheme_details", clientcache.TTLDetails, cacheRepo, log)
	quotesCache := clientcache.NewCache("scheme_quotes", clientcache.TTLQuotes, cacheRepo, log)

	// Provider client
	prov := provider.NewClient(cfg.ProviderBaseURL, cfg.HistoryBaseURL, log)

	// Artifact stores
	artifactStore, err := artifacts.New(cfg.DataDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create artifact store")
	}
	mlStore := masterlist.NewStore(artifactStore, log)

	// Masterlist pipeline
	filter := masterlist.NewFilter(prov, detailsCache, quotesCache, log)
	selector := masterlist.NewSelector(prov, quotesCache, log)
	builder := masterlist.NewBuilder(
		prov, filter, selector,
		detailsCache, quotesCache, mlStore,
		cfg.FilterWorkers, cfg.CheckpointEvery, log,
	)

	// NAV series cache and metrics
	navs, err := navcache.New(filepath.Join(cfg.DataDir, "nav_cache"), prov, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create nav cache")
	}

	hub := metrics.NewProgressHub()
	orch := metrics.NewOrchestrator(navs, detailsCache, quotesCache, prov, hub, cfg.MetricsWorkers, log)
	metricsBuilder := metrics.NewArtifactBuilder(orch, mlStore, artifactStore, log)

	overviewSvc := overview.NewService(mlStore, metricsBuilder, log)

	// Background jobs
	sched := scheduler.New(log)
	if !cfg.ScheduleDisabled {
		refreshJob := masterlist.NewRefreshJob(builder, log)
		if err := sched.AddJob(cfg.RefreshSchedule, refreshJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to register refresh job")
		}

		cleanupJob := clientcache.NewCleanupJob(cacheRepo, log)
		if err := sched.AddJob(cfg.CleanupSchedule, cleanupJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to register cleanup job")
		}

		sched.Start()
		defer sched.Stop()
	} else {
		log.Warn().Msg("Scheduled jobs disabled")
	}

	srv := server.New(server.Config{
		Log:            log,
		Config:         cfg,
		CacheDB:        cacheDB,
		Builder:        builder,
		MasterStore:    mlStore,
		MetricsBuilder: metricsBuilder,
		ProgressHub:    hub,
		Overview:       overviewSvc,
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	// flush any dirty cache entries before the database closes
	if err := detailsCache.Checkpoint(); err != nil {
		log.Warn().Err(err).Msg("Details cache final checkpoint failed")
	}
	if err := quotesCache.Checkpoint(); err != nil {
		log.Warn().Err(err).Msg("Quotes cache final checkpoint failed")
	}
	if err := cacheDB.WALCheckpoint("TRUNCATE"); err != nil {
		log.Warn().Err(err).Msg("WAL checkpoint failed")
	}

	log.Info().Msg("Shutdown complete")
}
