// Package main is the offline rebuild tool. It runs the masterlist and
// metrics pipelines once and exits, writing the same artifacts the server
// serves. Useful for cron-driven batch hosts and first-time seeding.
package main

import (
	"flag"
	"path/filepath"

	"fundlens/internal/artifacts"
	"fundlens/internal/clientcache"
	"fundlens/internal/config"
	"fundlens/internal/database"
	"fundlens/internal/masterlist"
	"fundlens/internal/metrics"
	"fundlens/internal/navcache"
	"fundlens/internal/provider"
	"fundlens/pkg/logger"
)

func main() {
	force := flag.Bool("force", false, "rebuild the master map even when the artifact is fresh")
	workers := flag.Int("workers", 0, "override metrics worker count")
	riskFree := flag.Float64("rf", 0, "override annual risk-free rate")
	limit := flag.Int("limit", 0, "cap the number of parents/codes per metrics build (0 = all)")
	scope := flag.String("scope", "parents", "metrics scope: parents, all or none")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true})

	if *workers > 0 {
		cfg.MetricsWorkers = *workers
	}
	rf := cfg.RiskFreeRate
	if *riskFree > 0 {
		rf = *riskFree
	}

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

	prov := provider.NewClient(cfg.ProviderBaseURL, cfg.HistoryBaseURL, log)

	artifactStore, err := artifacts.New(cfg.DataDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create artifact store")
	}
	mlStore := masterlist.NewStore(artifactStore, log)

	filter := masterlist.NewFilter(prov, detailsCache, quotesCache, log)
	selector := masterlist.NewSelector(prov, quotesCache, log)
	builder := masterlist.NewBuilder(
		prov, filter, selector,
		detailsCache, quotesCache, mlStore,
		cfg.FilterWorkers, cfg.CheckpointEvery, log,
	)

	summary, err := builder.BuildAll(*force)
	if err != nil {
		log.Fatal().Err(err).Msg("Masterlist build failed")
	}
	log.Info().
		Int("active", summary.Active).
		Int("parents", summary.Parents).
		Dur("elapsed", summary.Elapsed).
		Msg("Masterlist artifacts written")

	if *scope == "none" {
		return
	}

	navs, err := navcache.New(filepath.Join(cfg.DataDir, "nav_cache"), prov, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create nav cache")
	}

	orch := metrics.NewOrchestrator(navs, detailsCache, quotesCache, prov, nil, cfg.MetricsWorkers, log)
	metricsBuilder := metrics.NewArtifactBuilder(orch, mlStore, artifactStore, log)

	switch *scope {
	case "parents":
		_, summary, err := metricsBuilder.BuildParentMetrics(*limit, rf)
		if err != nil {
			log.Fatal().Err(err).Msg("Parent metrics build failed")
		}
		log.Info().Int("computed", summary.Computed).
			Int("failed_or_empty", summary.FailedOrEmpty).
			Msg("Parent metrics artifact written")
	case "all":
		_, summary, err := metricsBuilder.BuildAllSchemeMetrics(*limit, rf)
		if err != nil {
			log.Fatal().Err(err).Msg("Scheme metrics build failed")
		}
		log.Info().Int("computed", summary.Computed).
			Int("failed_or_empty", summary.FailedOrEmpty).
			Msg("Scheme metrics artifact written")
	default:
		log.Fatal().Str("scope", *scope).Msg("Unknown metrics scope")
	}

	if err := detailsCache.Checkpoint(); err != nil {
		log.Warn().Err(err).Msg("Details cache final checkpoint failed")
	}
	if err := quotesCache.Checkpoint(); err != nil {
		log.Warn().Err(err).Msg("Quotes cache final checkpoint failed")
	}
	if err := cacheDB.WALCheckpoint("TRUNCATE"); err != nil {
		log.Warn().Err(err).Msg("WAL checkpoint failed")
	}
}
