package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/tst4ckr/streamio-magnet-resolver/pkg/aggregator"
	"github.com/tst4ckr/streamio-magnet-resolver/pkg/cachestore"
	"github.com/tst4ckr/streamio-magnet-resolver/pkg/errorrouter"
	"github.com/tst4ckr/streamio-magnet-resolver/pkg/identifier"
	"github.com/tst4ckr/streamio-magnet-resolver/pkg/metafetcher"
	"github.com/tst4ckr/streamio-magnet-resolver/pkg/pipeline"
	"github.com/tst4ckr/streamio-magnet-resolver/pkg/repository"
	"github.com/tst4ckr/streamio-magnet-resolver/pkg/search"
	"github.com/tst4ckr/streamio-magnet-resolver/pkg/snapshot"
)

const version = "0.1.0"

func main() {
	logger := newLogger("info")

	logger.Info("Parsing config...")
	cfg := parseConfig()
	if err := cfg.validate(); err != nil {
		logger.Fatal("Invalid config", zap.Error(err))
	}
	if cfg.LogLevel != "info" {
		logger = newLogger(cfg.LogLevel)
	}
	logger.Info("Parsed config", zap.Int("port", cfg.Port), zap.String("host", cfg.Host))

	cache := cachestore.New(cachestore.Config{
		MaxBytes:    int64(cfg.CacheMaxMemoryMB) * 1024 * 1024,
		MaxEntries:  cfg.CacheMaxEntries,
		DefaultTTL:  cfg.CacheDefaultTTL,
		SweepPeriod: cfg.CacheSweepPeriod,
	}, logger)
	defer cache.Close()

	detector := identifier.NewDetector()
	validator := identifier.NewValidator()

	stores := initSnapshotStores(cfg, logger)

	aggClient := aggregator.New(aggregator.Config{
		BaseURL:         cfg.AggregatorBaseURL,
		DefaultLanguage: cfg.AggregatorLanguage,
	}, logger)

	repo := repository.New(stores, aggClient, cache, detector, logger)

	providers := initProviders(cfg, logger)
	orchestrator := search.New(providers, cache, search.Config{
		MaxConcurrentSearches: cfg.MaxConcurrentSearches,
		MaxResults:            cfg.SearchMaxResults,
	}, logger)

	router := errorrouter.New(logger)

	metaClient := metafetcher.New(cfg.CinemetaBaseURL, 5*time.Second, cache, logger)

	pl := pipeline.New(detector, validator, repo, metaClient, cache, router, logger)

	addr := cfg.Host + ":" + strconv.Itoa(cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      buildRouter(pl, orchestrator, cache, metaClient, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	logger.Info("Starting server", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("Server stopped unexpectedly", zap.Error(err))
	}
}

func buildRouter(pl *pipeline.Pipeline, orch *search.Orchestrator, cache *cachestore.Cache, metaClient *metafetcher.Client, logger *zap.Logger) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = notFoundHandler()

	r.HandleFunc("/manifest.json", manifestHandler()).Methods(http.MethodGet)
	r.HandleFunc("/stream/{type}/{id}.json", streamHandler(pl)).Methods(http.MethodGet)
	r.HandleFunc("/catalog/{type}/{catalogId}.json", catalogHandler()).Methods(http.MethodGet)
	r.HandleFunc("/meta/{type}/{id}.json", metaHandler(metaClient)).Methods(http.MethodGet)
	r.HandleFunc("/api/search", searchHandler(orch, logger)).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/api/providers/stats", providerStatsHandler(orch)).Methods(http.MethodGet)
	r.HandleFunc("/api/cache/clean", cacheCleanHandler(cache, logger)).Methods(http.MethodPost)
	r.HandleFunc("/api/health", healthHandler(cache)).Methods(http.MethodGet)

	r.Use(timerMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(corsMiddleware())

	return recoveryMiddleware(r)
}

func initSnapshotStores(cfg config, logger *zap.Logger) []repository.SnapshotSource {
	sources := cfg.snapshotSourceList()
	stores := make([]repository.SnapshotSource, 0, len(sources))
	for _, pair := range sources {
		name, source := pair[0], pair[1]
		store := snapshot.New(name, source, 30*time.Second, logger)
		stores = append(stores, repository.WrapSnapshotStore(store))
		logger.Info("Registered snapshot store", zap.String("name", name), zap.String("source", source))
	}
	return stores
}

func initProviders(cfg config, logger *zap.Logger) []search.Provider {
	var providers []search.Provider
	if cfg.YTSEnabled {
		providers = append(providers, search.NewYTSProvider(cfg.YTSBaseURL, cfg.YTSTimeout, logger))
	}
	if cfg.LeetxEnabled {
		providers = append(providers, search.NewLeetxProvider(cfg.LeetxBaseURL, cfg.LeetxTimeout, logger))
	}
	if cfg.IbitEnabled {
		providers = append(providers, search.NewIbitProvider(cfg.IbitBaseURL, cfg.IbitTimeout, logger))
	}
	return providers
}

func newLogger(level string) *zap.Logger {
	zapLevel := zap.NewAtomicLevel()
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel.SetLevel(zap.InfoLevel)
	}
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zapLevel
	logger, err := zapCfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
