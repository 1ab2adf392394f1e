package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/vecspace/internal/config"
	"github.com/kailas-cloud/vecspace/internal/db"
	"github.com/kailas-cloud/vecspace/internal/db/chromem"
	"github.com/kailas-cloud/vecspace/internal/db/memory"
	"github.com/kailas-cloud/vecspace/internal/db/sqlite"
	dbValkey "github.com/kailas-cloud/vecspace/internal/db/valkey"
	"github.com/kailas-cloud/vecspace/internal/domain"
	domcol "github.com/kailas-cloud/vecspace/internal/domain/collection"
	logpkg "github.com/kailas-cloud/vecspace/internal/logger"
	"github.com/kailas-cloud/vecspace/internal/metrics"
	catalogrepo "github.com/kailas-cloud/vecspace/internal/repository/catalog"
	"github.com/kailas-cloud/vecspace/internal/repository/embcache"
	migrationrepo "github.com/kailas-cloud/vecspace/internal/repository/migration"
	vectorrepo "github.com/kailas-cloud/vecspace/internal/repository/vector"
	chiTransport "github.com/kailas-cloud/vecspace/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/vecspace/internal/transport/openai"
	cataloguc "github.com/kailas-cloud/vecspace/internal/usecase/catalog"
	embeddinguc "github.com/kailas-cloud/vecspace/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/vecspace/internal/usecase/health"
	manageruc "github.com/kailas-cloud/vecspace/internal/usecase/manager"
	migrationuc "github.com/kailas-cloud/vecspace/internal/usecase/migration"
	searchuc "github.com/kailas-cloud/vecspace/internal/usecase/search"
	"github.com/kailas-cloud/vecspace/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting vecspace API server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_path", cfg.Database.Path),
		zap.String("engine", cfg.Engine.Driver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Catalog store
	catalogDB, err := sqlite.Open(sqlite.Config{
		Path:         cfg.Database.Path,
		BusyTimeout:  time.Duration(cfg.Database.BusyTimeoutMs) * time.Millisecond,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	})
	if err != nil {
		logger.Fatal("Failed to open catalog database", zap.Error(err))
	}
	defer func() { _ = catalogDB.Close() }()

	if err := catalogDB.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Catalog database not ready", zap.Error(err))
	}
	logger.Info("Catalog database ready")

	metrics.RegisterHTTPMetrics()
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterDomainMetrics()

	engine, cache, closeEngine, err := buildEngine(ctx, cfg.Engine)
	if err != nil {
		logger.Fatal("Failed to create vector engine", zap.Error(err))
	}
	defer closeEngine()
	logger.Info("Vector engine ready", zap.String("driver", cfg.Engine.Driver))

	// Pass nil interfaces (not typed nil pointers) when embedding is disabled.
	var (
		docEmbedder, queryEmbedder domain.Embedder
		embHealth                  healthuc.EmbeddingChecker
	)
	if cfg.Embedding.BaseURL != "" {
		base, chain := buildEmbedder(cfg.Embedding, cache, logger)
		docEmbedder = embeddinguc.WithInstruction(chain, cfg.Embedding.DocumentInstruction)
		queryEmbedder = embeddinguc.WithInstruction(chain, cfg.Embedding.QueryInstruction)
		embHealth = base
		logger.Info("Embedder created",
			zap.String("base_url", cfg.Embedding.BaseURL),
			zap.String("model", cfg.Embedding.Model),
			zap.Int("dimensions", cfg.Embedding.Dimensions),
		)
	} else {
		logger.Warn("Embedding disabled, requests must carry raw embeddings")
	}

	// Use cases
	catalogRepo := catalogrepo.New(catalogDB).WithTierPolicy(domcol.TierPolicy{
		HotAfter:  time.Duration(cfg.Catalog.HotAfterH) * time.Hour,
		WarmAfter: time.Duration(cfg.Catalog.WarmAfterH) * time.Hour,
	})
	catalogSvc := cataloguc.New(catalogRepo).
		WithDefaultMetric(domcol.Metric(cfg.Catalog.DefaultMetric)).
		WithLogger(logger.Named("catalog"))

	migrationEngine := migrationuc.New(migrationrepo.New(catalogDB), catalogSvc, engine, migrationuc.Config{
		Workers:          cfg.Migration.Workers,
		BatchSize:        cfg.Migration.BatchSize,
		PollInterval:     cfg.Migration.PollInterval(),
		BatchesPerSecond: cfg.Migration.BatchesPerSecond,
	}).WithLogger(logger.Named("migration"))

	router := searchuc.New(catalogSvc, engine, queryEmbedder, searchuc.Config{
		MaxK:              cfg.Search.MaxK,
		Timeout:           cfg.Search.SearchTimeout(),
		CollectionTimeout: cfg.Search.PerCollectionTimeout(),
		MaxParallel:       cfg.Search.MaxParallel,
	}).WithLogger(logger.Named("search"))

	defaultPolicy, err := domcol.ParseDeletePolicy(cfg.Catalog.DefaultDeletePolicy, domcol.DeleteRejectIfNonEmpty)
	if err != nil {
		logger.Fatal("Invalid delete policy", zap.Error(err))
	}
	manager := manageruc.New(catalogSvc, engine, router, migrationEngine, docEmbedder).
		WithImplicitCreate(cfg.Catalog.ImplicitCreate).
		WithDefaultDeletePolicy(defaultPolicy).
		WithLogger(logger.Named("manager"))

	healthSvc := healthuc.New(catalogDB, engine, embHealth).WithLogger(logger.Named("health"))

	// Background workers
	if err := migrationEngine.Start(ctx); err != nil {
		logger.Fatal("Failed to start migration engine", zap.Error(err))
	}
	defer migrationEngine.Stop()

	aggregator := cataloguc.NewAggregator(catalogSvc,
		time.Duration(cfg.Catalog.StatsTickSec)*time.Second,
		time.Duration(cfg.Catalog.SnapshotRetentionH)*time.Hour,
		logger.Named("stats"),
	)
	go aggregator.Run(ctx)

	server := chiTransport.NewServer(manager, healthSvc, logger).WithDefaultK(cfg.Search.DefaultK)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Handler(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEngine opens the configured vector engine. The embedding cache store
// is non-nil only for the valkey driver.
func buildEngine(ctx context.Context, cfg config.EngineConfig) (domain.VectorEngine, *dbValkey.Store, func(), error) {
	switch cfg.Driver {
	case config.EngineMemory:
		return memory.NewStore(), nil, func() {}, nil
	case config.EngineChromem:
		s, err := chromem.Open(chromem.Config{Path: cfg.Chromem.Path, Compress: cfg.Chromem.Compress})
		if err != nil {
			return nil, nil, nil, err
		}
		return s, nil, func() {}, nil
	case config.EngineValkey:
		s, err := dbValkey.NewStore(dbValkey.Config{
			Addrs:    cfg.Valkey.Addrs,
			Password: cfg.Valkey.Password,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		if err := s.WaitForReady(ctx, time.Duration(cfg.Valkey.ReadinessTimeout)*time.Second); err != nil {
			s.Close()
			return nil, nil, nil, fmt.Errorf("valkey not ready: %w", err)
		}
		distance, err := db.ParseDistance(cfg.Valkey.Distance)
		if err != nil {
			s.Close()
			return nil, nil, nil, err
		}
		repo := vectorrepo.New(s, distance).
			WithKeyPrefix(cfg.Valkey.KeyPrefix).
			WithHNSW(vectorrepo.HNSWConfig{M: cfg.Valkey.HNSWM, EFConstruct: cfg.Valkey.HNSWEFConstruct})
		return repo, s, s.Close, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown engine driver %q", cfg.Driver)
	}
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented.
// The base provider is returned separately for health checks.
func buildEmbedder(
	cfg config.EmbeddingConfig,
	cache *dbValkey.Store,
	logger *zap.Logger,
) (*openaiEmb.Embedder, domain.Embedder) {
	const provider = "openai"

	// Base provider (with transport metrics built-in)
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   provider,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if cache != nil && cfg.CacheTTLSec > 0 {
		embedder = embcache.New(base, cache, cfg.Model,
			time.Duration(cfg.CacheTTLSec)*time.Second, metrics.EmbeddingCacheTotal, logger)
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(1, int(cfg.RequestsPerSecond)))
	}
	return base, embeddinguc.NewInstrumentedEmbedder(embedder, provider, cfg.Model, limiter, logger)
}
