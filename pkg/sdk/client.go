package vecspace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/vecspace/internal/db"
	"github.com/kailas-cloud/vecspace/internal/db/chromem"
	"github.com/kailas-cloud/vecspace/internal/db/memory"
	"github.com/kailas-cloud/vecspace/internal/db/sqlite"
	dbValkey "github.com/kailas-cloud/vecspace/internal/db/valkey"
	"github.com/kailas-cloud/vecspace/internal/domain"
	domcol "github.com/kailas-cloud/vecspace/internal/domain/collection"
	"github.com/kailas-cloud/vecspace/internal/domain/mapping"
	dommig "github.com/kailas-cloud/vecspace/internal/domain/migration"
	domsearch "github.com/kailas-cloud/vecspace/internal/domain/search"
	catalogrepo "github.com/kailas-cloud/vecspace/internal/repository/catalog"
	migrationrepo "github.com/kailas-cloud/vecspace/internal/repository/migration"
	vectorrepo "github.com/kailas-cloud/vecspace/internal/repository/vector"
	cataloguc "github.com/kailas-cloud/vecspace/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/vecspace/internal/usecase/health"
	manageruc "github.com/kailas-cloud/vecspace/internal/usecase/manager"
	migrationuc "github.com/kailas-cloud/vecspace/internal/usecase/migration"
	searchuc "github.com/kailas-cloud/vecspace/internal/usecase/search"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultMaxK             = 1000
)

// Внутренние интерфейсы для подмены в тестах.
//
//nolint:interfacebloat // mirrors the manager facade
type managerUseCase interface {
	CreateCollection(ctx context.Context, spec domcol.Spec) (domcol.Collection, error)
	GetCollection(ctx context.Context, name string) (domcol.Collection, error)
	ListCollections(ctx context.Context, f domcol.Filter) ([]domcol.Collection, error)
	UpdateCollection(ctx context.Context, name string, p domcol.Patch) (domcol.Collection, error)
	DeleteCollection(ctx context.Context, name string, policy domcol.DeletePolicy) error
	Insert(ctx context.Context, req manageruc.InsertRequest) (mapping.Mapping, error)
	DeleteVector(ctx context.Context, collection, id string) (bool, error)
	CollectionOf(ctx context.Context, key string) (string, error)
	Search(ctx context.Context, req domsearch.Request) (domsearch.Response, error)
	CollectionStats(ctx context.Context, name string) (domcol.Stats, error)
	StatsHistory(ctx context.Context, name string, limit int) ([]domcol.Stats, error)
	AggregateStats(ctx context.Context, names []string) (map[string]domcol.Stats, error)
	EnqueueMigration(ctx context.Context, source, target string) (dommig.Task, error)
	MigrationStatus(ctx context.Context, id string) (dommig.Task, error)
	ListMigrations(ctx context.Context, limit int) ([]dommig.Task, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// vectorEngine is the surface every engine driver provides.
type vectorEngine interface {
	Insert(ctx context.Context, rec domain.VectorRecord) error
	Search(ctx context.Context, q domain.VectorQuery) ([]domain.Neighbor, error)
	Delete(ctx context.Context, key string) error
	Fetch(ctx context.Context, key string) (domain.VectorRecord, error)
	Ping(ctx context.Context) error
}

// Client is the vecspace SDK entry point.
type Client struct {
	mgr       managerUseCase
	healthSvc healthUseCase
	closers   []func()
	obs       *observer
}

// New opens the catalog and vector engine and starts the migration workers.
// The provided context is used for the initial readiness checks only.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{driver: driverMemory, deletePolicy: DeleteReject, maxK: defaultMaxK}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.catalogPath == "" {
		return nil, errors.New("vecspace: catalog path required (use WithCatalogPath)")
	}
	policy, err := domcol.ParseDeletePolicy(string(cfg.deletePolicy), domcol.DeleteRejectIfNonEmpty)
	if err != nil {
		return nil, fmt.Errorf("vecspace: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	catalogDB, err := sqlite.Open(sqlite.Config{Path: cfg.catalogPath})
	if err != nil {
		return nil, fmt.Errorf("vecspace: open catalog: %w", err)
	}
	c := &Client{obs: obs, closers: []func(){func() { _ = catalogDB.Close() }}}

	if err := catalogDB.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		c.Close()
		return nil, fmt.Errorf("vecspace: catalog not ready: %w", err)
	}

	engine, closeEngine, err := createEngine(ctx, cfg)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.closers = append(c.closers, closeEngine)

	// Pass nil interface (not typed nil pointer!) if no embedder is configured.
	var emb domain.Embedder
	if cfg.embedder != nil {
		emb = &embedderAdapter{inner: cfg.embedder}
	}

	catalogSvc := cataloguc.New(catalogrepo.New(catalogDB))
	migrations := migrationuc.New(migrationrepo.New(catalogDB), catalogSvc, engine,
		migrationuc.Config{Workers: cfg.migrationWorkers})
	router := searchuc.New(catalogSvc, engine, emb, searchuc.Config{MaxK: cfg.maxK})

	c.mgr = manageruc.New(catalogSvc, engine, router, migrations, emb).
		WithImplicitCreate(cfg.implicitCreate).
		WithDefaultDeletePolicy(policy)
	c.healthSvc = healthuc.New(catalogDB, engine, nil)

	if err := migrations.Start(context.WithoutCancel(ctx)); err != nil {
		c.Close()
		return nil, fmt.Errorf("vecspace: start migrations: %w", err)
	}
	// closers run in reverse, so workers stop before the stores close
	c.closers = append(c.closers, migrations.Stop)
	return c, nil
}

func createEngine(ctx context.Context, cfg *clientConfig) (vectorEngine, func(), error) {
	switch cfg.driver {
	case driverMemory:
		return memory.NewStore(), func() {}, nil
	case driverChromem:
		s, err := chromem.Open(chromem.Config{Path: cfg.chromemPath, Compress: cfg.chromemCompress})
		if err != nil {
			return nil, nil, fmt.Errorf("vecspace: open chromem: %w", err)
		}
		return s, func() {}, nil
	case driverValkey:
		s, err := dbValkey.NewStore(dbValkey.Config{Addrs: cfg.addrs, Password: cfg.password})
		if err != nil {
			return nil, nil, fmt.Errorf("vecspace: create valkey store: %w", err)
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, nil, fmt.Errorf("vecspace: valkey not ready: %w", err)
		}
		repo := vectorrepo.New(s, db.DistanceCosine)
		if cfg.hnswM > 0 || cfg.hnswEFConstruct > 0 {
			repo = repo.WithHNSW(vectorrepo.HNSWConfig{M: cfg.hnswM, EFConstruct: cfg.hnswEFConstruct})
		}
		return repo, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("vecspace: unknown driver %q", cfg.driver)
	}
}

// Close stops the migration workers and releases all resources.
func (c *Client) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Health checks the catalog and vector engine.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}

// Collections returns the collection management service.
func (c *Client) Collections() *CollectionService {
	return &CollectionService{mgr: c.mgr, obs: c.obs}
}

// Vectors returns the vector service for a given collection.
func (c *Client) Vectors(collection string) *VectorService {
	return &VectorService{collection: collection, mgr: c.mgr, obs: c.obs}
}

// Migrations returns the migration service.
func (c *Client) Migrations() *MigrationService {
	return &MigrationService{mgr: c.mgr, obs: c.obs}
}

// Search runs a similarity search over the requested collections.
// A result with skipped collections is still returned without error;
// check SearchResult.Partial.
func (c *Client) Search(ctx context.Context, req SearchRequest) (_ SearchResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	resp, err := c.mgr.Search(ctx, toInternalSearch(req))
	if err != nil {
		return SearchResult{}, fmt.Errorf("search: %w", err)
	}
	return fromInternalSearch(resp), nil
}

// CollectionOf resolves a namespaced vector key to its collection.
func (c *Client) CollectionOf(ctx context.Context, key string) (_ string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("vector.resolve", start, err) }()

	name, err := c.mgr.CollectionOf(ctx, key)
	if err != nil {
		return "", fmt.Errorf("resolve key: %w", err)
	}
	return name, nil
}

// Stats returns the latest stats of the named collections (all when none are given).
func (c *Client) Stats(ctx context.Context, names ...string) (_ map[string]StatsInfo, err error) {
	start := time.Now()
	defer func() { c.obs.observe("stats.aggregate", start, err) }()

	all, err := c.mgr.AggregateStats(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("aggregate stats: %w", err)
	}
	out := make(map[string]StatsInfo, len(all))
	for name, s := range all {
		out[name] = fromInternalStats(s)
	}
	return out, nil
}
