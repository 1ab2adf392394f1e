// Package search routes a similarity query across one, several or all
// collections and merges the per-collection results.
package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/kailas-cloud/vecspace/internal/domain"
	domcol "github.com/kailas-cloud/vecspace/internal/domain/collection"
	domsearch "github.com/kailas-cloud/vecspace/internal/domain/search"
	"github.com/kailas-cloud/vecspace/internal/metrics"
)

// Skip reasons reported on domsearch.Skipped.
const (
	ReasonNotFound          = "not found"
	ReasonDimensionMismatch = "dimension mismatch"
	ReasonTimeout           = "timeout"
	ReasonCanceled          = "canceled"
	ReasonError             = "error"
)

// Config bounds a routed search.
type Config struct {
	MaxK              int           // 0 = unbounded
	Timeout           time.Duration // whole fan-out; 0 = none
	CollectionTimeout time.Duration // per collection; 0 = none
	MaxParallel       int           // 0 = one slot per target
}

// Router fans a query out to the shared vector engine, one restricted search per collection.
type Router struct {
	catalog Catalog
	engine  Engine
	embed   Embedder
	cfg     Config
	logger  *zap.Logger
}

// New creates a search router.
func New(catalog Catalog, engine Engine, embed Embedder, cfg Config) *Router {
	return &Router{
		catalog: catalog,
		engine:  engine,
		embed:   embed,
		cfg:     cfg,
		logger:  zap.NewNop(),
	}
}

// WithLogger sets the router logger.
func (r *Router) WithLogger(l *zap.Logger) *Router {
	if l != nil {
		r.logger = l
	}
	return r
}

type outcome struct {
	neighbors []domain.Neighbor
	latency   time.Duration
	err       error
}

// Search runs req and returns merged hits. A multi-collection search where some
// targets failed still succeeds; the failures are listed in Response.Skipped.
// It fails only when every target failed (a *domsearch.FailedError) or when the
// request itself cannot run.
func (r *Router) Search(ctx context.Context, req domsearch.Request) (domsearch.Response, error) {
	start := time.Now()
	scope := scopeLabel(req.Scope)

	resp, err := r.search(ctx, req)

	status := "ok"
	switch {
	case err != nil && isRequestError(err):
		status = "invalid"
	case err != nil:
		status = "failed"
	case resp.Partial():
		status = "partial"
	}
	metrics.SearchRequestsTotal.WithLabelValues(scope, status).Inc()
	metrics.SearchDuration.WithLabelValues(scope).Observe(time.Since(start).Seconds())
	return resp, err
}

func (r *Router) search(ctx context.Context, req domsearch.Request) (domsearch.Response, error) {
	if err := req.Validate(r.cfg.MaxK); err != nil {
		return domsearch.Response{}, err
	}

	targets, skipped, err := r.resolve(ctx, req.Scope)
	if err != nil {
		return domsearch.Response{}, err
	}

	vec := req.Embedding
	if len(vec) == 0 && (len(targets) > 0 || len(skipped) > 0) {
		if r.embed == nil {
			return domsearch.Response{}, fmt.Errorf("%w: no embedder configured, embedding is required", domain.ErrInvalidSpec)
		}
		res, err := r.embed.Embed(ctx, req.Query)
		if err != nil {
			return domsearch.Response{}, fmt.Errorf("vectorize query: %w", err)
		}
		vec = res.Embedding
	}

	eligible := targets[:0:0]
	for _, col := range targets {
		if col.Dimension() == len(vec) {
			eligible = append(eligible, col)
			continue
		}
		mismatch := domain.NewDimensionMismatch(col.Name(), col.Dimension(), len(vec))
		if req.Scope.IsSingle() {
			return domsearch.Response{}, mismatch
		}
		skipped = append(skipped, domsearch.Skipped{
			Collection: col.Name(), Reason: ReasonDimensionMismatch, Err: mismatch,
		})
	}

	metrics.SearchFanout.Observe(float64(len(eligible)))
	outcomes := r.fanOut(ctx, eligible, vec, req.K)

	var (
		searched  []string
		neighbors = make(map[string][]domain.Neighbor, len(eligible))
	)
	for i, col := range eligible {
		o := outcomes[i]
		if o.err != nil {
			skipped = append(skipped, domsearch.Skipped{Collection: col.Name(), Reason: skipReason(o.err), Err: o.err})
			continue
		}
		searched = append(searched, col.Name())
		neighbors[col.Name()] = o.neighbors
	}

	for _, s := range skipped {
		metrics.SearchSkippedTotal.WithLabelValues(s.Reason).Inc()
		r.logger.Warn("Search skipped collection",
			zap.String("collection", s.Collection),
			zap.String("reason", s.Reason),
			zap.Error(s.Err),
		)
	}
	if len(searched) == 0 && len(skipped) > 0 {
		return domsearch.Response{}, &domsearch.FailedError{Skipped: skipped}
	}

	hits, err := r.enrich(ctx, neighbors, eligible, req.IncludeCollection)
	if err != nil {
		return domsearch.Response{}, err
	}
	hits = merge(hits, req.K)

	for i, col := range eligible {
		if outcomes[i].err != nil {
			continue
		}
		ms := float64(outcomes[i].latency.Microseconds()) / 1000
		if err := r.catalog.RecordSearchMetric(ctx, col.Name(), ms, 0); err != nil {
			r.logger.Warn("Failed to record search metric", zap.String("collection", col.Name()), zap.Error(err))
		}
	}

	return domsearch.Response{Hits: hits, Searched: searched, Skipped: skipped}, nil
}

// resolve turns a scope into collections. Unknown names in a multi-collection
// scope are skipped; a single unknown target is an error.
func (r *Router) resolve(ctx context.Context, scope domsearch.Scope) ([]domcol.Collection, []domsearch.Skipped, error) {
	if scope.All {
		cols, err := r.catalog.List(ctx, domcol.Filter{})
		if err != nil {
			return nil, nil, fmt.Errorf("resolve targets: %w", err)
		}
		return cols, nil, nil
	}

	var (
		cols    []domcol.Collection
		skipped []domsearch.Skipped
		seen    = make(map[string]struct{}, len(scope.Collections))
	)
	for _, name := range scope.Collections {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		col, err := r.catalog.Get(ctx, name)
		if err != nil {
			if scope.IsSingle() || !errors.Is(err, domain.ErrNotFound) {
				return nil, nil, fmt.Errorf("resolve targets: %w", err)
			}
			skipped = append(skipped, domsearch.Skipped{Collection: name, Reason: ReasonNotFound, Err: err})
			continue
		}
		cols = append(cols, col)
	}
	return cols, skipped, nil
}

// fanOut searches every target concurrently. Slow targets are cut off by the
// per-collection timeout and the overall deadline without holding up the rest.
func (r *Router) fanOut(ctx context.Context, targets []domcol.Collection, vec []float32, k int) []outcome {
	out := make([]outcome, len(targets))
	if len(targets) == 0 {
		return out
	}

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	slots := int64(r.cfg.MaxParallel)
	if slots <= 0 || slots > int64(len(targets)) {
		slots = int64(len(targets))
	}
	sem := semaphore.NewWeighted(slots)

	var wg sync.WaitGroup
	for i, col := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				out[i] = outcome{err: err}
				return
			}
			defer sem.Release(1)
			out[i] = r.searchOne(ctx, col.Name(), vec, k)
		}()
	}
	wg.Wait()
	return out
}

func (r *Router) searchOne(ctx context.Context, name string, vec []float32, k int) outcome {
	if r.cfg.CollectionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.CollectionTimeout)
		defer cancel()
	}

	start := time.Now()
	res, err := r.engine.Search(ctx, domain.VectorQuery{Collection: name, Embedding: vec, K: k})
	latency := time.Since(start)
	if err == nil && ctx.Err() != nil {
		// engines that ignore ctx still lose the race
		err = ctx.Err()
	}
	if err != nil {
		return outcome{err: fmt.Errorf("search %q: %w", name, err), latency: latency}
	}
	return outcome{neighbors: res, latency: latency}
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	default:
		return ReasonError
	}
}

func isRequestError(err error) bool {
	return errors.Is(err, domain.ErrInvalidSpec) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrDimensionMismatch)
}

func scopeLabel(s domsearch.Scope) string {
	switch {
	case s.All:
		return "all"
	case s.IsSingle():
		return "single"
	default:
		return "set"
	}
}
