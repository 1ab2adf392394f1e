// Package migration runs durable bulk moves of vector mappings between collections
// on a small background worker pool.
package migration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/vecspace/internal/domain"
	"github.com/kailas-cloud/vecspace/internal/domain/mapping"
	dommig "github.com/kailas-cloud/vecspace/internal/domain/migration"
	"github.com/kailas-cloud/vecspace/internal/domain/namespace"
	"github.com/kailas-cloud/vecspace/internal/metrics"
)

const (
	// DefaultBatchSize is the number of mappings moved per catalog transaction.
	DefaultBatchSize = 5000
	// MaxWorkers caps the system-wide number of concurrent migrations.
	MaxWorkers = 4

	defaultWorkers      = 2
	defaultPollInterval = time.Second
)

// Config tunes the engine. Zero values fall back to defaults.
type Config struct {
	Workers          int
	BatchSize        int
	PollInterval     time.Duration
	BatchesPerSecond float64 // 0 = unthrottled
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	c.Workers = min(c.Workers, MaxWorkers)
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	return c
}

// Engine enqueues migration tasks and executes them in the background.
type Engine struct {
	repo    Repository
	catalog Catalog
	vectors Vectors
	cfg     Config
	limiter *rate.Limiter
	logger  *zap.Logger

	wake chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
}

// New creates a migration engine. Call Start to begin processing.
func New(repo Repository, catalog Catalog, vectors Vectors, cfg Config) *Engine {
	cfg = cfg.withDefaults()
	limit := rate.Inf
	if cfg.BatchesPerSecond > 0 {
		limit = rate.Limit(cfg.BatchesPerSecond)
	}
	return &Engine{
		repo:    repo,
		catalog: catalog,
		vectors: vectors,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		logger:  zap.NewNop(),
		wake:    make(chan struct{}, cfg.Workers),
	}
}

// WithLogger sets the engine logger.
func (e *Engine) WithLogger(l *zap.Logger) *Engine {
	if l != nil {
		e.logger = l
	}
	return e
}

// Enqueue validates the endpoints and persists a pending task. It never waits for execution.
func (e *Engine) Enqueue(ctx context.Context, source, target string) (dommig.Task, error) {
	task, err := dommig.New(source, target)
	if err != nil {
		return dommig.Task{}, err
	}
	src, err := e.catalog.Get(ctx, source)
	if err != nil {
		return dommig.Task{}, fmt.Errorf("migration source: %w", err)
	}
	dst, err := e.catalog.Get(ctx, target)
	if err != nil {
		return dommig.Task{}, fmt.Errorf("migration target: %w", err)
	}
	if src.Dimension() != dst.Dimension() {
		return dommig.Task{}, domain.NewDimensionMismatch(target, dst.Dimension(), src.Dimension())
	}

	if err := e.repo.Create(ctx, task); err != nil {
		return dommig.Task{}, fmt.Errorf("enqueue %s -> %s: %w", source, target, err)
	}

	e.logger.Info("Migration enqueued",
		zap.String("task_id", task.ID()),
		zap.String("source", source),
		zap.String("target", target),
	)
	e.notify()
	return task, nil
}

// Status returns a task by id.
func (e *Engine) Status(ctx context.Context, id string) (dommig.Task, error) {
	t, err := e.repo.Get(ctx, id)
	if err != nil {
		return dommig.Task{}, fmt.Errorf("migration status: %w", err)
	}
	return t, nil
}

// List returns up to limit recent tasks, newest first.
func (e *Engine) List(ctx context.Context, limit int) ([]dommig.Task, error) {
	tasks, err := e.repo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	return tasks, nil
}

// ActiveFor reports whether a pending or running task touches the collection.
func (e *Engine) ActiveFor(ctx context.Context, name string) (bool, error) {
	tasks, err := e.repo.ListActive(ctx)
	if err != nil {
		return false, fmt.Errorf("active migrations: %w", err)
	}
	for _, t := range tasks {
		if t.Involves(name) {
			return true, nil
		}
	}
	return false, nil
}

// Start fails every task left running by a previous process, then launches the worker pool.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.group != nil {
		return nil
	}

	ids, err := e.repo.FailRunning(ctx, dommig.InterruptedMessage)
	if err != nil {
		return fmt.Errorf("recover interrupted migrations: %w", err)
	}
	for _, id := range ids {
		e.logger.Warn("Migration interrupted by restart", zap.String("task_id", id))
		metrics.MigrationsTotal.WithLabelValues(string(dommig.StatusFailed)).Inc()
	}

	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)
	for i := range e.cfg.Workers {
		g.Go(func() error {
			e.worker(gctx, i)
			return nil
		})
	}
	e.cancel, e.group = cancel, g

	e.logger.Info("Migration engine started",
		zap.Int("workers", e.cfg.Workers),
		zap.Int("batch_size", e.cfg.BatchSize),
	)
	// pending tasks from before the restart
	e.notify()
	return nil
}

// Stop signals the workers and waits for in-flight batches to finish.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel, g := e.cancel, e.group
	e.cancel, e.group = nil, nil
	e.mu.Unlock()

	if g == nil {
		return
	}
	cancel()
	_ = g.Wait()
	e.logger.Info("Migration engine stopped")
}

func (e *Engine) notify() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Engine) worker(ctx context.Context, id int) {
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		for {
			ran, err := e.processNext(ctx)
			if err != nil {
				e.logger.Error("Migration claim failed", zap.Int("worker", id), zap.Error(err))
				break
			}
			if !ran || ctx.Err() != nil {
				break
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-e.wake:
		}
	}
}

// processNext claims and runs one pending task. It reports false when the queue is empty.
func (e *Engine) processNext(ctx context.Context) (bool, error) {
	task, ok, err := e.repo.ClaimNext(ctx)
	if err != nil || !ok {
		return false, err
	}
	e.run(ctx, task)
	return true, nil
}

func (e *Engine) run(ctx context.Context, task dommig.Task) {
	log := e.logger.With(
		zap.String("task_id", task.ID()),
		zap.String("source", task.Source()),
		zap.String("target", task.Target()),
	)
	log.Info("Migration started", zap.Int64("total", task.Total()))
	metrics.MigrationsRunning.Inc()
	defer metrics.MigrationsRunning.Dec()

	// batches in flight finish even when the engine is stopping
	bctx := context.WithoutCancel(ctx)
	var moved int64

	for {
		if err := e.limiter.Wait(ctx); err != nil {
			e.fail(bctx, log, task, moved, dommig.InterruptedMessage)
			return
		}

		// mappings inserted after the start stay in source, so a steady
		// stream of inserts cannot keep the task running
		batch, err := e.catalog.ListMappings(bctx, task.Source(), task.StartedAt(), e.cfg.BatchSize)
		if err != nil {
			e.fail(bctx, log, task, moved, err.Error())
			return
		}
		if len(batch) == 0 {
			break
		}

		done, err := e.catalog.MoveMappings(bctx, task.Source(), task.Target(), batch)
		if err != nil {
			e.fail(bctx, log, task, moved, err.Error())
			return
		}
		if err := e.rekey(bctx, task.Source(), done); err != nil {
			moved += int64(len(done))
			e.fail(bctx, log, task, moved, err.Error())
			return
		}

		moved += int64(len(done))
		metrics.MigrationVectorsMoved.Add(float64(len(done)))
		progress := dommig.Progress(moved, task.Total())
		if err := e.repo.UpdateProgress(bctx, task.ID(), moved, progress); err != nil {
			e.fail(bctx, log, task, moved, err.Error())
			return
		}
		log.Debug("Migration batch committed",
			zap.Int("batch", len(done)),
			zap.Int64("moved", moved),
			zap.Int("progress", progress),
		)
	}

	if err := e.repo.Complete(bctx, task.ID(), moved); err != nil {
		log.Error("Failed to mark migration completed", zap.Int64("moved", moved), zap.Error(err))
		return
	}
	metrics.MigrationsTotal.WithLabelValues(string(dommig.StatusCompleted)).Inc()
	log.Info("Migration completed", zap.Int64("moved", moved))
}

// rekey moves raw vectors of already re-homed mappings to their new keys.
// Vectors missing from the engine are skipped.
func (e *Engine) rekey(ctx context.Context, source string, moved []mapping.Mapping) error {
	for _, m := range moved {
		oldKey, err := namespace.Encode(source, m.RawID())
		if err != nil {
			return err
		}
		rec, err := e.vectors.Fetch(ctx, oldKey)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("fetch vector %q: %w", oldKey, err)
		}

		rec.Key = m.VectorID()
		rec.Collection = m.Collection()
		if err := e.vectors.Insert(ctx, rec); err != nil {
			return fmt.Errorf("insert vector %q: %w", rec.Key, err)
		}
		if err := e.vectors.Delete(ctx, oldKey); err != nil {
			return fmt.Errorf("delete vector %q: %w", oldKey, err)
		}
	}
	return nil
}

func (e *Engine) fail(ctx context.Context, log *zap.Logger, task dommig.Task, moved int64, msg string) {
	metrics.MigrationsTotal.WithLabelValues(string(dommig.StatusFailed)).Inc()
	if err := e.repo.Fail(ctx, task.ID(), moved, msg); err != nil {
		log.Error("Failed to mark migration failed", zap.String("reason", msg), zap.Error(err))
		return
	}
	log.Error("Migration failed", zap.Int64("moved", moved), zap.String("reason", msg))
}
