package health

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates the catalog store is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names reported in Report.Checks.
const (
	ComponentCatalog   = "catalog"
	ComponentEngine    = "vector_engine"
	ComponentEmbedding = "embedding"
)

const checkTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	catalog   Pinger
	engine    Pinger
	embedding EmbeddingChecker
	logger    *zap.Logger
}

// New creates a Service. engine and embedding can be nil.
func New(catalog, engine Pinger, embedding EmbeddingChecker) *Service {
	return &Service{catalog: catalog, engine: engine, embedding: embedding, logger: zap.NewNop()}
}

// WithLogger sets the logger for failed checks.
func (s *Service) WithLogger(l *zap.Logger) *Service {
	if l != nil {
		s.logger = l
	}
	return s
}

// Check runs health checks against all components. The catalog store is the
// source of truth, so losing it is Unhealthy; anything else only degrades.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, 3)

	checks[ComponentCatalog] = s.probe(ctx, ComponentCatalog, s.catalog.Ping)
	if s.engine != nil {
		checks[ComponentEngine] = s.probe(ctx, ComponentEngine, s.engine.Ping)
	}
	if s.embedding != nil {
		checks[ComponentEmbedding] = s.probe(ctx, ComponentEmbedding, s.embedding.HealthCheck)
	}

	status := Healthy
	for name, v := range checks {
		if v != CheckError {
			continue
		}
		if name == ComponentCatalog {
			status = Unhealthy
			break
		}
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}

func (s *Service) probe(ctx context.Context, name string, fn func(context.Context) error) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		s.logger.Warn("Health check failed", zap.String("component", name), zap.Error(err))
		return CheckError
	}
	return CheckOK
}
