// Package chi is the REST adapter over the Collection Manager.
package chi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	domcol "github.com/kailas-cloud/vecspace/internal/domain/collection"
	"github.com/kailas-cloud/vecspace/internal/domain/mapping"
	dommig "github.com/kailas-cloud/vecspace/internal/domain/migration"
	domsearch "github.com/kailas-cloud/vecspace/internal/domain/search"
	"github.com/kailas-cloud/vecspace/internal/metrics"
	healthuc "github.com/kailas-cloud/vecspace/internal/usecase/health"
	manageruc "github.com/kailas-cloud/vecspace/internal/usecase/manager"
)

// Manager is the facade surface exposed over HTTP.
//
//nolint:interfacebloat // one method per route
type Manager interface {
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

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

const (
	defaultSearchK   = 10
	defaultListLimit = 50
)

// Server serves the vecspace REST API.
type Server struct {
	manager  Manager
	health   HealthChecker
	logger   *zap.Logger
	defaultK int
}

// NewServer creates an HTTP API server.
func NewServer(manager Manager, health HealthChecker, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{manager: manager, health: health, logger: logger, defaultK: defaultSearchK}
}

// WithDefaultK sets the k used when a search request omits it.
func (s *Server) WithDefaultK(k int) *Server {
	if k > 0 {
		s.defaultK = k
	}
	return s
}

// Handler builds the chi router with the middleware chain.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(requestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())

	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/collections", func(r chi.Router) {
		r.Post("/", s.CreateCollection)
		r.Get("/", s.ListCollections)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", s.GetCollection)
			r.Patch("/", s.UpdateCollection)
			r.Delete("/", s.DeleteCollection)
			r.Get("/stats", s.CollectionStats)
			r.Post("/vectors", s.InsertVector)
			r.Delete("/vectors/{id}", s.DeleteVector)
		})
	})
	r.Get("/keys/{key}", s.ResolveKey)
	r.Get("/stats", s.AggregateStats)
	r.Post("/search", s.Search)
	r.Route("/migrations", func(r chi.Router) {
		r.Post("/", s.EnqueueMigration)
		r.Get("/", s.ListMigrations)
		r.Get("/{id}", s.MigrationStatus)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeBadRequest, "method not allowed")
	})
	return r
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, healthResponse{Status: string(report.Status), Checks: checks})
}
