package vecspace

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

// Engine drivers.
const (
	driverMemory  = "memory"
	driverChromem = "chromem"
	driverValkey  = "valkey"
)

type clientConfig struct {
	catalogPath string

	driver          string
	chromemPath     string
	chromemCompress bool
	addrs           []string
	password        string
	hnswM           int
	hnswEFConstruct int

	embedder Embedder

	implicitCreate   bool
	deletePolicy     DeletePolicy
	migrationWorkers int
	maxK             int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithCatalogPath sets the SQLite catalog file. Required.
func WithCatalogPath(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.catalogPath = path
	})
}

// WithMemoryEngine keeps vectors in process memory. This is the default engine.
func WithMemoryEngine() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverMemory
	})
}

// WithChromem stores vectors in chromem-go, persisted under path when it is non-empty.
func WithChromem(path string, compress bool) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverChromem
		c.chromemPath = path
		c.chromemCompress = compress
	})
}

// WithValkey stores vectors in a Valkey instance with the search module.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverValkey
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithHNSW configures Valkey HNSW index parameters (M and EF construction).
// Defaults: M=16, EFConstruct=200.
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	})
}

// WithEmbedder sets the text embedding provider.
// Without it, inserts and searches must carry raw embeddings.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithImplicitCreate creates unknown collections on first insert,
// sized to the inserted vector.
func WithImplicitCreate() Option {
	return optionFunc(func(c *clientConfig) {
		c.implicitCreate = true
	})
}

// WithDefaultDeletePolicy sets the policy used when Delete gets an empty one.
// Default: DeleteReject.
func WithDefaultDeletePolicy(p DeletePolicy) Option {
	return optionFunc(func(c *clientConfig) {
		c.deletePolicy = p
	})
}

// WithMigrationWorkers sets the number of concurrent migration workers (max 4).
func WithMigrationWorkers(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.migrationWorkers = n
	})
}

// WithMaxK caps the k of a search. Default: 1000.
func WithMaxK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxK = k
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
