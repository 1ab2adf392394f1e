package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the vecspace service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Engine    EngineConfig    `yaml:"engine"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Search    SearchConfig    `yaml:"search"`
	Migration MigrationConfig `yaml:"migration"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds the relational catalog store settings.
type DatabaseConfig struct {
	Path             string `yaml:"path"`
	BusyTimeoutMs    int    `yaml:"busy_timeout_ms"`
	MaxOpenConns     int    `yaml:"max_open_conns"`
	ReadinessTimeout int    `yaml:"readiness_timeout_sec"`
}

// Engine drivers.
const (
	EngineMemory  = "memory"
	EngineChromem = "chromem"
	EngineValkey  = "valkey"
)

// EngineConfig selects and tunes the shared vector engine.
type EngineConfig struct {
	Driver  string        `yaml:"driver"` // memory, chromem, valkey (default: chromem)
	Chromem ChromemConfig `yaml:"chromem"`
	Valkey  ValkeyConfig  `yaml:"valkey"`
}

// ChromemConfig holds embedded chromem-go settings. Empty path keeps it in memory.
type ChromemConfig struct {
	Path     string `yaml:"path"`
	Compress bool   `yaml:"compress"`
}

// ValkeyConfig holds Valkey/Redis connection and HNSW index settings.
type ValkeyConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	KeyPrefix        string   `yaml:"key_prefix"`
	Distance         string   `yaml:"distance"` // cosine, euclidean, dot_product
	HNSWM            int      `yaml:"hnsw_m"`
	HNSWEFConstruct  int      `yaml:"hnsw_ef_construction"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds the embedding generator settings. An empty base URL disables text embedding.
type EmbeddingConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKey            string  `yaml:"api_key"`
	Model             string  `yaml:"model"`
	Dimensions        int     `yaml:"dimensions"`
	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 = unlimited
	CacheTTLSec       int     `yaml:"cache_ttl_sec"`       // valkey engine only; 0 = no cache

	// Instruction prefixes for asymmetric models (e5, bge).
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
}

// CatalogConfig holds collection catalog policy.
type CatalogConfig struct {
	DefaultDeletePolicy string `yaml:"default_delete_policy"` // reject, cascade
	ImplicitCreate      bool   `yaml:"implicit_create"`
	DefaultMetric       string `yaml:"default_metric"`
	StatsTickSec        int    `yaml:"stats_tick_sec"`       // 0 = no periodic snapshots
	SnapshotRetentionH  int    `yaml:"snapshot_retention_h"` // 0 = keep forever
	HotAfterH           int    `yaml:"hot_after_h"`
	WarmAfterH          int    `yaml:"warm_after_h"`
}

// SearchConfig bounds routed searches.
type SearchConfig struct {
	DefaultK            int `yaml:"default_k"`
	MaxK                int `yaml:"max_k"`
	TimeoutMs           int `yaml:"timeout_ms"`
	CollectionTimeoutMs int `yaml:"collection_timeout_ms"`
	MaxParallel         int `yaml:"max_parallel"`
}

// MigrationConfig tunes the migration worker pool.
type MigrationConfig struct {
	Workers          int     `yaml:"workers"`
	BatchSize        int     `yaml:"batch_size"`
	PollIntervalMs   int     `yaml:"poll_interval_ms"`
	BatchesPerSecond float64 `yaml:"batches_per_second"`
}

// Load reads configuration from a YAML file by environment name (local, docker, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands env variables in data, decodes it and applies defaults and validation.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/vecspace.db"
	}
	if c.Database.BusyTimeoutMs <= 0 {
		c.Database.BusyTimeoutMs = 5000
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Engine.Driver == "" {
		c.Engine.Driver = EngineChromem
	}
	if c.Engine.Valkey.KeyPrefix == "" {
		c.Engine.Valkey.KeyPrefix = "vecspace:vec:"
	}
	if c.Engine.Valkey.Distance == "" {
		c.Engine.Valkey.Distance = "cosine"
	}
	if c.Engine.Valkey.HNSWM <= 0 {
		c.Engine.Valkey.HNSWM = 16
	}
	if c.Engine.Valkey.HNSWEFConstruct <= 0 {
		c.Engine.Valkey.HNSWEFConstruct = 200
	}
	if c.Engine.Valkey.ReadinessTimeout <= 0 {
		c.Engine.Valkey.ReadinessTimeout = 10
	}
	if c.Catalog.DefaultDeletePolicy == "" {
		c.Catalog.DefaultDeletePolicy = "reject"
	}
	if c.Catalog.DefaultMetric == "" {
		c.Catalog.DefaultMetric = "cosine"
	}
	if c.Catalog.HotAfterH <= 0 {
		c.Catalog.HotAfterH = 24
	}
	if c.Catalog.WarmAfterH <= 0 {
		c.Catalog.WarmAfterH = 7 * 24
	}
	if c.Search.DefaultK <= 0 {
		c.Search.DefaultK = 10
	}
	if c.Search.MaxK <= 0 {
		c.Search.MaxK = 1000
	}
	if c.Search.TimeoutMs <= 0 {
		c.Search.TimeoutMs = 5000
	}
	if c.Search.CollectionTimeoutMs <= 0 {
		c.Search.CollectionTimeoutMs = 2000
	}
	if c.Migration.Workers <= 0 {
		c.Migration.Workers = 2
	}
	c.Migration.Workers = min(c.Migration.Workers, 4)
	if c.Migration.BatchSize <= 0 {
		c.Migration.BatchSize = 5000
	}
	if c.Migration.PollIntervalMs <= 0 {
		c.Migration.PollIntervalMs = 1000
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Engine.Driver {
	case EngineMemory, EngineChromem:
	case EngineValkey:
		if len(c.Engine.Valkey.Addrs) == 0 {
			return fmt.Errorf("engine.valkey.addrs is required for the valkey driver")
		}
	default:
		return fmt.Errorf("engine.driver must be memory, chromem or valkey, got %q", c.Engine.Driver)
	}
	switch c.Catalog.DefaultDeletePolicy {
	case "reject", "cascade":
	default:
		return fmt.Errorf("catalog.default_delete_policy must be \"reject\" or \"cascade\", got %q",
			c.Catalog.DefaultDeletePolicy)
	}
	switch c.Catalog.DefaultMetric {
	case "cosine", "euclidean", "dot_product":
	default:
		return fmt.Errorf("catalog.default_metric must be cosine, euclidean or dot_product, got %q",
			c.Catalog.DefaultMetric)
	}
	if c.Catalog.WarmAfterH < c.Catalog.HotAfterH {
		return fmt.Errorf("catalog.warm_after_h (%d) must not be below catalog.hot_after_h (%d)",
			c.Catalog.WarmAfterH, c.Catalog.HotAfterH)
	}
	if c.Search.DefaultK > c.Search.MaxK {
		return fmt.Errorf("search.default_k (%d) exceeds search.max_k (%d)", c.Search.DefaultK, c.Search.MaxK)
	}
	if c.Embedding.BaseURL != "" && c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required when embedding.base_url is set")
	}
	return nil
}

// SearchTimeout returns the overall fan-out timeout.
func (c SearchConfig) SearchTimeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// PerCollectionTimeout returns the per-collection search timeout.
func (c SearchConfig) PerCollectionTimeout() time.Duration {
	return time.Duration(c.CollectionTimeoutMs) * time.Millisecond
}

// PollInterval returns the migration queue poll interval.
func (c MigrationConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
