package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/locadex/internal/domain"
)

// Vector index backends.
const (
	VectorBackendRedis  = "redis"
	VectorBackendQdrant = "qdrant"
)

// Config holds the locadex configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Redis     RedisConfig     `yaml:"redis"`
	Listings  ListingsConfig  `yaml:"listings"`
	Vector    VectorConfig    `yaml:"vector"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Duplicate DuplicateConfig `yaml:"duplicate"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Indexing  IndexingConfig  `yaml:"indexing"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// RedisConfig holds the Redis/Valkey connection used for the embedding cache,
// analytics streams and, with the redis backend, the vector index.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// ListingsConfig locates the SQLite listing store.
type ListingsConfig struct {
	Path string `yaml:"path"`
}

// VectorConfig selects and tunes the vector index.
type VectorConfig struct {
	Backend          string `yaml:"backend"` // redis (default) or qdrant
	IndexName        string `yaml:"index_name"`
	HNSWM            int    `yaml:"hnsw_m"`
	HNSWEFConstruct  int    `yaml:"hnsw_ef_construction"`
	QdrantAddr       string `yaml:"qdrant_addr"`
	QdrantCollection string `yaml:"qdrant_collection"`
}

// EmbeddingConfig holds the embedding provider settings.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"`
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	Dimensions  int    `yaml:"dimensions"`
	CacheTTLSec int    `yaml:"cache_ttl_sec"` // 0 = 7 days, negative disables the cache
}

// SearchConfig holds per-dependency timeouts and result bounds.
type SearchConfig struct {
	EmbedTimeoutMs   int     `yaml:"embed_timeout_ms"`
	VectorTimeoutMs  int     `yaml:"vector_timeout_ms"`
	StoreTimeoutMs   int     `yaml:"store_timeout_ms"`
	KeywordBaseScore float64 `yaml:"keyword_base_score"`
	DefaultLimit     int     `yaml:"default_limit"`
	MaxLimit         int     `yaml:"max_limit"`
	DefaultPageSize  int     `yaml:"default_page_size"`
	MaxPageSize      int     `yaml:"max_page_size"`
}

// DuplicateConfig bounds the duplicate candidate scan.
type DuplicateConfig struct {
	Scope         string `yaml:"scope"` // country (default) or all
	MaxCandidates int    `yaml:"max_candidates"`
	TimeoutMs     int    `yaml:"timeout_ms"`
}

// AnalyticsConfig sizes the event pipeline.
type AnalyticsConfig struct {
	Workers        int   `yaml:"workers"`
	WriteTimeoutMs int   `yaml:"write_timeout_ms"`
	StreamMaxLen   int64 `yaml:"stream_max_len"`
}

// IndexingConfig tunes embedding writes.
type IndexingConfig struct {
	MaxRetries    uint64 `yaml:"max_retries"`
	BaseBackoffMs int    `yaml:"base_backoff_ms"`
	BatchSize     int    `yaml:"batch_size"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

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
	if c.Redis.ReadinessTimeout <= 0 {
		c.Redis.ReadinessTimeout = 10
	}
	if c.Listings.Path == "" {
		c.Listings.Path = "locadex.db"
	}
	if c.Vector.Backend == "" {
		c.Vector.Backend = VectorBackendRedis
	}
	if c.Vector.IndexName == "" {
		c.Vector.IndexName = "locadex:listings:idx"
	}
	if c.Vector.HNSWM <= 0 {
		c.Vector.HNSWM = 16
	}
	if c.Vector.HNSWEFConstruct <= 0 {
		c.Vector.HNSWEFConstruct = 200
	}
	if c.Vector.QdrantCollection == "" {
		c.Vector.QdrantCollection = "locadex_listings"
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = domain.DefaultDimensions
	}
	if c.Search.EmbedTimeoutMs <= 0 {
		c.Search.EmbedTimeoutMs = 3000
	}
	if c.Search.VectorTimeoutMs <= 0 {
		c.Search.VectorTimeoutMs = 1000
	}
	if c.Search.StoreTimeoutMs <= 0 {
		c.Search.StoreTimeoutMs = 1000
	}
	if c.Search.KeywordBaseScore <= 0 {
		c.Search.KeywordBaseScore = 0.5
	}
	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = 20
	}
	if c.Search.MaxLimit <= 0 {
		c.Search.MaxLimit = 100
	}
	if c.Search.DefaultPageSize <= 0 {
		c.Search.DefaultPageSize = 20
	}
	if c.Search.MaxPageSize <= 0 {
		c.Search.MaxPageSize = 100
	}
	if c.Duplicate.Scope == "" {
		c.Duplicate.Scope = "country"
	}
	if c.Duplicate.MaxCandidates == 0 {
		c.Duplicate.MaxCandidates = 5000
	}
	if c.Duplicate.TimeoutMs <= 0 {
		c.Duplicate.TimeoutMs = 2000
	}
	if c.Analytics.Workers <= 0 {
		c.Analytics.Workers = 8
	}
	if c.Analytics.WriteTimeoutMs <= 0 {
		c.Analytics.WriteTimeoutMs = 2000
	}
	if c.Analytics.StreamMaxLen <= 0 {
		c.Analytics.StreamMaxLen = 100_000
	}
	if c.Indexing.MaxRetries == 0 {
		c.Indexing.MaxRetries = 3
	}
	if c.Indexing.BaseBackoffMs <= 0 {
		c.Indexing.BaseBackoffMs = 200
	}
	if c.Indexing.BatchSize <= 0 {
		c.Indexing.BatchSize = 64
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Redis.Addrs) == 0 {
		return fmt.Errorf("redis.addrs is required")
	}
	switch c.Vector.Backend {
	case VectorBackendRedis:
	case VectorBackendQdrant:
		if c.Vector.QdrantAddr == "" {
			return fmt.Errorf("vector.qdrant_addr is required for the qdrant backend")
		}
	default:
		return fmt.Errorf("vector.backend must be %q or %q, got %q",
			VectorBackendRedis, VectorBackendQdrant, c.Vector.Backend)
	}
	switch c.Duplicate.Scope {
	case "country", "all":
	default:
		return fmt.Errorf("duplicate.scope must be \"country\" or \"all\", got %q", c.Duplicate.Scope)
	}
	if c.Search.KeywordBaseScore > 1 {
		return fmt.Errorf("search.keyword_base_score must be in (0,1], got %v", c.Search.KeywordBaseScore)
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit %d exceeds search.max_limit %d",
			c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	return nil
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
