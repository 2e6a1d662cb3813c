package locadex

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

type clientConfig struct {
	redisAddrs    []string
	redisPassword string
	listingsPath  string

	qdrantAddr       string
	qdrantCollection string

	embedder         Embedder
	embeddingAPIKey  string
	embeddingBaseURL string
	embeddingModel   string
	vectorDimensions int

	hnswM           int
	hnswEFConstruct int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRedis sets the Redis/Valkey instance used for the vector index,
// the embedding cache and the analytics streams. Required.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.redisAddrs = []string{addr}
		c.redisPassword = password
	})
}

// WithListingsDB sets the SQLite file holding listings.
// Defaults to "locadex.db" in the working directory.
func WithListingsDB(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.listingsPath = path
	})
}

// WithQdrant stores listing vectors in Qdrant instead of Redis.
func WithQdrant(addr, collection string) Option {
	return optionFunc(func(c *clientConfig) {
		c.qdrantAddr = addr
		c.qdrantCollection = collection
	})
}

// WithOpenAI configures an OpenAI-compatible embedding endpoint.
// An empty baseURL targets api.openai.com.
func WithOpenAI(apiKey, baseURL, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.embeddingAPIKey = apiKey
		c.embeddingBaseURL = baseURL
		c.embeddingModel = model
	})
}

// WithEmbedder replaces the OpenAI provider with a custom one.
// Results are still cached in Redis.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithVectorDimensions sets the embedding dimension. Defaults to 1536.
func WithVectorDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorDimensions = dim
	})
}

// WithHNSW configures HNSW index parameters for the Redis backend.
// Defaults: M=16, EFConstruct=200.
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
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
