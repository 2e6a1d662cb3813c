package health

import "context"

// DBPinger checks listing store or Redis availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// IndexChecker checks that the vector index is reachable and exists.
type IndexChecker interface {
	Healthy(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
