package health

import (
	"context"
	"sync"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an auxiliary component is failing. Reads may still work.
	Degraded Status = "degraded"
	// Unhealthy indicates the listing database is down.
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

// Component names in Report.Checks.
const (
	ComponentDatabase    = "database"
	ComponentCache       = "cache"
	ComponentVectorIndex = "vector_index"
	ComponentEmbedding   = "embedding"
)

const defaultCheckTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Deps lists the checked components. Only Database is required.
type Deps struct {
	Database    DBPinger
	Cache       DBPinger
	VectorIndex IndexChecker
	Embedding   EmbeddingChecker
}

// Service coordinates health checks.
type Service struct {
	deps    Deps
	timeout time.Duration
}

// New creates a Service.
func New(deps Deps) *Service {
	return &Service{deps: deps, timeout: defaultCheckTimeout}
}

// Check runs all checks concurrently, each under its own timeout.
func (s *Service) Check(ctx context.Context) Report {
	probes := map[string]func(context.Context) error{
		ComponentDatabase: s.deps.Database.Ping,
	}
	if s.deps.Cache != nil {
		probes[ComponentCache] = s.deps.Cache.Ping
	}
	if s.deps.VectorIndex != nil {
		probes[ComponentVectorIndex] = s.deps.VectorIndex.Healthy
	}
	if s.deps.Embedding != nil {
		probes[ComponentEmbedding] = s.deps.Embedding.HealthCheck
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		checks = make(map[string]CheckResult, len(probes))
	)
	for name, probe := range probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			result := CheckOK
			if err := probe(cctx); err != nil {
				result = CheckError
			}
			mu.Lock()
			checks[name] = result
			mu.Unlock()
		}()
	}
	wg.Wait()

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks[ComponentDatabase] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}
