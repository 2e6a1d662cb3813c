package locadex

import (
	"context"
	"slices"

	healthuc "github.com/kailas-cloud/locadex/internal/usecase/health"
)

// HealthStatus is the outcome of Client.Health. Status is "error" only
// when the listing database is unreachable; any other failed component
// gives "degraded".
type HealthStatus struct {
	Status string
	// Checks maps "database", "cache", "vector_index" and "embedding"
	// to "ok" or "error". Components that are not configured are absent.
	Checks map[string]string
}

// Failing lists the components that reported an error, sorted.
func (h HealthStatus) Failing() []string {
	var out []string
	for name, v := range h.Checks {
		if v != string(healthuc.CheckOK) {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// Health pings the listing database, the embedding cache, the vector index
// and the embedding provider concurrently.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
