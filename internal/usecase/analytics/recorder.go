// Package analytics records search and interaction events without blocking callers.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/locadex/internal/domain"
	domanalytics "github.com/kailas-cloud/locadex/internal/domain/analytics"
	"github.com/kailas-cloud/locadex/internal/metrics"
)

const (
	kindSearch      = "search"
	kindInteraction = "interaction"
)

// Sink persists events. Calls run on pool workers.
type Sink interface {
	WriteSearch(ctx context.Context, ev domanalytics.SearchEvent) error
	WriteInteraction(ctx context.Context, ev domanalytics.InteractionEvent) error
}

// Config sizes the worker pool.
type Config struct {
	Workers      int
	WriteTimeout time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{Workers: 8, WriteTimeout: 2 * time.Second}
}

// Recorder hands events to a bounded, non-blocking pool. When every worker
// is busy the event is dropped and counted.
type Recorder struct {
	pool   *ants.Pool
	sink   Sink
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// New starts the worker pool.
func New(sink Sink, cfg Config, log *zap.Logger) (*Recorder, error) {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}

	pool, err := ants.NewPool(cfg.Workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("create analytics pool: %w", err)
	}
	return &Recorder{pool: pool, sink: sink, cfg: cfg, logger: log, now: time.Now}, nil
}

// RecordSearch queues a search event. It never blocks and never fails.
func (r *Recorder) RecordSearch(ctx context.Context, ev domanalytics.SearchEvent) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = r.now()
	}
	r.submit(ctx, kindSearch, func(wctx context.Context) error {
		return r.sink.WriteSearch(wctx, ev)
	})
}

// RecordInteraction validates and queues an interaction event. Only invalid
// input is reported; sink failures and drops are not.
func (r *Recorder) RecordInteraction(ctx context.Context, ev domanalytics.InteractionEvent) error {
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = r.now()
	}
	r.submit(ctx, kindInteraction, func(wctx context.Context) error {
		return r.sink.WriteInteraction(wctx, ev)
	})
	return nil
}

// Close waits up to timeout for queued writes, then stops the pool.
func (r *Recorder) Close(timeout time.Duration) error {
	if err := r.pool.ReleaseTimeout(timeout); err != nil {
		return fmt.Errorf("release analytics pool: %w", err)
	}
	return nil
}

func (r *Recorder) submit(ctx context.Context, kind string, write func(context.Context) error) {
	// Detach from request cancellation; the write outlives the response.
	base := context.WithoutCancel(ctx)

	err := r.pool.Submit(func() {
		wctx, cancel := context.WithTimeout(base, r.cfg.WriteTimeout)
		defer cancel()

		if err := write(wctx); err != nil {
			metrics.AnalyticsEventsTotal.WithLabelValues(kind, "failed").Inc()
			r.logger.Warn("Analytics write failed", zap.String("kind", kind), zap.Error(err))
			return
		}
		metrics.AnalyticsEventsTotal.WithLabelValues(kind, "recorded").Inc()
	})
	if err != nil {
		metrics.AnalyticsEventsTotal.WithLabelValues(kind, "dropped").Inc()
		if errors.Is(err, ants.ErrPoolOverload) {
			r.logger.Debug("Analytics event dropped, pool saturated", zap.String("kind", kind))
			return
		}
		r.logger.Warn("Analytics event dropped", zap.String("kind", kind), zap.Error(err))
	}
}
