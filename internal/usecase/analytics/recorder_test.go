package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/locadex/internal/domain"
	domanalytics "github.com/kailas-cloud/locadex/internal/domain/analytics"
	"github.com/kailas-cloud/locadex/internal/metrics"
)

type mockSink struct {
	mu           sync.Mutex
	searches     []domanalytics.SearchEvent
	interactions []domanalytics.InteractionEvent
	block        chan struct{}
	err          error
	ctxErrs      []error
	done         chan struct{}
}

func newMockSink() *mockSink {
	return &mockSink{done: make(chan struct{}, 16)}
}

func (m *mockSink) wait() {
	if m.block != nil {
		<-m.block
	}
}

func (m *mockSink) WriteSearch(ctx context.Context, ev domanalytics.SearchEvent) error {
	m.wait()
	m.mu.Lock()
	m.searches = append(m.searches, ev)
	m.ctxErrs = append(m.ctxErrs, ctx.Err())
	m.mu.Unlock()
	m.done <- struct{}{}
	return m.err
}

func (m *mockSink) WriteInteraction(ctx context.Context, ev domanalytics.InteractionEvent) error {
	m.wait()
	m.mu.Lock()
	m.interactions = append(m.interactions, ev)
	m.ctxErrs = append(m.ctxErrs, ctx.Err())
	m.mu.Unlock()
	m.done <- struct{}{}
	return m.err
}

func awaitWrite(t *testing.T, s *mockSink) {
	t.Helper()
	select {
	case <-s.done:
	case <-time.After(2 * time.Second):
		t.Fatal("sink write not observed")
	}
}

func newTestRecorder(t *testing.T, sink Sink, workers int) *Recorder {
	t.Helper()
	r, err := New(sink, Config{Workers: workers, WriteTimeout: time.Second}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = r.Close(time.Second) })
	return r
}

func TestRecordSearch_FillsIDAndTime(t *testing.T) {
	sink := newMockSink()
	r := newTestRecorder(t, sink, 2)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	before := testutil.ToFloat64(metrics.AnalyticsEventsTotal.WithLabelValues("search", "recorded"))

	r.RecordSearch(context.Background(), domanalytics.SearchEvent{
		Query:       "bike",
		Type:        domanalytics.SearchSemantic,
		ResultCount: 3,
	})
	awaitWrite(t, sink)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.searches) != 1 {
		t.Fatalf("expected 1 search event, got %d", len(sink.searches))
	}
	ev := sink.searches[0]
	if ev.ID == "" {
		t.Error("expected generated id")
	}
	if !ev.At.Equal(fixed) {
		t.Errorf("expected at %v, got %v", fixed, ev.At)
	}
	if ev.Query != "bike" || ev.ResultCount != 3 {
		t.Errorf("unexpected event: %+v", ev)
	}

	// counter is bumped after the write returns
	deadline := time.Now().Add(time.Second)
	for testutil.ToFloat64(metrics.AnalyticsEventsTotal.WithLabelValues("search", "recorded")) < before+1 {
		if time.Now().After(deadline) {
			t.Fatal("recorded counter not incremented")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRecordSearch_DetachedFromRequestCancel(t *testing.T) {
	sink := newMockSink()
	sink.block = make(chan struct{})
	r := newTestRecorder(t, sink, 1)

	ctx, cancel := context.WithCancel(context.Background())
	r.RecordSearch(ctx, domanalytics.SearchEvent{Query: "q", Type: domanalytics.SearchHybrid})
	cancel()
	close(sink.block)
	awaitWrite(t, sink)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.ctxErrs[0] != nil {
		t.Errorf("expected live write context, got %v", sink.ctxErrs[0])
	}
}

func TestRecordSearch_DropsWhenSaturated(t *testing.T) {
	sink := newMockSink()
	sink.block = make(chan struct{})
	r := newTestRecorder(t, sink, 1)

	before := testutil.ToFloat64(metrics.AnalyticsEventsTotal.WithLabelValues("search", "dropped"))

	r.RecordSearch(context.Background(), domanalytics.SearchEvent{Query: "first", Type: domanalytics.SearchSemantic})
	// give the single worker time to pick up the first task
	deadline := time.Now().Add(time.Second)
	for r.pool.Running() < 1 {
		if time.Now().After(deadline) {
			t.Fatal("worker did not start")
		}
		time.Sleep(time.Millisecond)
	}

	r.RecordSearch(context.Background(), domanalytics.SearchEvent{Query: "second", Type: domanalytics.SearchSemantic})

	if got := testutil.ToFloat64(metrics.AnalyticsEventsTotal.WithLabelValues("search", "dropped")); got != before+1 {
		t.Errorf("expected dropped counter %v, got %v", before+1, got)
	}

	close(sink.block)
	awaitWrite(t, sink)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.searches) != 1 || sink.searches[0].Query != "first" {
		t.Errorf("expected only first event written, got %+v", sink.searches)
	}
}

func TestRecordSearch_SinkErrorCounted(t *testing.T) {
	sink := newMockSink()
	sink.err = errors.New("redis down")
	r := newTestRecorder(t, sink, 1)

	before := testutil.ToFloat64(metrics.AnalyticsEventsTotal.WithLabelValues("search", "failed"))
	r.RecordSearch(context.Background(), domanalytics.SearchEvent{Query: "q", Type: domanalytics.SearchSemantic})
	awaitWrite(t, sink)

	deadline := time.Now().Add(time.Second)
	for testutil.ToFloat64(metrics.AnalyticsEventsTotal.WithLabelValues("search", "failed")) < before+1 {
		if time.Now().After(deadline) {
			t.Fatal("failed counter not incremented")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRecordInteraction_Valid(t *testing.T) {
	sink := newMockSink()
	r := newTestRecorder(t, sink, 1)
	dur := 12

	err := r.RecordInteraction(context.Background(), domanalytics.InteractionEvent{
		UserID:          "u1",
		ListingID:       "l1",
		Type:            domanalytics.InteractionView,
		DurationSeconds: &dur,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	awaitWrite(t, sink)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.interactions) != 1 {
		t.Fatalf("expected 1 interaction, got %d", len(sink.interactions))
	}
	if sink.interactions[0].ID == "" || sink.interactions[0].At.IsZero() {
		t.Errorf("expected id and time filled: %+v", sink.interactions[0])
	}
}

func TestRecordInteraction_Invalid(t *testing.T) {
	sink := newMockSink()
	r := newTestRecorder(t, sink, 1)

	tests := []struct {
		name string
		ev   domanalytics.InteractionEvent
	}{
		{"missing user", domanalytics.InteractionEvent{ListingID: "l1", Type: domanalytics.InteractionClick}},
		{"missing listing", domanalytics.InteractionEvent{UserID: "u1", Type: domanalytics.InteractionClick}},
		{"bad type", domanalytics.InteractionEvent{UserID: "u1", ListingID: "l1", Type: "poke"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.RecordInteraction(context.Background(), tt.ev)
			if !errors.Is(err, domain.ErrInvalidQuery) {
				t.Errorf("expected ErrInvalidQuery, got %v", err)
			}
		})
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.interactions) != 0 {
		t.Errorf("invalid events must not reach the sink, got %d", len(sink.interactions))
	}
}

func TestNew_Defaults(t *testing.T) {
	r, err := New(newMockSink(), Config{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = r.Close(time.Second) }()

	def := DefaultConfig()
	if r.cfg != def {
		t.Errorf("expected defaults %+v, got %+v", def, r.cfg)
	}
	if r.pool.Cap() != def.Workers {
		t.Errorf("expected pool cap %d, got %d", def.Workers, r.pool.Cap())
	}
}
