package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	domanalytics "github.com/kailas-cloud/locadex/internal/domain/analytics"
)

type xaddCall struct {
	stream string
	maxLen int64
	fields map[string]string
}

type mockStore struct {
	calls []xaddCall
	err   error
}

func (m *mockStore) XAdd(_ context.Context, stream string, maxLen int64, fields map[string]string) (string, error) {
	m.calls = append(m.calls, xaddCall{stream, maxLen, fields})
	return "1-0", m.err
}

var at = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func TestWriteSearch(t *testing.T) {
	ms := &mockStore{}
	s := New(ms, 500)

	err := s.WriteSearch(context.Background(), domanalytics.SearchEvent{
		ID:          "e1",
		Query:       "bio bakery",
		Type:        domanalytics.SearchHybrid,
		ResultCount: 7,
		Filters:     map[string]string{"city": "Berlin"},
		At:          at,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c := ms.calls[0]
	if c.stream != "locadex:events:search" || c.maxLen != 500 {
		t.Errorf("unexpected target %s/%d", c.stream, c.maxLen)
	}
	if c.fields["result_count"] != "7" || c.fields["filters"] != `{"city":"Berlin"}` {
		t.Errorf("unexpected fields: %v", c.fields)
	}
	if _, ok := c.fields["user_id"]; ok {
		t.Error("anonymous search must not carry user_id")
	}
	if c.fields["at"] != "2026-06-15T12:00:00Z" {
		t.Errorf("at = %q", c.fields["at"])
	}
}

func TestWriteInteraction(t *testing.T) {
	ms := &mockStore{}
	s := New(ms, 0)
	d := 42

	err := s.WriteInteraction(context.Background(), domanalytics.InteractionEvent{
		ID: "e2", UserID: "u1", ListingID: "l1", Type: domanalytics.InteractionView,
		DurationSeconds: &d, At: at,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c := ms.calls[0]
	if c.stream != "locadex:events:interaction" || c.maxLen != DefaultMaxLen {
		t.Errorf("unexpected target %s/%d", c.stream, c.maxLen)
	}
	if c.fields["duration_seconds"] != "42" || c.fields["type"] != "view" {
		t.Errorf("unexpected fields: %v", c.fields)
	}
}

func TestWrite_StoreError(t *testing.T) {
	boom := errors.New("boom")
	s := New(&mockStore{err: boom}, 10)
	if err := s.WriteSearch(context.Background(), domanalytics.SearchEvent{}); !errors.Is(err, boom) {
		t.Errorf("expected wrapped store error, got %v", err)
	}
	if err := s.WriteInteraction(context.Background(), domanalytics.InteractionEvent{}); !errors.Is(err, boom) {
		t.Errorf("expected wrapped store error, got %v", err)
	}
}
