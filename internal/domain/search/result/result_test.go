package result

import (
	"testing"

	"github.com/kailas-cloud/locadex/internal/domain/listing"
)

func TestNew(t *testing.T) {
	l := listing.Listing{ID: "l-1", Title: "Farm"}
	r := New(l, 0.8, 0.95, SourceSemantic)

	if r.ID() != "l-1" {
		t.Errorf("ID() = %q", r.ID())
	}
	if r.Listing().Title != "Farm" {
		t.Errorf("Listing().Title = %q", r.Listing().Title)
	}
	if r.Score() != 0.8 {
		t.Errorf("Score() = %f", r.Score())
	}
	if r.RelevanceScore() != 0.95 {
		t.Errorf("RelevanceScore() = %f", r.RelevanceScore())
	}
	if r.Source() != SourceSemantic {
		t.Errorf("Source() = %q", r.Source())
	}
}

func TestWithSource(t *testing.T) {
	r := New(listing.Listing{ID: "a"}, 0.5, 0.5, SourceSemantic)
	both := r.WithSource(SourceBoth)
	if both.Source() != SourceBoth {
		t.Errorf("Source() = %q", both.Source())
	}
	if r.Source() != SourceSemantic {
		t.Error("WithSource mutated the receiver")
	}
}
