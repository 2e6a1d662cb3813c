package search

import (
	"slices"
	"strings"

	"github.com/kailas-cloud/locadex/internal/domain/search/result"
)

// mergeResults unions semantic and keyword hits by listing id.
// A semantic hit wins on collision and is marked as found by both.
func mergeResults(semantic, keyword []result.Result) []result.Result {
	merged := make([]result.Result, 0, len(semantic)+len(keyword))
	pos := make(map[string]int, len(semantic))
	for _, r := range semantic {
		pos[r.ID()] = len(merged)
		merged = append(merged, r)
	}
	for _, r := range keyword {
		if i, ok := pos[r.ID()]; ok {
			merged[i] = merged[i].WithSource(result.SourceBoth)
			continue
		}
		pos[r.ID()] = len(merged)
		merged = append(merged, r)
	}
	sortByRelevance(merged)
	return merged
}

// sortByRelevance orders by relevance desc, then newer createdAt first.
func sortByRelevance(rs []result.Result) {
	slices.SortStableFunc(rs, func(a, b result.Result) int {
		switch {
		case a.RelevanceScore() > b.RelevanceScore():
			return -1
		case a.RelevanceScore() < b.RelevanceScore():
			return 1
		}
		if c := b.Listing().CreatedAt.Compare(a.Listing().CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID(), b.ID())
	})
}

// paginate returns the 1-based page of rs.
func paginate(rs []result.Result, page, size int) []result.Result {
	if size <= 0 {
		return nil
	}
	start := (max(page, 1) - 1) * size
	if start >= len(rs) {
		return []result.Result{}
	}
	end := min(start+size, len(rs))
	return rs[start:end]
}
