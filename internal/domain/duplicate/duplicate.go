// Package duplicate defines the result of a duplicate-listing check.
package duplicate

// MatchType names the strategy that produced a match.
type MatchType string

// Match strategies, strongest first.
const (
	ExactAddress   MatchType = "exact_address"
	ProximityTitle MatchType = "proximity_title"
	ContactInfo    MatchType = "contact_info"
	FuzzyLocation  MatchType = "fuzzy_location"
)

// BlockingConfidence is the recommended threshold at or above which callers
// should refuse to create the listing. The engine itself never enforces it.
const BlockingConfidence = 80

// Match is a potential duplicate. Confidence is a heuristic in 0..100.
type Match struct {
	ListingID   string
	Title       string
	Address     string
	OwnerUserID string
	MatchType   MatchType
	Confidence  int
	Reason      string
}

// Blocking reports whether the match reaches BlockingConfidence.
func (m *Match) Blocking() bool { return m.Confidence >= BlockingConfidence }

// AnyBlocking reports whether any match reaches BlockingConfidence.
func AnyBlocking(matches []Match) bool {
	for i := range matches {
		if matches[i].Blocking() {
			return true
		}
	}
	return false
}
