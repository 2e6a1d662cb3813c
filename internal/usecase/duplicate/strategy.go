package duplicate

import (
	"fmt"
	"math"

	domdup "github.com/kailas-cloud/locadex/internal/domain/duplicate"
	"github.com/kailas-cloud/locadex/internal/domain/geo"
	"github.com/kailas-cloud/locadex/internal/domain/listing"
	"github.com/kailas-cloud/locadex/internal/domain/textsim"
)

// Strategy thresholds and confidences.
const (
	ExactAddressConfidence = 95

	ProximityMaxKm       = 0.1
	ProximityMinTitleSim = 0.70
	ProximityMaxConf     = 90

	EmailConfidence = 85
	PhoneConfidence = 80

	FuzzyMaxKm       = 0.05
	FuzzyMinTitleSim = 0.50
	FuzzyMaxConf     = 75
)

// normalized caches the normalized fields of one listing.
type normalized struct {
	l        *listing.Listing
	address  string
	city     string
	title    string
	email    string
	hasEmail bool
	phone    string
	hasPhone bool
}

func normalize(l *listing.Listing) normalized {
	n := normalized{
		l:       l,
		address: textsim.NormalizeAddress(l.Location.Address),
		city:    textsim.NormalizeText(l.Location.City),
		title:   textsim.NormalizeText(l.Title),
	}
	n.email, n.hasEmail = textsim.NormalizeEmail(l.Contact.Email)
	n.phone, n.hasPhone = textsim.NormalizePhone(l.Contact.Phone)
	return n
}

// evaluate runs every strategy for one candidate/existing pair.
// An exact address match short-circuits the others.
func evaluate(c, e normalized) []domdup.Match {
	if c.address != "" && c.address == e.address && c.city == e.city {
		return []domdup.Match{newMatch(e.l, domdup.ExactAddress, ExactAddressConfidence,
			fmt.Sprintf("Same address: %s, %s", e.l.Location.Address, e.l.Location.City))}
	}

	var out []domdup.Match
	dist, hasDist := distanceKm(c.l, e.l)
	titleSim := -1.0
	similarity := func() float64 {
		if titleSim < 0 {
			titleSim = textsim.LevenshteinSimilarity(c.title, e.title)
		}
		return titleSim
	}

	if hasDist && dist <= ProximityMaxKm && similarity() >= ProximityMinTitleSim {
		conf := min(ProximityMaxConf, percent(similarity(), 100))
		out = append(out, newMatch(e.l, domdup.ProximityTitle, conf,
			fmt.Sprintf("%.0f m away with a %d%% similar title", dist*1000, percent(similarity(), 100))))
	}

	switch {
	case c.hasEmail && e.hasEmail && c.email == e.email:
		out = append(out, newMatch(e.l, domdup.ContactInfo, EmailConfidence, "Same contact email"))
	case c.hasPhone && e.hasPhone && c.phone == e.phone:
		out = append(out, newMatch(e.l, domdup.ContactInfo, PhoneConfidence, "Same contact phone number"))
	}

	if hasDist && dist <= FuzzyMaxKm && similarity() >= FuzzyMinTitleSim {
		conf := min(FuzzyMaxConf, percent(similarity(), 80))
		out = append(out, newMatch(e.l, domdup.FuzzyLocation, conf,
			fmt.Sprintf("%.0f m away with a loosely similar title", dist*1000)))
	}
	return out
}

// distanceKm is false when either side has no coordinates.
func distanceKm(a, b *listing.Listing) (float64, bool) {
	if !a.Location.HasCoordinates() || !b.Location.HasCoordinates() {
		return 0, false
	}
	d := geo.HaversineDistanceKm(a.Location.Latitude, a.Location.Longitude, b.Location.Latitude, b.Location.Longitude)
	if math.IsNaN(d) {
		return 0, false
	}
	return d, true
}

func percent(sim, scale float64) int {
	return int(math.Round(sim * scale))
}

func newMatch(e *listing.Listing, t domdup.MatchType, conf int, reason string) domdup.Match {
	return domdup.Match{
		ListingID:   e.ID,
		Title:       e.Title,
		Address:     e.Location.Address,
		OwnerUserID: e.UserID,
		MatchType:   t,
		Confidence:  conf,
		Reason:      reason,
	}
}
