package listing

// Scope bounds an active-listing scan.
type Scope struct {
	// Country restricts candidates to one country (case-insensitive). Empty means all.
	// Listings with no country are always kept.
	Country string
	// City widens a Country scope to listings in this city whatever their
	// country says. Ignored without Country.
	City string
	// ExcludeUserID drops listings owned by this user.
	ExcludeUserID string
	// Limit caps the result to the most recently created listings. 0 means no cap.
	Limit int
}
