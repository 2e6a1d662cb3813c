package locadex

import "github.com/kailas-cloud/locadex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidQuery    = domain.ErrInvalidQuery
	ErrInvalidListing  = domain.ErrInvalidListing
	ErrNotFound        = domain.ErrNotFound
	ErrUpstreamTimeout = domain.ErrUpstreamTimeout
	ErrProviderError   = domain.ErrProviderError
)
