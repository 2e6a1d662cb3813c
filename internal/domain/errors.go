package domain

import "errors"

var (
	// ErrInvalidQuery signals empty or malformed caller input.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrUpstreamTimeout signals that the embedding provider, vector index or
	// listing store did not answer within its deadline.
	ErrUpstreamTimeout = errors.New("upstream timeout")
	// ErrProviderError signals an embedding provider or vector index failure.
	ErrProviderError = errors.New("provider error")
	// ErrNotFound signals a missing listing or vector.
	ErrNotFound = errors.New("not found")
	// ErrInvalidListing signals a listing that cannot be checked or indexed.
	ErrInvalidListing = errors.New("invalid listing")
)
