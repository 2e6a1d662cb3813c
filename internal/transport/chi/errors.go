package chi

import (
	"errors"
	"net/http"

	"github.com/kailas-cloud/locadex/internal/domain"
)

// ErrorCode is the machine-readable error code in error responses.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest      ErrorCode = "bad_request"
	CodeUnauthorized    ErrorCode = "unauthorized"
	CodeInvalidQuery    ErrorCode = "invalid_query"
	CodeInvalidListing  ErrorCode = "invalid_listing"
	CodeNotFound        ErrorCode = "not_found"
	CodeUpstreamTimeout ErrorCode = "upstream_timeout"
	CodeProviderError   ErrorCode = "provider_error"
	CodeInternalError   ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, CodeInvalidQuery),
		sentinelHandler(domain.ErrInvalidListing, http.StatusBadRequest, CodeInvalidListing),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrUpstreamTimeout, http.StatusGatewayTimeout, CodeUpstreamTimeout),
		sentinelHandler(domain.ErrProviderError, http.StatusBadGateway, CodeProviderError),
	}
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// Validation errors carry the full message; upstream failures expose only the sentinel text.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		msg := sentinel.Error()
		if status == http.StatusBadRequest {
			msg = err.Error()
		}
		writeError(w, status, code, msg)
		return true
	}
}
