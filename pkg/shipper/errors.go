package shipper

import (
	"errors"
	"fmt"
	"net/http"
)

// ProviderError represents an error from an upstream provider.
type ProviderError struct {
	Provider   string
	Code       string
	Message    string
	StatusCode int
	Retryable  bool
	Kind       error // one of the sentinel errors below
	Cause      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error (%s): %s: %v", e.Provider, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error (%s): %s", e.Provider, e.Code, e.Message)
}

// Unwrap exposes both the cause and the kind to errors.Is/As.
func (e *ProviderError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// Is implements errors.Is for ProviderError.
func (e *ProviderError) Is(target error) bool {
	t, ok := target.(*ProviderError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewProviderError creates a new ProviderError.
func NewProviderError(provider, code, message string) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Code:     code,
		Message:  message,
	}
}

// WithCause adds a cause to the error.
func (e *ProviderError) WithCause(err error) *ProviderError {
	e.Cause = err
	return e
}

// WithStatusCode sets the HTTP status and derives kind and retryability from it.
func (e *ProviderError) WithStatusCode(code int) *ProviderError {
	e.StatusCode = code
	e.Kind = Classify(code)
	e.Retryable = errors.Is(e.Kind, ErrProviderUnavailable) || code == http.StatusTooManyRequests
	return e
}

// WithKind sets the error kind.
func (e *ProviderError) WithKind(kind error) *ProviderError {
	e.Kind = kind
	return e
}

// WithRetryable marks the error as retryable.
func (e *ProviderError) WithRetryable(retryable bool) *ProviderError {
	e.Retryable = retryable
	return e
}

// Sentinel errors for the checkout shipping taxonomy.
var (
	// ErrProviderUnavailable covers network failures, timeouts and 5xx responses.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrProviderRejected indicates the provider refused the request (4xx).
	ErrProviderRejected = errors.New("provider rejected request")

	// ErrAuthenticationFailed indicates provider authentication failed.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrNotFound indicates a lookup (e.g. geocoding) produced no result.
	ErrNotFound = errors.New("not found")

	// ErrNotServiceable indicates same-day delivery is not offered for a route.
	ErrNotServiceable = errors.New("not serviceable")

	// ErrRequestMalformed indicates the checkout request itself is invalid.
	ErrRequestMalformed = errors.New("request malformed")

	// ErrProviderNotFound indicates the requested provider is not registered.
	ErrProviderNotFound = errors.New("provider not found")
)

// Classify maps an HTTP status code to an error kind.
func Classify(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrAuthenticationFailed
	case status == http.StatusTooManyRequests || status >= 500:
		return ErrProviderUnavailable
	case status >= 400:
		return ErrProviderRejected
	default:
		return ErrProviderUnavailable
	}
}

// IsRetryable returns true if the error is retryable.
func IsRetryable(err error) bool {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Retryable
	}
	return errors.Is(err, ErrProviderUnavailable)
}

// ErrorType returns a short label for metrics.
func ErrorType(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrAuthenticationFailed):
		return "auth"
	case errors.Is(err, ErrProviderRejected):
		return "rejected"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNotServiceable):
		return "not_serviceable"
	default:
		return "unavailable"
	}
}
