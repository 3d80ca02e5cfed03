package fmp

import (
	"errors"
	"fmt"
)

// ErrDomain is wrapped by every error the client returns.
var ErrDomain = errors.New("fmp: domain error")

var (
	// ErrInvalidSymbol is returned before any request when a ticker is empty or malformed.
	ErrInvalidSymbol = fmt.Errorf("%w: invalid symbol", ErrDomain)
	// ErrNoData is returned when the provider answers with an empty result set.
	ErrNoData = fmt.Errorf("%w: no data", ErrDomain)
	// ErrUnavailable is returned when the provider cannot be reached or its answer cannot be decoded.
	ErrUnavailable = fmt.Errorf("%w: provider unavailable", ErrDomain)
)

// APIError is a non-2xx response or an error document from the provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("fmp: api status %d", e.StatusCode)
	}
	return fmt.Sprintf("fmp: api status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return ErrDomain }

// IsCallerError reports whether err was caused by the request arguments
// (bad or unknown symbol) rather than by the provider.
func IsCallerError(err error) bool {
	return errors.Is(err, ErrInvalidSymbol) || errors.Is(err, ErrNoData)
}
