package agent

import "errors"

var (
	// ErrEmptyQuery is returned when the query is empty or whitespace only.
	ErrEmptyQuery = errors.New("agent: empty query")
	// ErrProviderUnavailable wraps any failure of the model provider. It ends the run.
	ErrProviderUnavailable = errors.New("agent: model provider unavailable")
	// ErrLoopBoundExceeded is returned when the model keeps requesting functions
	// after the maximum number of iterations.
	ErrLoopBoundExceeded = errors.New("agent: iteration limit exceeded")
)

var errNilResponse = errors.New("provider returned no response")
