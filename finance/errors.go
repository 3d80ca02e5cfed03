package finance

import (
	"errors"
	"strings"

	"github.com/skosovsky/finagent"
	"github.com/skosovsky/finagent/fmp"
)

// toolError classifies a data or model failure for the registry: problems caused by
// the model's arguments (unknown or malformed symbols, empty results) become
// ClientError so the model can correct itself, anything else becomes SystemError.
func toolError(err error) error {
	if err == nil {
		return nil
	}
	if finagent.IsClientError(err) || finagent.IsSystemError(err) {
		return err
	}
	if fmp.IsCallerError(err) {
		return &finagent.ClientError{Reason: err.Error(), Err: err}
	}
	return &finagent.SystemError{Err: err}
}

// invalidArgument turns an argument check failure into a ClientError matching both
// finagent.ErrValidation and the original cause.
func invalidArgument(err error) error {
	if err == nil {
		return nil
	}
	return &finagent.ClientError{Reason: err.Error(), Err: errors.Join(finagent.ErrValidation, err)}
}

func requireText(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return invalidArgument(errors.New(field + " must not be empty"))
	}
	return nil
}

func validSymbol(symbol string) error {
	_, err := fmp.NormalizeSymbol(symbol)
	return invalidArgument(err)
}
