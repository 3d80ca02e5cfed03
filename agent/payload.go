package agent

import (
	"encoding/json"
	"errors"

	"github.com/skosovsky/finagent"
)

// Error kinds reported to the model.
const (
	KindUnknownFunction  = "unknown_function"
	KindInvalidArguments = "invalid_arguments"
	KindExecutionFailed  = "execution_failed"
	KindTimeout          = "timeout"
)

type errorPayload struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// toolErrorPayload renders a failed tool execution as the JSON content of a tool message.
// SystemError messages are generic so internal details never reach the model.
func toolErrorPayload(err error) string {
	d := errorDetail{Kind: KindExecutionFailed, Message: err.Error()}
	var ce *finagent.ClientError
	switch {
	case errors.Is(err, finagent.ErrToolNotFound):
		d.Kind = KindUnknownFunction
	case errors.Is(err, finagent.ErrTimeout):
		d.Kind = KindTimeout
		d.Message = "function execution timed out"
		d.Retryable = true
	case errors.As(err, &ce):
		d.Kind = KindInvalidArguments
		d.Message = ce.Error()
		d.Retryable = ce.Retryable
	}
	b, mErr := json.Marshal(errorPayload{Error: d})
	if mErr != nil {
		return `{"error":{"kind":"execution_failed","message":"unencodable error","retryable":false}}`
	}
	return string(b)
}
