// Package llm defines the boundary between the dispatch loop and a chat-completion model.
//
// A Provider receives the conversation history plus the function definitions the
// model may call, and answers with either final text or one or more tool calls.
// Implementations must be safe for concurrent use and must return promptly when
// ctx is cancelled.
package llm

import "context"

// Provider is the abstraction over a chat-completion backend.
type Provider interface {
	// Complete sends req to the model and waits for the full response.
	// An error means the model could not be reached or answered with
	// something unusable; callers treat it as fatal for the current turn.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// CompletionRequest carries everything the model needs to produce a response.
type CompletionRequest struct {
	// Messages is the ordered conversation history.
	Messages []Message

	// Tools is the set of functions offered to the model.
	Tools []ToolDefinition

	// SystemPrompt is injected before the history as a "system" message.
	SystemPrompt string

	// Temperature controls output randomness. Zero means provider default.
	Temperature float64

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int
}

// CompletionResponse is the model's answer to one CompletionRequest.
type CompletionResponse struct {
	// Content is the assistant text. Empty when the model only requests tool calls.
	Content string

	// ToolCalls lists the function invocations requested by the model, in order.
	ToolCalls []ToolCall

	// Usage is the token accounting for this request/response pair.
	Usage Usage
}

// HasToolCalls reports whether the model asked for at least one function.
func (r *CompletionResponse) HasToolCalls() bool {
	return r != nil && len(r.ToolCalls) > 0
}

// Usage holds token accounting returned by the backend.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Add returns the element-wise sum of u and o.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
		TotalTokens:      u.TotalTokens + o.TotalTokens,
	}
}
