// Package mock provides a scripted test double for the llm.Provider interface.
//
// Use Provider in unit tests to replay a fixed sequence of model turns and to
// inspect the CompletionRequests the dispatch loop sent.
//
// Example:
//
//	p := &mock.Provider{Script: []mock.Step{
//	    {Response: mock.ToolCalls(llm.ToolCall{ID: "1", Name: "get_stock_price", Arguments: `{"symbol":"AAPL"}`})},
//	    {Response: mock.Text("AAPL trades at 190.")},
//	}}
package mock

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/skosovsky/finagent/llm"
)

// ErrScriptExhausted is returned when every Step was consumed and no Fallback is set.
var ErrScriptExhausted = errors.New("mock: script exhausted")

// Step is one scripted model turn. Err takes precedence over Response.
type Step struct {
	Response *llm.CompletionResponse
	Err      error
}

// CompleteCall records a single invocation of Complete.
type CompleteCall struct {
	// Ctx is the context passed to Complete.
	Ctx context.Context
	// Req is the CompletionRequest passed to Complete. Messages and Tools are copied.
	Req llm.CompletionRequest
}

// Provider is a mock implementation of llm.Provider.
// Set fields before the first call; mutating them during a concurrent call is the caller's responsibility.
type Provider struct {
	mu sync.Mutex

	// Script is replayed in order, one Step per Complete call.
	Script []Step

	// Fallback is returned for every call after Script is exhausted.
	// When nil, such calls fail with ErrScriptExhausted.
	Fallback *Step

	// CompleteCalls records every invocation of Complete in order.
	CompleteCalls []CompleteCall

	next int
}

// Complete records the call and returns the next scripted Step.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	req.Messages = slices.Clone(req.Messages)
	req.Tools = slices.Clone(req.Tools)
	p.CompleteCalls = append(p.CompleteCalls, CompleteCall{Ctx: ctx, Req: req})

	var step Step
	switch {
	case p.next < len(p.Script):
		step = p.Script[p.next]
		p.next++
	case p.Fallback != nil:
		step = *p.Fallback
	default:
		return nil, ErrScriptExhausted
	}
	if step.Err != nil {
		return nil, step.Err
	}
	return step.Response, nil
}

// Calls returns a copy of the recorded calls. Thread-safe.
func (p *Provider) Calls() []CompleteCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.CompleteCalls)
}

// Reset clears recorded calls and rewinds the script. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CompleteCalls = nil
	p.next = 0
}

// Text builds a final-answer response.
func Text(content string) *llm.CompletionResponse {
	return &llm.CompletionResponse{Content: content}
}

// ToolCalls builds a response requesting the given calls.
func ToolCalls(calls ...llm.ToolCall) *llm.CompletionResponse {
	return &llm.CompletionResponse{ToolCalls: calls}
}

// Ensure Provider implements llm.Provider at compile time.
var _ llm.Provider = (*Provider)(nil)
