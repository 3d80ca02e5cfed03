// Package agent implements the function-calling dispatch loop: the model is asked
// for an answer, any functions it requests are executed through a finagent.Registry
// and their results are fed back until the model produces a final answer or the
// iteration limit is reached.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/skosovsky/finagent"
	"github.com/skosovsky/finagent/llm"
	"github.com/skosovsky/finagent/observe"
)

// Run outcomes recorded in metrics.
const (
	outcomeDone      = "done"
	outcomeFailed    = "failed"
	outcomeCancelled = "cancelled"
	outcomeLoopBound = "loop_bound"
)

// Agent couples a model provider with a sealed tool registry.
// It holds no per-query state and is safe for concurrent use.
type Agent struct {
	provider llm.Provider
	registry *finagent.Registry
	tools    []llm.ToolDefinition
	opts     options
}

// Result describes a finished or aborted run.
type Result struct {
	// Answer is the model's final text. Empty unless State is StateDone.
	Answer string
	State  State
	// Iterations is the number of model calls made.
	Iterations int
	// ToolCalls is the number of function executions, failed ones included.
	ToolCalls int
	// Messages is a copy of the conversation after the run.
	Messages []llm.Message
	Usage    llm.Usage
}

// New creates an Agent. The registry is sealed and its tools are offered to the
// model in GetAllTools order.
func New(provider llm.Provider, registry *finagent.Registry, opts ...Option) (*Agent, error) {
	if provider == nil {
		return nil, fmt.Errorf("agent: %w: nil provider", finagent.ErrConfiguration)
	}
	if registry == nil {
		return nil, fmt.Errorf("agent: %w: nil registry", finagent.ErrConfiguration)
	}
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}
	registry.Seal()
	all := registry.GetAllTools()
	tools := make([]llm.ToolDefinition, 0, len(all))
	for _, t := range all {
		tools = append(tools, llm.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return &Agent{provider: provider, registry: registry, tools: tools, opts: o}, nil
}

// Tools returns the function definitions offered to the model.
func (a *Agent) Tools() []llm.ToolDefinition {
	return append([]llm.ToolDefinition(nil), a.tools...)
}

// MaxIterations returns the configured iteration limit.
func (a *Agent) MaxIterations() int { return a.opts.maxIterations }

// Run answers query in a fresh conversation.
func (a *Agent) Run(ctx context.Context, query string) (*Result, error) {
	return a.Chat(ctx, NewConversation(), query)
}

// Chat appends query to conv and runs the dispatch loop. On error the returned
// Result is still non-nil (except for ErrEmptyQuery) and carries State StateFailed
// together with everything that happened before the failure; executed functions
// are not undone.
func (a *Agent) Chat(ctx context.Context, conv *Conversation, query string) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if conv == nil {
		conv = NewConversation()
	}
	conv.append(llm.UserMessage(query))
	res := &Result{State: StateAwaitingModel}
	log := a.opts.logger

	for res.Iterations < a.opts.maxIterations {
		if err := ctx.Err(); err != nil {
			log.WarnContext(ctx, "agent run cancelled", "iteration", res.Iterations, "err", err)
			return a.fail(ctx, conv, res, outcomeCancelled, err)
		}
		res.State = StateAwaitingModel
		res.Iterations++
		log.DebugContext(ctx, "agent iteration", "iteration", res.Iterations, "messages", conv.Len())

		resp, err := a.complete(ctx, conv)
		if err != nil {
			log.ErrorContext(ctx, "model request failed", "iteration", res.Iterations, "err", err)
			return a.fail(ctx, conv, res, outcomeFailed, fmt.Errorf("%w: %w", ErrProviderUnavailable, err))
		}
		res.Usage = res.Usage.Add(resp.Usage)

		if !resp.HasToolCalls() {
			conv.append(llm.AssistantMessage(resp.Content))
			res.State = StateDone
			res.Answer = resp.Content
			res.Messages = conv.Messages()
			a.recordRun(ctx, outcomeDone)
			return res, nil
		}

		res.State = StateExecuting
		conv.append(llm.AssistantMessage(resp.Content, resp.ToolCalls...))
		for _, call := range resp.ToolCalls {
			conv.append(a.execute(ctx, call, res.Iterations))
			res.ToolCalls++
		}
	}

	log.WarnContext(ctx, "iteration limit reached", "iterations", res.Iterations)
	return a.fail(ctx, conv, res, outcomeLoopBound,
		fmt.Errorf("%w: %d model calls without a final answer", ErrLoopBoundExceeded, res.Iterations))
}

func (a *Agent) complete(ctx context.Context, conv *Conversation) (*llm.CompletionResponse, error) {
	start := time.Now()
	resp, err := a.provider.Complete(ctx, llm.CompletionRequest{
		Messages:     conv.Messages(),
		Tools:        a.tools,
		SystemPrompt: a.opts.systemPrompt,
		Temperature:  a.opts.temperature,
	})
	if err == nil && resp == nil {
		err = errNilResponse
	}
	if m := a.opts.metrics; m != nil {
		status := observe.StatusOK
		if err != nil {
			status = observe.StatusUnavailable
		}
		m.RecordModelRequest(ctx, status, time.Since(start))
	}
	return resp, err
}

// execute runs one requested function and returns the tool message answering it.
func (a *Agent) execute(ctx context.Context, call llm.ToolCall, iteration int) llm.Message {
	args := call.Arguments
	if strings.TrimSpace(args) == "" {
		args = "{}"
	}
	tr := a.registry.Execute(ctx, finagent.ToolCall{ID: call.ID, ToolName: call.Name, Args: []byte(args)})
	if tr.Error != nil {
		a.opts.logger.WarnContext(ctx, "tool call failed",
			"tool", call.Name, "iteration", iteration, "err", tr.Error)
		return llm.ToolResultMessage(call.ID, call.Name, toolErrorPayload(tr.Error))
	}
	a.opts.logger.InfoContext(ctx, "tool call", "tool", call.Name, "iteration", iteration)
	return llm.ToolResultMessage(call.ID, call.Name, string(tr.Result))
}

func (a *Agent) fail(ctx context.Context, conv *Conversation, res *Result, outcome string, err error) (*Result, error) {
	res.State = StateFailed
	res.Messages = conv.Messages()
	if outcome == outcomeFailed && errors.Is(err, context.Canceled) {
		outcome = outcomeCancelled
	}
	a.recordRun(ctx, outcome)
	return res, err
}

func (a *Agent) recordRun(ctx context.Context, outcome string) {
	if a.opts.metrics != nil {
		a.opts.metrics.RecordRun(context.WithoutCancel(ctx), outcome)
	}
}
