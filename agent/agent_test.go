package agent

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/skosovsky/finagent"
	"github.com/skosovsky/finagent/llm"
	"github.com/skosovsky/finagent/llm/mock"
	"github.com/skosovsky/finagent/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recorder is a tool that remembers the order of its invocations across tools.
type recorder struct {
	mu    sync.Mutex
	order []string
}

func (r *recorder) tool(name, result string) *testutil.MockTool {
	return &testutil.MockTool{
		NameVal: name,
		DescVal: "test function " + name,
		ExecuteFn: func(context.Context, []byte) ([]byte, error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.order = append(r.order, name)
			return []byte(result), nil
		},
	}
}

func (r *recorder) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

func call(id, name, args string) llm.ToolCall {
	return llm.ToolCall{ID: id, Name: name, Arguments: args}
}

func newAgent(t *testing.T, p llm.Provider, reg *finagent.Registry, opts ...Option) *Agent {
	t.Helper()
	a, err := New(p, reg, opts...)
	require.NoError(t, err)
	return a
}

func decodePayload(t *testing.T, content string) errorDetail {
	t.Helper()
	var p errorPayload
	require.NoError(t, json.Unmarshal([]byte(content), &p))
	return p.Error
}

func TestNew_Validation(t *testing.T) {
	reg := testutil.NewTestRegistry()
	p := &mock.Provider{}

	_, err := New(nil, reg)
	require.ErrorIs(t, err, finagent.ErrConfiguration)
	_, err = New(p, nil)
	require.ErrorIs(t, err, finagent.ErrConfiguration)
	_, err = New(p, reg, WithMaxIterations(0))
	require.ErrorIs(t, err, finagent.ErrConfiguration)
	_, err = New(p, reg, WithTemperature(3))
	require.ErrorIs(t, err, finagent.ErrConfiguration)
}

func TestNew_SealsRegistryAndExportsTools(t *testing.T) {
	var rec recorder
	reg := testutil.NewTestRegistry(rec.tool("b_tool", `{}`), rec.tool("a_tool", `{}`))
	a := newAgent(t, &mock.Provider{}, reg)

	assert.True(t, reg.Sealed())
	require.ErrorIs(t, reg.Register(rec.tool("late", `{}`)), finagent.ErrRegistrySealed)

	defs := a.Tools()
	require.Len(t, defs, 2)
	assert.Equal(t, "a_tool", defs[0].Name)
	assert.Equal(t, "test function a_tool", defs[0].Description)
	assert.Equal(t, "object", defs[0].Parameters["type"])
	assert.Equal(t, DefaultMaxIterations, a.MaxIterations())
}

func TestRun_DirectAnswer(t *testing.T) {
	p := &mock.Provider{Script: []mock.Step{{Response: &llm.CompletionResponse{
		Content: "Hello.",
		Usage:   llm.Usage{PromptTokens: 10, CompletionTokens: 2, TotalTokens: 12},
	}}}}
	a := newAgent(t, p, testutil.NewTestRegistry(), WithSystemPrompt("be brief"), WithTemperature(0.2))

	res, err := a.Run(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello.", res.Answer)
	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, 1, res.Iterations)
	assert.Zero(t, res.ToolCalls)
	assert.Equal(t, 12, res.Usage.TotalTokens)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, llm.RoleUser, res.Messages[0].Role)
	assert.Equal(t, llm.RoleAssistant, res.Messages[1].Role)

	calls := p.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "be brief", calls[0].Req.SystemPrompt)
	assert.InDelta(t, 0.2, calls[0].Req.Temperature, 1e-9)
}

func TestRun_SequentialCallsHistoryOrder(t *testing.T) {
	var rec recorder
	reg := testutil.NewTestRegistry(rec.tool("tool_a", `{"a":1}`), rec.tool("tool_b", `{"b":2}`))
	p := &mock.Provider{Script: []mock.Step{
		{Response: mock.ToolCalls(call("c1", "tool_a", `{}`))},
		{Response: mock.ToolCalls(call("c2", "tool_b", `{}`))},
		{Response: mock.Text("final")},
	}}
	a := newAgent(t, p, reg)

	res, err := a.Run(context.Background(), "do a then b")
	require.NoError(t, err)
	assert.Equal(t, "final", res.Answer)
	assert.Equal(t, 3, res.Iterations)
	assert.Equal(t, 2, res.ToolCalls)
	assert.Equal(t, []string{"tool_a", "tool_b"}, rec.calls())

	msgs := res.Messages
	require.Len(t, msgs, 6)
	roles := make([]string, len(msgs))
	for i, m := range msgs {
		roles[i] = m.Role
	}
	assert.Equal(t, []string{
		llm.RoleUser, llm.RoleAssistant, llm.RoleTool, llm.RoleAssistant, llm.RoleTool, llm.RoleAssistant,
	}, roles)
	assert.Equal(t, "tool_a", msgs[1].ToolCalls[0].Name)
	assert.Equal(t, "c1", msgs[2].ToolCallID)
	assert.JSONEq(t, `{"a":1}`, msgs[2].Content)
	assert.Equal(t, "tool_b", msgs[3].ToolCalls[0].Name)
	assert.Equal(t, "c2", msgs[4].ToolCallID)
	assert.Equal(t, "final", msgs[5].Content)

	// The second model call saw the first function's result.
	calls := p.Calls()
	require.Len(t, calls, 3)
	assert.Len(t, calls[1].Req.Messages, 3)
	assert.Len(t, calls[1].Req.Tools, 2)
}

func TestRun_MultipleCallsInOneResponseRunInOrder(t *testing.T) {
	var rec recorder
	reg := testutil.NewTestRegistry(rec.tool("tool_a", `1`), rec.tool("tool_b", `2`))
	p := &mock.Provider{Script: []mock.Step{
		{Response: mock.ToolCalls(call("c1", "tool_b", `{}`), call("c2", "tool_a", `{}`))},
		{Response: mock.Text("done")},
	}}

	res, err := newAgent(t, p, reg).Run(context.Background(), "both")
	require.NoError(t, err)
	assert.Equal(t, []string{"tool_b", "tool_a"}, rec.calls())
	require.Len(t, res.Messages, 5)
	assert.Equal(t, "c1", res.Messages[2].ToolCallID)
	assert.Equal(t, "c2", res.Messages[3].ToolCallID)
}

func TestRun_UnknownFunctionContinues(t *testing.T) {
	p := &mock.Provider{Script: []mock.Step{
		{Response: mock.ToolCalls(call("c1", "no_such_function", `{}`))},
		{Response: mock.Text("sorry")},
	}}

	res, err := newAgent(t, p, testutil.NewTestRegistry()).Run(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "sorry", res.Answer)
	require.Len(t, res.Messages, 4)
	tool := res.Messages[2]
	assert.Equal(t, llm.RoleTool, tool.Role)
	assert.Equal(t, "no_such_function", tool.Name)
	d := decodePayload(t, tool.Content)
	assert.Equal(t, KindUnknownFunction, d.Kind)
	assert.Contains(t, d.Message, "no_such_function")
	assert.False(t, d.Retryable)
}

func TestRun_InvalidArgumentsPayload(t *testing.T) {
	type args struct {
		Symbol string `json:"symbol"`
	}
	quote, err := finagent.NewTool("get_stock_price", "Quote", func(_ context.Context, a args) (map[string]string, error) {
		return map[string]string{"symbol": a.Symbol}, nil
	})
	require.NoError(t, err)
	p := &mock.Provider{Script: []mock.Step{
		{Response: mock.ToolCalls(call("c1", "get_stock_price", `{"symbol":`))},
		{Response: mock.ToolCalls(call("c2", "get_stock_price", ``))},
		{Response: mock.ToolCalls(call("c3", "get_stock_price", `{"symbol":"AAPL"}`))},
		{Response: mock.Text("ok")},
	}}

	res, err := newAgent(t, p, testutil.NewTestRegistry(quote)).Run(context.Background(), "q")
	require.NoError(t, err)
	require.Len(t, res.Messages, 8)
	assert.Equal(t, KindInvalidArguments, decodePayload(t, res.Messages[2].Content).Kind)
	// Empty arguments are treated as an empty object, which misses the required symbol.
	assert.Equal(t, KindInvalidArguments, decodePayload(t, res.Messages[4].Content).Kind)
	assert.JSONEq(t, `{"symbol":"AAPL"}`, res.Messages[6].Content)
}

func TestRun_SystemErrorIsGeneric(t *testing.T) {
	failing := &testutil.MockTool{
		NameVal: "fetch",
		ExecuteFn: func(context.Context, []byte) ([]byte, error) {
			return nil, &finagent.SystemError{Err: errors.New("dial tcp 10.0.0.1:443: secret detail")}
		},
	}
	p := &mock.Provider{Script: []mock.Step{
		{Response: mock.ToolCalls(call("c1", "fetch", `{}`))},
		{Response: mock.Text("unavailable")},
	}}

	res, err := newAgent(t, p, testutil.NewTestRegistry(failing)).Run(context.Background(), "q")
	require.NoError(t, err)
	d := decodePayload(t, res.Messages[2].Content)
	assert.Equal(t, KindExecutionFailed, d.Kind)
	assert.NotContains(t, d.Message, "secret")
}

func TestRun_PanicBecomesPayload(t *testing.T) {
	boom := &testutil.MockTool{
		NameVal:   "boom",
		ExecuteFn: func(context.Context, []byte) ([]byte, error) { panic("kaboom") },
	}
	p := &mock.Provider{Script: []mock.Step{
		{Response: mock.ToolCalls(call("c1", "boom", `{}`))},
		{Response: mock.Text("recovered")},
	}}

	res, err := newAgent(t, p, testutil.NewTestRegistry(boom)).Run(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, KindExecutionFailed, decodePayload(t, res.Messages[2].Content).Kind)
}

func TestRun_LoopBound(t *testing.T) {
	var rec recorder
	reg := testutil.NewTestRegistry(rec.tool("again", `{}`))
	p := &mock.Provider{Fallback: &mock.Step{Response: mock.ToolCalls(call("c", "again", `{}`))}}
	a := newAgent(t, p, reg, WithMaxIterations(4))

	res, err := a.Run(context.Background(), "loop forever")
	require.ErrorIs(t, err, ErrLoopBoundExceeded)
	require.NotNil(t, res)
	assert.Equal(t, StateFailed, res.State)
	assert.Len(t, p.Calls(), 4)
	assert.Equal(t, 4, res.Iterations)
	assert.Len(t, rec.calls(), 4)
	assert.Empty(t, res.Answer)
}

func TestRun_ProviderFailure(t *testing.T) {
	var rec recorder
	reg := testutil.NewTestRegistry(rec.tool("tool_a", `{}`))
	cause := errors.New("503 service unavailable")
	p := &mock.Provider{
		Script: []mock.Step{
			{Response: mock.ToolCalls(call("c1", "tool_a", `{}`))},
			{Err: cause},
		},
		Fallback: &mock.Step{Response: mock.ToolCalls(call("c2", "tool_a", `{}`))},
	}

	res, err := newAgent(t, p, reg).Run(context.Background(), "q")
	require.ErrorIs(t, err, ErrProviderUnavailable)
	require.ErrorIs(t, err, cause)
	assert.Equal(t, StateFailed, res.State)
	assert.Len(t, p.Calls(), 2)
	assert.Equal(t, []string{"tool_a"}, rec.calls())
}

func TestRun_NilResponse(t *testing.T) {
	p := &mock.Provider{Script: []mock.Step{{}}}
	_, err := newAgent(t, p, testutil.NewTestRegistry()).Run(context.Background(), "q")
	require.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestRun_CancelledBetweenIterations(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var executed int
	stopper := &testutil.MockTool{
		NameVal: "stop",
		ExecuteFn: func(context.Context, []byte) ([]byte, error) {
			executed++
			cancel()
			return []byte(`{"stopped":true}`), nil
		},
	}
	p := &mock.Provider{Fallback: &mock.Step{Response: mock.ToolCalls(call("c", "stop", `{}`))}}

	res, err := newAgent(t, p, testutil.NewTestRegistry(stopper)).Run(ctx, "q")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateFailed, res.State)
	assert.Len(t, p.Calls(), 1)
	assert.Equal(t, 1, executed)
	// The executed call stays in the history.
	require.Len(t, res.Messages, 3)
	assert.JSONEq(t, `{"stopped":true}`, res.Messages[2].Content)
}

func TestRun_AlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &mock.Provider{Fallback: &mock.Step{Response: mock.Text("never")}}

	_, err := newAgent(t, p, testutil.NewTestRegistry()).Run(ctx, "q")
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, p.Calls())
}

func TestRun_EmptyQuery(t *testing.T) {
	p := &mock.Provider{}
	a := newAgent(t, p, testutil.NewTestRegistry())
	conv := NewConversation()

	for _, q := range []string{"", "   ", "\n\t"} {
		res, err := a.Chat(context.Background(), conv, q)
		require.ErrorIs(t, err, ErrEmptyQuery)
		assert.Nil(t, res)
	}
	assert.Zero(t, conv.Len())
	assert.Empty(t, p.Calls())
}

func TestChat_ConversationCarriesAcrossTurns(t *testing.T) {
	p := &mock.Provider{Script: []mock.Step{
		{Response: mock.Text("first answer")},
		{Response: mock.Text("second answer")},
	}}
	a := newAgent(t, p, testutil.NewTestRegistry())
	conv := NewConversation()

	_, err := a.Chat(context.Background(), conv, "first")
	require.NoError(t, err)
	res, err := a.Chat(context.Background(), conv, "second")
	require.NoError(t, err)

	assert.Equal(t, "second answer", res.Answer)
	assert.Equal(t, 4, conv.Len())
	calls := p.Calls()
	require.Len(t, calls, 2)
	require.Len(t, calls[1].Req.Messages, 3)
	assert.Equal(t, "first answer", calls[1].Req.Messages[1].Content)

	conv.Reset()
	assert.Zero(t, conv.Len())
}

func TestConversation_MessagesIsCopy(t *testing.T) {
	conv := NewConversation()
	conv.append(llm.UserMessage("x"))
	msgs := conv.Messages()
	msgs[0].Content = "changed"
	assert.Equal(t, "x", conv.Messages()[0].Content)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "awaiting_model", StateAwaitingModel.String())
	assert.Equal(t, "executing", StateExecuting.String())
	assert.Equal(t, "done", StateDone.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(42).String())
	assert.True(t, StateDone.Terminal())
	assert.False(t, StateExecuting.Terminal())
}

func TestToolErrorPayload(t *testing.T) {
	d := decodePayload(t, toolErrorPayload(&finagent.ClientError{Reason: "unknown symbol", Retryable: true}))
	assert.Equal(t, KindInvalidArguments, d.Kind)
	assert.Equal(t, "invalid tool input: unknown symbol", d.Message)
	assert.True(t, d.Retryable)

	d = decodePayload(t, toolErrorPayload(finagent.ErrTimeout))
	assert.Equal(t, KindTimeout, d.Kind)
	assert.True(t, d.Retryable)

	d = decodePayload(t, toolErrorPayload(finagent.ErrShutdown))
	assert.Equal(t, KindExecutionFailed, d.Kind)
	assert.False(t, d.Retryable)
}
