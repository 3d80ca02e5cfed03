package finagent

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raw(s string) json.RawMessage { return []byte(s) }

type doubleArgs struct {
	X int `json:"x"`
}

type doubleResult struct {
	Y int `json:"y"`
}

func newDoubleTool(t *testing.T, name string) Tool {
	t.Helper()
	tool, err := NewTool(name, "Double x", func(_ context.Context, a doubleArgs) (doubleResult, error) {
		return doubleResult{Y: a.X * 2}, nil
	})
	require.NoError(t, err)
	return tool
}

func TestRegistry_Register_Execute(t *testing.T) {
	reg := NewRegistry(WithDefaultTimeout(time.Second), WithRecoverPanics(true))
	require.NoError(t, reg.Register(newDoubleTool(t, "double")))
	all := reg.GetAllTools()
	require.Len(t, all, 1)
	res := reg.Execute(context.Background(), ToolCall{
		ID: "1", ToolName: "double", Args: raw(`{"x": 7}`),
	})
	require.NoError(t, res.Error)
	require.NotNil(t, res.Result)
	assert.Equal(t, "1", res.CallID)
	assert.Equal(t, "double", res.ToolName)
	var out doubleResult
	require.NoError(t, json.Unmarshal(res.Result, &out))
	assert.Equal(t, 14, out.Y)
}

func TestRegistry_Lookup(t *testing.T) {
	tool := newDoubleTool(t, "double")
	reg := NewRegistry()
	require.NoError(t, reg.Register(tool))
	got, err := reg.Lookup("double")
	require.NoError(t, err)
	require.Same(t, tool, got)
	_, err = reg.Lookup("missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestRegistry_Register_Duplicate(t *testing.T) {
	first := newDoubleTool(t, "double")
	reg := NewRegistry()
	require.NoError(t, reg.Register(first))

	err := reg.Register(newDoubleTool(t, "double"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateTool)
	assert.ErrorIs(t, err, ErrConfiguration)

	// The registry keeps its prior state.
	require.Len(t, reg.GetAllTools(), 1)
	got, err := reg.Lookup("double")
	require.NoError(t, err)
	assert.Same(t, first, got)
}

func TestRegistry_Register_Invalid(t *testing.T) {
	reg := NewRegistry()
	err := reg.Register(nil)
	assert.ErrorIs(t, err, ErrInvalidTool)
	err = reg.Register(&minTool{name: "bad name"})
	assert.ErrorIs(t, err, ErrInvalidTool)
	assert.Empty(t, reg.GetAllTools())
}

func TestRegistry_Seal(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(newDoubleTool(t, "double")))
	assert.False(t, reg.Sealed())
	reg.Seal()
	reg.Seal()
	assert.True(t, reg.Sealed())

	err := reg.Register(newDoubleTool(t, "triple"))
	assert.ErrorIs(t, err, ErrRegistrySealed)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.ErrorIs(t, reg.Use(WithMaxArgsSize(1024)), ErrRegistrySealed)

	res := reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "double", Args: raw(`{"x":2}`)})
	require.NoError(t, res.Error)
}

func TestRegistry_MustRegister_Panics(t *testing.T) {
	reg := NewRegistry()
	assert.Panics(t, func() {
		reg.MustRegister(newDoubleTool(t, "double"), newDoubleTool(t, "double"))
	})
	assert.Len(t, reg.GetAllTools(), 1)
}

func TestRegistry_GetAllTools_Sorted(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(newDoubleTool(t, "zeta"), newDoubleTool(t, "alpha"), newDoubleTool(t, "mid"))
	var names []string
	for _, tool := range reg.GetAllTools() {
		names = append(names, tool.Name())
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)
}

func TestRegistry_Execute_ToolNotFound(t *testing.T) {
	var hooked ToolResult
	reg := NewRegistry(WithOnAfterExecute(func(_ context.Context, _ ToolCall, res ToolResult, _ time.Duration) {
		hooked = res
	}))
	res := reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "missing", Args: raw("{}")})
	require.Error(t, res.Error)
	assert.ErrorIs(t, res.Error, ErrToolNotFound)
	assert.ErrorIs(t, hooked.Error, ErrToolNotFound)
}

func TestRegistry_Execute_PanicRecovery(t *testing.T) {
	tool, err := NewTool("panic", "Panics", func(_ context.Context, _ doubleArgs) (struct{}, error) {
		panic("oops")
	})
	require.NoError(t, err)
	reg := NewRegistry(WithRecoverPanics(true))
	require.NoError(t, reg.Register(tool))
	res := reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "panic", Args: raw(`{"x": 1}`)})
	require.Error(t, res.Error)
	var se *SystemError
	require.ErrorAs(t, res.Error, &se)
	assert.Contains(t, se.Err.Error(), "oops")
}

func TestRegistry_Execute_Timeout(t *testing.T) {
	tool, err := NewTool("slow", "Slow", func(ctx context.Context, _ doubleArgs) (struct{}, error) {
		<-ctx.Done()
		return struct{}{}, ctx.Err()
	})
	require.NoError(t, err)
	reg := NewRegistry(WithDefaultTimeout(10 * time.Millisecond))
	require.NoError(t, reg.Register(tool))
	res := reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "slow", Args: raw(`{"x": 1}`)})
	require.Error(t, res.Error)
	assert.ErrorIs(t, res.Error, ErrTimeout)
}

func TestRegistry_Execute_PerToolTimeoutOverridesDefault(t *testing.T) {
	tool, err := NewTool("slow", "Slow", func(ctx context.Context, _ doubleArgs) (struct{}, error) {
		<-ctx.Done()
		return struct{}{}, ctx.Err()
	}, WithTimeout(5*time.Millisecond))
	require.NoError(t, err)
	reg := NewRegistry(WithDefaultTimeout(time.Minute))
	require.NoError(t, reg.Register(tool))
	start := time.Now()
	res := reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "slow", Args: raw(`{"x": 1}`)})
	assert.ErrorIs(t, res.Error, ErrTimeout)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestRegistry_Hooks(t *testing.T) {
	var before, after atomic.Int32
	var afterRes ToolResult
	reg := NewRegistry(
		WithOnBeforeExecute(func(_ context.Context, call ToolCall) {
			assert.Equal(t, "double", call.ToolName)
			before.Add(1)
		}),
		WithOnAfterExecute(func(_ context.Context, _ ToolCall, res ToolResult, dur time.Duration) {
			after.Add(1)
			afterRes = res
			assert.GreaterOrEqual(t, dur, time.Duration(0))
		}),
	)
	require.NoError(t, reg.Register(newDoubleTool(t, "double")))
	res := reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "double", Args: raw(`{"x": 3}`)})
	require.NoError(t, res.Error)
	assert.Equal(t, int32(1), before.Load())
	assert.Equal(t, int32(1), after.Load())
	assert.JSONEq(t, `{"y":6}`, string(afterRes.Result))
}

func TestRegistry_Shutdown(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(newDoubleTool(t, "double")))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, reg.Shutdown(ctx))
	require.NoError(t, reg.Shutdown(ctx))
	res := reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "double", Args: raw(`{"x":1}`)})
	assert.ErrorIs(t, res.Error, ErrShutdown)
}

func TestRegistry_Shutdown_InFlight(t *testing.T) {
	started := make(chan struct{})
	done := make(chan struct{})
	tool, err := NewTool("slow", "Slow", func(_ context.Context, _ doubleArgs) (struct{}, error) {
		close(started)
		time.Sleep(50 * time.Millisecond)
		close(done)
		return struct{}{}, nil
	})
	require.NoError(t, err)
	reg := NewRegistry(WithDefaultTimeout(5 * time.Second))
	require.NoError(t, reg.Register(tool))
	var wg sync.WaitGroup
	wg.Go(func() {
		reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "slow", Args: raw(`{"x":1}`)})
	})
	<-started
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, reg.Shutdown(ctx))
	select {
	case <-done:
	default:
		t.Fatal("in-flight execution should have completed before Shutdown returned")
	}
	wg.Wait()
}

func TestRegistry_Execute_CancelledContext(t *testing.T) {
	reg := NewRegistry(WithDefaultTimeout(time.Second))
	require.NoError(t, reg.Register(newDoubleTool(t, "double")))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := reg.Execute(ctx, ToolCall{ID: "1", ToolName: "double", Args: raw(`{"x": 1}`)})
	require.Error(t, res.Error)
	assert.True(t, errors.Is(res.Error, context.Canceled) || errors.Is(res.Error, ErrTimeout),
		"expected context.Canceled or ErrTimeout, got %v", res.Error)
}

func TestRegistry_MaxConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	tool, err := NewTool("slow", "Slow", func(ctx context.Context, _ doubleArgs) (struct{}, error) {
		n := running.Add(1)
		defer running.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		select {
		case <-ctx.Done():
			return struct{}{}, ctx.Err()
		case <-time.After(20 * time.Millisecond):
			return struct{}{}, nil
		}
	})
	require.NoError(t, err)
	reg := NewRegistry(WithMaxConcurrency(1), WithDefaultTimeout(5*time.Second))
	require.NoError(t, reg.Register(tool))
	var wg sync.WaitGroup
	for range 4 {
		wg.Go(func() {
			res := reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "slow", Args: raw(`{"x":1}`)})
			assert.NoError(t, res.Error)
		})
	}
	wg.Wait()
	assert.Equal(t, int32(1), peak.Load())
}
