package finagent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestToolCall_Fields(t *testing.T) {
	call := ToolCall{ID: "call_1", ToolName: "get_stock_price", Args: []byte(`{"symbol":"AAPL"}`)}
	assert.Equal(t, "call_1", call.ID)
	assert.Equal(t, "get_stock_price", call.ToolName)
	assert.JSONEq(t, `{"symbol":"AAPL"}`, string(call.Args))
}

// minTool is a minimal Tool used by middleware and registry tests.
type minTool struct {
	name, desc string
	params     map[string]any
	execute    func(context.Context, []byte) ([]byte, error)
}

func (m *minTool) Name() string               { return m.name }
func (m *minTool) Description() string        { return m.desc }
func (m *minTool) Parameters() map[string]any { return m.params }
func (m *minTool) Execute(ctx context.Context, args []byte) ([]byte, error) {
	if m.execute != nil {
		return m.execute(ctx, args)
	}
	return []byte(`{}`), nil
}

var _ Tool = (*minTool)(nil)
