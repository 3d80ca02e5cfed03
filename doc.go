// Package finagent provides the tool registry behind the financial
// function-calling agent: typed Go functions are described to the model as
// JSON Schema and executed safely when the model asks for them.
//
// # Overview
//
// The model produces function calls as JSON. This package turns that JSON into
// concrete Go function calls: unmarshal → validate (against the same JSON Schema
// shown to the model) → execute → marshal result, or return a clear error the
// model can use to correct itself.
//
// Pipeline: Go function + argument struct → NewTool (reflection + schema) → Tool →
// Registry → Execute (unmarshal, validate, call, marshal) → ToolResult.
//
// # Key concepts
//
//   - Single Source of Truth: one set of struct tags drives both the schema sent
//     to the model and the validation of incoming JSON.
//   - Startup wiring: names are unique and checked at Register time; a sealed
//     Registry is read-only and safe to share between conversations.
//   - Self-Correction: ClientError carries human-readable messages back to the model.
//
// # Example
//
//	type Args struct { Symbol string `json:"symbol"` }
//	type Out  struct { Price float64 `json:"price"` }
//	tool, err := finagent.NewTool("get_stock_price", "Get current stock price", func(_ context.Context, a Args) (Out, error) {
//	    return Out{Price: 187.3}, nil
//	})
//	if err != nil { ... }
//	reg := finagent.NewRegistry()
//	if err := reg.Register(tool); err != nil { ... }
//	res := reg.Execute(ctx, finagent.ToolCall{ID: "1", ToolName: "get_stock_price", Args: []byte(`{"symbol":"AAPL"}`)})
package finagent
