package llm

// Message roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message represents a single message in a conversation history.
type Message struct {
	// Role is one of RoleSystem, RoleUser, RoleAssistant or RoleTool.
	Role string

	// Content is the text content of the message. For RoleTool it is the
	// JSON-encoded function result or error payload.
	Content string

	// Name is the function name on RoleTool messages.
	Name string

	// ToolCalls contains the invocations requested by the assistant.
	ToolCalls []ToolCall

	// ToolCallID is set when Role is RoleTool, identifying the call it answers.
	ToolCallID string
}

// ToolCall represents a function invocation requested by the model.
type ToolCall struct {
	// ID is the provider-assigned identifier of this call.
	ID string

	// Name is the function name.
	Name string

	// Arguments is the JSON-encoded arguments string, exactly as produced by the model.
	Arguments string
}

// ToolDefinition describes a function that can be offered to the model.
type ToolDefinition struct {
	Name        string
	Description string
	// Parameters is the JSON Schema of the function's arguments.
	Parameters map[string]any
}

// UserMessage is shorthand for a RoleUser message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage is shorthand for a RoleAssistant message.
func AssistantMessage(content string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// ToolResultMessage is shorthand for a RoleTool message answering callID.
func ToolResultMessage(callID, name, content string) Message {
	return Message{Role: RoleTool, Content: content, Name: name, ToolCallID: callID}
}
