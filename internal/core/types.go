package core

import "time"

// Message represents a chat message in the wire format the language
// capability consumes (OpenRouter/OpenAI shape).
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// ToolDefinition describes a tool offered to the model.
type ToolDefinition struct {
	Type     string       `json:"type"`
	Function FunctionSpec `json:"function"`
}

// FunctionSpec describes the function signature.
type FunctionSpec struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  interface{} `json:"parameters,omitempty"` // JSON Schema
}

// Turn roles. ToolResult turns record a backend invocation; they are part of
// the context window but are not user-visible.
const (
	RoleUser       = "user"
	RoleAssistant  = "assistant"
	RoleToolResult = "tool-result"
)

// Turn is one immutable entry in a session's history.
type Turn struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Tool      *ToolTrace `json:"tool,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// ToolTrace records the tool invocation behind a tool-result turn.
type ToolTrace struct {
	Name      string `json:"name"`
	CallID    string `json:"call_id"`
	Arguments string `json:"arguments"` // JSON as requested by the model
	RawResult string `json:"raw_result,omitempty"`
}

// Capability classes for tool descriptors.
const (
	CapStructuredQuery    = "structured-query"
	CapSemanticRetrieval  = "semantic-retrieval"
	CapDeterministicFused = "deterministic-fusion"
)
