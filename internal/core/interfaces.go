package core

import "context"

// LLMClient abstracts the language capability (OpenRouter, Azure OpenAI, a
// test stub). Given the conversation so far and the callable tools it returns
// either a final answer or one or more tool-call requests.
type LLMClient interface {
	ChatCompletion(ctx context.Context, messages []Message) (string, error)
	ChatCompletionWithTools(ctx context.Context, messages []Message, tools []ToolDefinition) (string, []ToolCall, error)
}

// EmbeddingClient abstracts embedding APIs. How vectors are computed is out
// of scope here; the knowledge backend only consumes them.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
