package types

// ToolDefinition is the format required by LLM APIs for tool/function calling.
// This lives in types to break the llm → tools import cycle.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// ToolErrorPrefix starts every failed tool result. Providers that flag
// errors separately (Anthropic's is_error) detect failures by it.
const ToolErrorPrefix = "Error: "

// ToolCall is a model's request to run one operation.
// Arguments is the raw JSON text exactly as the model produced it and may be malformed.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}
