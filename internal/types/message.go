// Package types contains shared types used across multiple packages.
// This keeps llm, tools and gateway free of import cycles.
package types

// Conversation roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one turn of a conversation sent to or received from the model.
// An assistant message carrying ToolCalls must be followed by exactly one
// tool message per call, matched by ToolCallID.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Reasoning  string     `json:"reasoning,omitempty"` // thinking/reasoning channel, if the model returned one
	ToolCalls  []ToolCall `json:"toolCalls,omitempty"`
	ToolCallID string     `json:"toolCallId,omitempty"` // tool role only
	Name       string     `json:"name,omitempty"`       // operation name, tool role only
}

// HasToolCalls returns true if the model asked for any operations
func (m *Message) HasToolCalls() bool {
	return m != nil && len(m.ToolCalls) > 0
}

// SystemMessage builds a system turn
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// UserMessage builds a user turn
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// ToolResultMessage builds the tool turn answering call
func ToolResultMessage(call ToolCall, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: call.ID, Name: call.Name}
}
