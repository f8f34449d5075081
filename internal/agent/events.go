package agent

import "encoding/json"

// AgentEvent is the interface for all events emitted during an agent run
type AgentEvent interface {
	agentEvent() // marker method
}

// EventAgentStart is emitted when a run begins
type EventAgentStart struct {
	RunID  string `json:"runId"`
	Source string `json:"source"`
}

func (EventAgentStart) agentEvent() {}

// EventRoundStart is emitted before the tool calls of a round execute
type EventRoundStart struct {
	RunID string `json:"runId"`
	Depth int    `json:"depth"`
	Calls int    `json:"calls"`
}

func (EventRoundStart) agentEvent() {}

// EventToolStart is emitted when a tool execution begins
type EventToolStart struct {
	RunID    string          `json:"runId"`
	ToolName string          `json:"toolName"`
	ToolID   string          `json:"toolId"`
	Input    json.RawMessage `json:"input"`
}

func (EventToolStart) agentEvent() {}

// EventToolEnd is emitted when a tool execution completes
type EventToolEnd struct {
	RunID      string `json:"runId"`
	ToolName   string `json:"toolName"`
	ToolID     string `json:"toolId"`
	Result     string `json:"result"`
	Failed     bool   `json:"failed,omitempty"`
	DurationMs int64  `json:"durationMs,omitempty"`
}

func (EventToolEnd) agentEvent() {}

// EventThinking carries the model's reasoning channel for a completion, when present
type EventThinking struct {
	RunID   string `json:"runId"`
	Content string `json:"content"`
}

func (EventThinking) agentEvent() {}

// EventAgentEnd is emitted when a run completes successfully
type EventAgentEnd struct {
	RunID     string  `json:"runId"`
	FinalText string  `json:"finalText"`
	Rounds    int     `json:"rounds"`
	Outcome   Outcome `json:"outcome"`
}

func (EventAgentEnd) agentEvent() {}

// EventAgentError is emitted when a run fails
type EventAgentError struct {
	RunID string `json:"runId"`
	Error string `json:"error"`
}

func (EventAgentError) agentEvent() {}
