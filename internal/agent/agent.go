// Package agent runs the tool-invocation loop: ask the model, execute the
// operations it requests, feed the results back, repeat until it answers.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	. "github.com/roelfdiedericks/discordclaw/internal/logging"
	. "github.com/roelfdiedericks/discordclaw/internal/metrics"
	"github.com/roelfdiedericks/discordclaw/internal/tools"
	"github.com/roelfdiedericks/discordclaw/internal/types"
)

// DefaultMaxDepth bounds tool rounds per run
const DefaultMaxDepth = 5

// Fixed texts returned when the model gives nothing usable
const (
	GenericAcknowledgement = "Done."
	DepthExceededNotice    = "I hit my limit of tool calls before finishing. Try a narrower request."
)

// Outcome describes how a run ended
type Outcome string

const (
	OutcomeAnswered      Outcome = "answered"
	OutcomeDepthExceeded Outcome = "depth_exceeded"
)

// Completer obtains one completion; llm.Client satisfies it
type Completer interface {
	Complete(ctx context.Context, turns []types.Message, defs []types.ToolDefinition) (*types.Message, error)
}

// ToolExecutor runs one operation and always returns text; tools.Executor satisfies it
type ToolExecutor interface {
	Execute(ctx context.Context, name string, args map[string]any) string
}

// Options configure an Agent
type Options struct {
	LLM         Completer
	Executor    ToolExecutor
	Definitions []types.ToolDefinition // defaults to tools.Definitions()
	MaxDepth    int                    // defaults to DefaultMaxDepth
}

// Agent is safe for concurrent use; each Run owns its own LoopState
type Agent struct {
	llm      Completer
	exec     ToolExecutor
	defs     []types.ToolDefinition
	maxDepth int
}

// New creates an Agent
func New(opts Options) *Agent {
	defs := opts.Definitions
	if defs == nil {
		defs = tools.Definitions()
	}
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Agent{
		llm:      opts.LLM,
		exec:     opts.Executor,
		defs:     defs,
		maxDepth: maxDepth,
	}
}

// MaxDepth returns the configured bound
func (a *Agent) MaxDepth() int {
	return a.maxDepth
}

// AgentRequest is one inbound message to answer
type AgentRequest struct {
	SystemPrompt string
	Text         string
	Source       string // where the request came from, for logs
}

// LoopState is the conversation and depth of a single run
type LoopState struct {
	Turns    []types.Message
	Depth    int
	MaxDepth int
}

// RunResult is the outcome of a successful run
type RunResult struct {
	RunID   string
	Text    string
	Rounds  int
	Outcome Outcome
}

// Run answers req. Transport errors from the model are returned unchanged
// and nothing is delivered anywhere by the loop itself.
// events may be nil; when set it receives progress and is closed on return.
func (a *Agent) Run(ctx context.Context, req AgentRequest, events chan<- AgentEvent) (*RunResult, error) {
	if events != nil {
		defer close(events)
	}

	runID := uuid.New().String()
	start := time.Now()
	emit := func(ev AgentEvent) {
		if events == nil {
			return
		}
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}

	emit(EventAgentStart{RunID: runID, Source: req.Source})
	L_info("agent: run started", "runID", runID, "source", req.Source, "textLen", len(req.Text))

	state := &LoopState{MaxDepth: a.maxDepth}
	if req.SystemPrompt != "" {
		state.Turns = append(state.Turns, types.SystemMessage(req.SystemPrompt))
	}
	state.Turns = append(state.Turns, types.UserMessage(req.Text))

	fail := func(err error) (*RunResult, error) {
		L_error("agent: run failed", "runID", runID, "depth", state.Depth, "error", err)
		MetricOutcome("agent", "run", "error")
		emit(EventAgentError{RunID: runID, Error: err.Error()})
		return nil, err
	}

	current, err := a.llm.Complete(ctx, state.Turns, a.defs)
	if err != nil {
		return fail(err)
	}

	var text string
	var outcome Outcome
	for {
		if current.Reasoning != "" {
			emit(EventThinking{RunID: runID, Content: current.Reasoning})
		}

		calls := current.ToolCalls
		recovered := false
		if len(calls) == 0 {
			call, ok := recoverToolIntent(current.Content)
			if !ok {
				text = finalText(current)
				outcome = OutcomeAnswered
				break
			}
			recovered = true
			calls = []types.ToolCall{call}
		}

		if state.Depth >= state.MaxDepth {
			text = bestText(current, recovered)
			outcome = OutcomeDepthExceeded
			L_warn("agent: depth limit reached", "runID", runID, "maxDepth", state.MaxDepth, "pendingCalls", len(calls))
			break
		}

		calls = ensureCallIDs(calls)
		assistant := *current
		assistant.ToolCalls = calls
		if recovered {
			assistant.Content = ""
		}

		emit(EventRoundStart{RunID: runID, Depth: state.Depth + 1, Calls: len(calls)})
		results := a.executeRound(ctx, runID, calls, emit)

		state.Turns = append(state.Turns, assistant)
		state.Turns = append(state.Turns, results...)

		current, err = a.llm.Complete(ctx, state.Turns, a.defs)
		if err != nil {
			return fail(err)
		}
		state.Depth++
	}

	MetricOutcome("agent", "run", string(outcome))
	MetricAdd("agent", "rounds", int64(state.Depth))
	MetricDuration("agent", "run", time.Since(start))
	L_info("agent: run finished", "runID", runID, "outcome", outcome, "rounds", state.Depth,
		"textLen", len(text), "elapsed", time.Since(start).Round(time.Millisecond))

	emit(EventAgentEnd{RunID: runID, FinalText: text, Rounds: state.Depth, Outcome: outcome})
	return &RunResult{RunID: runID, Text: text, Rounds: state.Depth, Outcome: outcome}, nil
}

// executeRound runs calls in order and returns exactly one tool turn per call
func (a *Agent) executeRound(ctx context.Context, runID string, calls []types.ToolCall, emit func(AgentEvent)) []types.Message {
	results := make([]types.Message, 0, len(calls))
	for _, call := range calls {
		args := decodeArguments(call)
		normalized := tools.Normalize(call.Name, args)

		input, _ := json.Marshal(normalized)
		emit(EventToolStart{RunID: runID, ToolName: call.Name, ToolID: call.ID, Input: input})

		start := time.Now()
		out := a.exec.Execute(ctx, call.Name, normalized)
		elapsed := time.Since(start)

		failed := strings.HasPrefix(out, tools.ErrorPrefix)
		L_debug("agent: tool finished", "runID", runID, "tool", call.Name, "id", call.ID,
			"failed", failed, "resultLen", len(out), "elapsed", elapsed.Round(time.Millisecond))
		emit(EventToolEnd{RunID: runID, ToolName: call.Name, ToolID: call.ID, Result: out, Failed: failed, DurationMs: elapsed.Milliseconds()})

		results = append(results, types.ToolResultMessage(call, out))
	}
	return results
}

// decodeArguments parses the raw argument text. Malformed or non-object
// arguments become an empty map so the operation reports what is missing.
func decodeArguments(call types.ToolCall) map[string]any {
	raw := strings.TrimSpace(call.Arguments)
	if raw == "" {
		return map[string]any{}
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber() // keep snowflake IDs exact
	var args map[string]any
	if err := dec.Decode(&args); err != nil || args == nil {
		L_warn("agent: could not decode tool arguments", "tool", call.Name, "id", call.ID, "error", err)
		return map[string]any{}
	}
	return args
}

// ensureCallIDs fills in missing or repeated call IDs so every result pairs
// with exactly one call.
func ensureCallIDs(calls []types.ToolCall) []types.ToolCall {
	out := make([]types.ToolCall, len(calls))
	seen := make(map[string]bool, len(calls))
	for i, c := range calls {
		if c.ID == "" || seen[c.ID] {
			c.ID = fmt.Sprintf("call_%s", uuid.New().String())
		}
		seen[c.ID] = true
		out[i] = c
	}
	return out
}

// finalText picks the user-facing answer: cleaned content, else cleaned
// reasoning, else a generic acknowledgement.
func finalText(m *types.Message) string {
	if s := cleanAnswer(m.Content); s != "" {
		return s
	}
	if s := cleanAnswer(m.Reasoning); s != "" {
		return s
	}
	return GenericAcknowledgement
}

// bestText is the answer used when the depth limit stops the loop
func bestText(m *types.Message, contentIsToolIntent bool) string {
	if !contentIsToolIntent {
		if s := cleanAnswer(m.Content); s != "" {
			return s
		}
	}
	if s := cleanAnswer(m.Reasoning); s != "" {
		return s
	}
	return DepthExceededNotice
}
