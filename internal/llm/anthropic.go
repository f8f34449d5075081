package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	. "github.com/roelfdiedericks/discordclaw/internal/logging"
	. "github.com/roelfdiedericks/discordclaw/internal/metrics"
	"github.com/roelfdiedericks/discordclaw/internal/types"
)

// AnthropicClient uses the Anthropic Messages API through the official SDK
type AnthropicClient struct {
	opts   Options
	client anthropic.Client
}

// NewAnthropicClient creates a client; retries are disabled so failures
// surface immediately as TransportError.
func NewAnthropicClient(opts Options) *AnthropicClient {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &AnthropicClient{
		opts:   opts,
		client: anthropic.NewClient(reqOpts...),
	}
}

// Model returns the configured model identifier
func (c *AnthropicClient) Model() string {
	return c.opts.Model
}

// Complete sends one non-streaming Messages request
func (c *AnthropicClient) Complete(ctx context.Context, turns []types.Message, defs []types.ToolDefinition) (*types.Message, error) {
	start := time.Now()
	metricTopic := "llm/anthropic"

	system, messages := convertToAnthropicMessages(turns)
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.opts.Model),
		MaxTokens:   int64(c.opts.MaxTokens),
		Messages:    messages,
		Temperature: anthropic.Float(c.opts.Temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(defs) > 0 {
		params.Tools = convertToAnthropicTools(defs)
	}

	L_debug("anthropic: request", "model", c.opts.Model, "messages", len(messages), "tools", len(defs))

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		te := anthropicTransportError(err)
		MetricFailWithReason(metricTopic, c.opts.Model, string(te.Type))
		L_error("anthropic: request failed", "status", te.StatusCode, "type", te.Type, "error", err)
		return nil, te
	}

	msg := &types.Message{Role: types.RoleAssistant}
	var text, thinking strings.Builder
	for _, block := range resp.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(variant.Text)
		case anthropic.ThinkingBlock:
			thinking.WriteString(variant.Thinking)
		case anthropic.ToolUseBlock:
			input, _ := json.Marshal(variant.Input)
			msg.ToolCalls = append(msg.ToolCalls, types.ToolCall{
				ID:        variant.ID,
				Name:      variant.Name,
				Arguments: string(input),
			})
		}
	}
	msg.Content = text.String()
	msg.Reasoning = thinking.String()

	elapsed := time.Since(start)
	MetricDuration(metricTopic, c.opts.Model, elapsed)
	MetricSuccess(metricTopic, c.opts.Model)
	MetricAdd(metricTopic, "prompt_tokens", resp.Usage.InputTokens)
	MetricAdd(metricTopic, "completion_tokens", resp.Usage.OutputTokens)

	L_debug("anthropic: response",
		"stopReason", resp.StopReason,
		"inputTokens", resp.Usage.InputTokens,
		"outputTokens", resp.Usage.OutputTokens,
		"toolCalls", len(msg.ToolCalls),
		"elapsed", elapsed.Round(time.Millisecond))

	return msg, nil
}

func anthropicTransportError(err error) *TransportError {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return newTransportError(apiErr.StatusCode, apiErr.Error(), err)
	}
	return newTransportError(0, "", err)
}

// convertToAnthropicMessages splits out the system prompt and groups turns
// the way the Messages API wants them: tool calls become tool_use blocks on
// the assistant message and consecutive tool results share one user message.
func convertToAnthropicMessages(turns []types.Message) (string, []anthropic.MessageParam) {
	var system []string
	var result []anthropic.MessageParam
	var pendingResults []anthropic.ContentBlockParamUnion

	flushResults := func() {
		if len(pendingResults) > 0 {
			result = append(result, anthropic.NewUserMessage(pendingResults...))
			pendingResults = nil
		}
	}

	for _, t := range turns {
		switch t.Role {
		case types.RoleSystem:
			system = append(system, t.Content)

		case types.RoleUser:
			flushResults()
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(t.Content)))

		case types.RoleAssistant:
			flushResults()
			var blocks []anthropic.ContentBlockParamUnion
			if strings.TrimSpace(t.Content) != "" {
				blocks = append(blocks, anthropic.NewTextBlock(t.Content))
			}
			for _, tc := range t.ToolCalls {
				var input any = map[string]any{}
				if strings.TrimSpace(tc.Arguments) != "" {
					var decoded map[string]any
					if err := json.Unmarshal([]byte(tc.Arguments), &decoded); err == nil {
						input = decoded
					}
				}
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    tc.ID,
						Name:  tc.Name,
						Input: input,
					},
				})
			}
			if len(blocks) == 0 {
				blocks = append(blocks, anthropic.NewTextBlock("(empty)"))
			}
			result = append(result, anthropic.NewAssistantMessage(blocks...))

		case types.RoleTool:
			content := t.Content
			if content == "" {
				content = "(no output)"
			}
			isError := strings.HasPrefix(content, types.ToolErrorPrefix)
			pendingResults = append(pendingResults, anthropic.NewToolResultBlock(t.ToolCallID, content, isError))
		}
	}
	flushResults()

	return strings.Join(system, "\n\n"), result
}

func convertToAnthropicTools(defs []types.ToolDefinition) []anthropic.ToolUnionParam {
	result := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		result = append(result, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        def.Name,
				Description: anthropic.String(def.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: def.InputSchema["properties"],
					Required:   requiredFields(def.InputSchema["required"]),
				},
			},
		})
	}
	return result
}

// requiredFields reads the schema's required list, which is []string when
// built in-process and []any after a JSON round trip
func requiredFields(v any) []string {
	switch r := v.(type) {
	case []string:
		return r
	case []any:
		out := make([]string, 0, len(r))
		for _, name := range r {
			if s, ok := name.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
