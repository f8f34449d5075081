package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	. "github.com/roelfdiedericks/discordclaw/internal/logging"
	. "github.com/roelfdiedericks/discordclaw/internal/metrics"
	"github.com/roelfdiedericks/discordclaw/internal/tokens"
	"github.com/roelfdiedericks/discordclaw/internal/types"
)

// maxErrorBody caps how much of an error response is kept for the message
const maxErrorBody = 2048

// openRouterTransport adds attribution headers to OpenRouter requests
type openRouterTransport struct {
	base http.RoundTripper
}

func (t *openRouterTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("HTTP-Referer", "https://github.com/roelfdiedericks/discordclaw")
	req.Header.Set("X-Title", "discordclaw")
	if t.base == nil {
		return http.DefaultTransport.RoundTrip(req)
	}
	return t.base.RoundTrip(req)
}

// OpenAIClient speaks the OpenAI chat completions protocol with a single
// non-streaming POST. Works with OpenAI, OpenRouter, LM Studio, vLLM, Ollama's
// /v1 endpoint and anything else that follows the same wire format.
type OpenAIClient struct {
	opts   Options
	url    string
	client *http.Client
}

// NewOpenAIClient creates a client posting to <BaseURL>/chat/completions
func NewOpenAIClient(opts Options) *OpenAIClient {
	client := opts.HTTPClient
	if client == nil {
		var transport http.RoundTripper = http.DefaultTransport
		if strings.Contains(opts.BaseURL, "openrouter.ai") {
			transport = &openRouterTransport{base: http.DefaultTransport}
			L_debug("openai: using OpenRouter headers")
		}
		client = &http.Client{Timeout: opts.Timeout, Transport: transport}
	}

	return &OpenAIClient{
		opts:   opts,
		url:    strings.TrimRight(opts.BaseURL, "/") + "/chat/completions",
		client: client,
	}
}

// Model returns the configured model identifier
func (c *OpenAIClient) Model() string {
	return c.opts.Model
}

// chatResponse is the subset of the completion response we read.
// Reasoning arrives as "reasoning" (OpenRouter) or "reasoning_content" (DeepSeek, vLLM).
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role             string         `json:"role"`
			Content          string         `json:"content"`
			ToolCalls        []wireToolCall `json:"tool_calls"`
			Reasoning        string         `json:"reasoning"`
			ReasoningContent string         `json:"reasoning_content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *openai.Usage    `json:"usage"`
	Error *openai.APIError `json:"error"`
}

// wireToolCall keeps arguments raw: some servers send an object instead of a string
type wireToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

// errorEnvelope is the {error:{message}} body returned on failures
type errorEnvelope struct {
	Error *openai.APIError `json:"error"`
}

// Complete sends one completion request
func (c *OpenAIClient) Complete(ctx context.Context, turns []types.Message, defs []types.ToolDefinition) (*types.Message, error) {
	start := time.Now()
	metricTopic := "llm/openai"

	req := openai.ChatCompletionRequest{
		Model:       c.opts.Model,
		Messages:    convertToOpenAIMessages(turns),
		MaxTokens:   c.opts.MaxTokens,
		Temperature: float32(c.opts.Temperature),
	}
	if len(defs) > 0 {
		req.Tools = convertToOpenAITools(defs)
		req.ToolChoice = "auto"
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, newTransportError(0, "encode request", err)
	}

	L_debug("openai: request", "model", c.opts.Model, "turns", len(turns), "tools", len(defs),
		"estTokens", tokens.EstimateMessages(turns))

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewReader(body))
	if err != nil {
		return nil, newTransportError(0, "create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.opts.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		te := newTransportError(0, "", err)
		MetricFailWithReason(metricTopic, c.opts.Model, string(te.Type))
		L_error("openai: request failed", "url", c.url, "error", err)
		return nil, te
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		te := newTransportError(resp.StatusCode, errorMessage(raw), nil)
		MetricFailWithReason(metricTopic, c.opts.Model, string(te.Type))
		L_error("openai: non-success status", "status", resp.StatusCode, "type", te.Type, "body", string(raw))
		return nil, te
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		MetricFailWithReason(metricTopic, c.opts.Model, "decode")
		return nil, newTransportError(resp.StatusCode, "decode response", err)
	}
	if result.Error != nil && result.Error.Message != "" {
		te := newTransportError(resp.StatusCode, result.Error.Message, nil)
		MetricFailWithReason(metricTopic, c.opts.Model, string(te.Type))
		L_error("openai: error envelope in response", "message", result.Error.Message)
		return nil, te
	}
	if len(result.Choices) == 0 {
		te := newTransportError(resp.StatusCode, "response contained no choices", nil)
		te.Type = ErrorTypeEmpty
		MetricFailWithReason(metricTopic, c.opts.Model, string(te.Type))
		return nil, te
	}

	choice := result.Choices[0].Message
	msg := &types.Message{
		Role:      types.RoleAssistant,
		Content:   choice.Content,
		Reasoning: choice.Reasoning,
	}
	if msg.Reasoning == "" {
		msg.Reasoning = choice.ReasoningContent
	}
	for _, tc := range choice.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, types.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: rawArguments(tc.Function.Arguments),
		})
	}

	elapsed := time.Since(start)
	MetricDuration(metricTopic, c.opts.Model, elapsed)
	MetricSuccess(metricTopic, c.opts.Model)
	if result.Usage != nil {
		MetricAdd(metricTopic, "prompt_tokens", int64(result.Usage.PromptTokens))
		MetricAdd(metricTopic, "completion_tokens", int64(result.Usage.CompletionTokens))
	}

	L_debug("openai: response",
		"model", result.Model,
		"finish", result.Choices[0].FinishReason,
		"contentLen", len(msg.Content),
		"reasoningLen", len(msg.Reasoning),
		"toolCalls", len(msg.ToolCalls),
		"elapsed", elapsed.Round(time.Millisecond))

	return msg, nil
}

// rawArguments returns the arguments text whether it was sent as a JSON
// string (the standard) or as a bare object.
func rawArguments(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	return string(trimmed)
}

// errorMessage extracts error.message from a failure body, falling back to the raw text
func errorMessage(raw []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Error != nil && env.Error.Message != "" {
		return env.Error.Message
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "empty response body"
	}
	return text
}

// convertToOpenAIMessages maps conversation turns to wire messages.
// Empty tool results get a placeholder since some servers reject empty content.
func convertToOpenAIMessages(turns []types.Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case types.RoleSystem:
			result = append(result, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: t.Content})
		case types.RoleUser:
			result = append(result, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: t.Content})
		case types.RoleAssistant:
			msg := openai.ChatCompletionMessage{
				Role:             openai.ChatMessageRoleAssistant,
				Content:          t.Content,
				ReasoningContent: t.Reasoning,
			}
			for _, tc := range t.ToolCalls {
				args := tc.Arguments
				if strings.TrimSpace(args) == "" {
					args = "{}"
				}
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: args,
					},
				})
			}
			result = append(result, msg)
		case types.RoleTool:
			content := t.Content
			if content == "" {
				content = "(no output)"
			}
			result = append(result, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    content,
				ToolCallID: t.ToolCallID,
			})
		default:
			if t.Content != "" {
				result = append(result, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: t.Content})
			}
		}
	}
	return result
}

func convertToOpenAITools(defs []types.ToolDefinition) []openai.Tool {
	result := make([]openai.Tool, len(defs))
	for i, td := range defs {
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        td.Name,
				Description: td.Description,
				Parameters:  td.InputSchema,
			},
		}
	}
	return result
}
