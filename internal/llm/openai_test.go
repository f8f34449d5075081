package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roelfdiedericks/discordclaw/internal/types"
)

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAIClient(Options{
		BaseURL:     srv.URL + "/v1/",
		APIKey:      "sk-test",
		Model:       "test-model",
		MaxTokens:   256,
		Temperature: 0.7,
		HTTPClient:  srv.Client(),
	})
}

func testTurns() []types.Message {
	return []types.Message{
		types.SystemMessage("you are a bot"),
		types.UserMessage("what's new in #general?"),
	}
}

func testDefs() []types.ToolDefinition {
	return []types.ToolDefinition{{
		Name:        "read_messages",
		Description: "Read messages",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{"channel": map[string]any{"type": "string"}}},
	}}
}

func TestOpenAIRequestShape(t *testing.T) {
	var got map[string]any
	client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"hi"}}]}`)
	})

	_, err := client.Complete(context.Background(), testTurns(), testDefs())
	require.NoError(t, err)

	assert.Equal(t, "test-model", got["model"])
	assert.Equal(t, float64(256), got["max_tokens"])
	assert.InDelta(t, 0.7, got["temperature"], 0.001)
	assert.Equal(t, "auto", got["tool_choice"])
	assert.Len(t, got["tools"], 1)
	assert.Len(t, got["messages"], 2)
}

func TestOpenAIOmitsToolsWhenNone(t *testing.T) {
	var got map[string]any
	client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	})

	_, err := client.Complete(context.Background(), testTurns(), nil)
	require.NoError(t, err)
	assert.NotContains(t, got, "tools")
	assert.NotContains(t, got, "tool_choice")
}

func TestOpenAIParsesToolCallsAndReasoning(t *testing.T) {
	client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{
			"choices":[{"message":{
				"role":"assistant",
				"content":null,
				"reasoning":"thinking about channels",
				"tool_calls":[
					{"id":"call_1","type":"function","function":{"name":"read_messages","arguments":"{\"channel\":\"general\"}"}},
					{"id":"call_2","type":"function","function":{"name":"list_servers","arguments":{}}}
				]
			}}],
			"usage":{"prompt_tokens":10,"completion_tokens":3,"total_tokens":13}
		}`)
	})

	msg, err := client.Complete(context.Background(), testTurns(), testDefs())
	require.NoError(t, err)
	assert.Equal(t, "", msg.Content)
	assert.Equal(t, "thinking about channels", msg.Reasoning)
	require.Len(t, msg.ToolCalls, 2)
	assert.Equal(t, types.ToolCall{ID: "call_1", Name: "read_messages", Arguments: `{"channel":"general"}`}, msg.ToolCalls[0])
	assert.Equal(t, "{}", msg.ToolCalls[1].Arguments)
}

func TestOpenAIReasoningContentFallback(t *testing.T) {
	client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"","reasoning_content":"deep thoughts"}}]}`)
	})
	msg, err := client.Complete(context.Background(), testTurns(), nil)
	require.NoError(t, err)
	assert.Equal(t, "deep thoughts", msg.Reasoning)
}

func TestOpenAITransportErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType ErrorType
		wantMsg  string
	}{
		{"server error", 500, `{"error":{"message":"upstream exploded"}}`, ErrorTypeUnknown, "upstream exploded"},
		{"rate limited", 429, `{"error":{"message":"slow down"}}`, ErrorTypeRateLimit, "slow down"},
		{"auth", 401, `not json`, ErrorTypeAuth, "not json"},
		{"overloaded text", 500, `{"error":{"message":"model is overloaded"}}`, ErrorTypeOverloaded, "overloaded"},
		{"envelope on 200", 200, `{"error":{"message":"no endpoints found"}}`, ErrorTypeUnknown, "no endpoints found"},
		{"empty choices", 200, `{"choices":[]}`, ErrorTypeEmpty, "no choices"},
		{"garbage on 200", 200, `<html>`, ErrorTypeUnknown, "decode response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			msg, err := client.Complete(context.Background(), testTurns(), nil)
			assert.Nil(t, msg)
			var te *TransportError
			require.True(t, errors.As(err, &te), "got %T: %v", err, err)
			assert.Equal(t, tt.status, te.StatusCode)
			assert.Equal(t, tt.wantType, te.Type)
			assert.Contains(t, te.Error(), tt.wantMsg)
		})
	}
}

func TestOpenAIUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewOpenAIClient(Options{BaseURL: url, Model: "m", Timeout: DefaultTimeout})
	_, err := client.Complete(context.Background(), testTurns(), nil)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 0, te.StatusCode)
	assert.Equal(t, ErrorTypeUnreachable, te.Type)
	assert.True(t, IsTransportError(err))
}

func TestConvertToOpenAIMessages(t *testing.T) {
	turns := []types.Message{
		types.SystemMessage("sys"),
		types.UserMessage("hi"),
		{Role: types.RoleAssistant, ToolCalls: []types.ToolCall{{ID: "a", Name: "list_servers"}}},
		{Role: types.RoleTool, ToolCallID: "a", Content: ""},
	}
	out := convertToOpenAIMessages(turns)
	require.Len(t, out, 4)
	assert.Equal(t, "system", out[0].Role)
	assert.Equal(t, "{}", out[2].ToolCalls[0].Function.Arguments)
	assert.Equal(t, "tool", out[3].Role)
	assert.Equal(t, "a", out[3].ToolCallID)
	assert.Equal(t, "(no output)", out[3].Content)
}

func TestRawArguments(t *testing.T) {
	assert.Equal(t, "", rawArguments(nil))
	assert.Equal(t, "", rawArguments(json.RawMessage("null")))
	assert.Equal(t, `{"a":1}`, rawArguments(json.RawMessage(`"{\"a\":1}"`)))
	assert.Equal(t, `{"a":1}`, rawArguments(json.RawMessage(`{"a":1}`)))
}

func TestNewSelectsDriver(t *testing.T) {
	c, err := New(Options{Model: "m"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, c)

	c, err = New(Options{Driver: "Anthropic", Model: "claude"})
	require.NoError(t, err)
	assert.IsType(t, &AnthropicClient{}, c)

	_, err = New(Options{Driver: "carrier-pigeon", Model: "m"})
	assert.Error(t, err)

	_, err = New(Options{})
	assert.Error(t, err)
}
