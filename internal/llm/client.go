// Package llm talks to hosted completion APIs.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/roelfdiedericks/discordclaw/internal/types"
)

// Client obtains one completion for a conversation.
// Every failure to get a usable completion is returned as *TransportError.
// Implementations never retry.
type Client interface {
	Complete(ctx context.Context, turns []types.Message, defs []types.ToolDefinition) (*types.Message, error)
	Model() string
}

// Driver names
const (
	DriverOpenAI    = "openai"
	DriverAnthropic = "anthropic"
)

// Defaults applied by New when an option is zero
const (
	DefaultBaseURL   = "https://openrouter.ai/api/v1"
	DefaultMaxTokens = 1024
	DefaultTimeout   = 120 * time.Second
)

// Options configure a Client
type Options struct {
	Driver      string // "openai" (default) or "anthropic"
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	HTTPClient  *http.Client // optional, used by tests
}

// New creates a Client for opts.Driver
func New(opts Options) (Client, error) {
	if strings.TrimSpace(opts.Model) == "" {
		return nil, fmt.Errorf("llm: model is required")
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", DriverOpenAI:
		if opts.BaseURL == "" {
			opts.BaseURL = DefaultBaseURL
		}
		return NewOpenAIClient(opts), nil
	case DriverAnthropic:
		return NewAnthropicClient(opts), nil
	default:
		return nil, fmt.Errorf("llm: unknown driver %q (want %q or %q)", opts.Driver, DriverOpenAI, DriverAnthropic)
	}
}
