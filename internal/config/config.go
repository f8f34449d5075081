// Package config loads discordclaw configuration from a file and the environment.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config represents the merged discordclaw configuration
type Config struct {
	Discord  DiscordConfig  `json:"discord" toml:"discord" yaml:"discord"`
	LLM      LLMConfig      `json:"llm" toml:"llm" yaml:"llm"`
	Agent    AgentConfig    `json:"agent" toml:"agent" yaml:"agent"`
	Delivery DeliveryConfig `json:"delivery" toml:"delivery" yaml:"delivery"`
	Logging  LoggingConfig  `json:"logging" toml:"logging" yaml:"logging"`
}

type DiscordConfig struct {
	Token           string   `json:"token" toml:"token" yaml:"token"`
	RespondToAll    bool     `json:"respondToAll" toml:"respondToAll" yaml:"respondToAll"`          // reply to every message, not just mentions and DMs
	AllowedChannels []string `json:"allowedChannels" toml:"allowedChannels" yaml:"allowedChannels"` // channel IDs or names; empty means everywhere
}

type LLMConfig struct {
	Driver         string  `json:"driver" toml:"driver" yaml:"driver"`    // "openai" (any compatible endpoint) or "anthropic"
	BaseURL        string  `json:"baseURL" toml:"baseURL" yaml:"baseURL"` // empty means the driver default (OpenRouter for openai)
	APIKey         string  `json:"apiKey" toml:"apiKey" yaml:"apiKey"`
	Model          string  `json:"model" toml:"model" yaml:"model"`
	MaxTokens      int     `json:"maxTokens" toml:"maxTokens" yaml:"maxTokens"`
	Temperature    float64 `json:"temperature" toml:"temperature" yaml:"temperature"`
	TimeoutSeconds int     `json:"timeoutSeconds" toml:"timeoutSeconds" yaml:"timeoutSeconds"`
}

// Timeout returns the HTTP timeout for completion requests
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type AgentConfig struct {
	Name       string `json:"name" toml:"name" yaml:"name"`
	MaxDepth   int    `json:"maxDepth" toml:"maxDepth" yaml:"maxDepth"`
	PromptFile string `json:"promptFile" toml:"promptFile" yaml:"promptFile"` // extra operator instructions, hot reloaded
}

type DeliveryConfig struct {
	ChunkLimit   int `json:"chunkLimit" toml:"chunkLimit" yaml:"chunkLimit"`
	ChunkDelayMs int `json:"chunkDelayMs" toml:"chunkDelayMs" yaml:"chunkDelayMs"`
}

// ChunkDelay returns the pause between consecutive chunks
func (c DeliveryConfig) ChunkDelay() time.Duration {
	return time.Duration(c.ChunkDelayMs) * time.Millisecond
}

type LoggingConfig struct {
	Level string `json:"level" toml:"level" yaml:"level"`
}

// Default limits
const (
	DefaultDriver         = "openai"
	DefaultMaxTokens      = 1024
	DefaultTemperature    = 0.7
	DefaultTimeoutSeconds = 120
	DefaultMaxDepth       = 5
	DefaultChunkLimit     = 2000 // Discord message cap
	DefaultChunkDelayMs   = 750
	DefaultLogLevel       = "info"
	DefaultName           = "discordclaw"
)

// Default returns a configuration with every default filled in
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Driver:         DefaultDriver,
			MaxTokens:      DefaultMaxTokens,
			Temperature:    DefaultTemperature,
			TimeoutSeconds: DefaultTimeoutSeconds,
		},
		Agent: AgentConfig{
			Name:     DefaultName,
			MaxDepth: DefaultMaxDepth,
		},
		Delivery: DeliveryConfig{
			ChunkLimit:   DefaultChunkLimit,
			ChunkDelayMs: DefaultChunkDelayMs,
		},
		Logging: LoggingConfig{
			Level: DefaultLogLevel,
		},
	}
}

// Validate checks the merged configuration
func (c *Config) Validate() error {
	var problems []string

	if c.Discord.Token == "" {
		problems = append(problems, "discord.token is required (or set DISCORD_TOKEN)")
	}
	switch c.LLM.Driver {
	case "openai", "anthropic":
	default:
		problems = append(problems, fmt.Sprintf("llm.driver %q is not supported (use openai or anthropic)", c.LLM.Driver))
	}
	if c.LLM.Model == "" {
		problems = append(problems, "llm.model is required (or set LLM_MODEL)")
	}
	if c.LLM.MaxTokens <= 0 {
		problems = append(problems, "llm.maxTokens must be positive")
	}
	if c.LLM.TimeoutSeconds <= 0 {
		problems = append(problems, "llm.timeoutSeconds must be positive")
	}
	if c.Agent.MaxDepth <= 0 {
		problems = append(problems, "agent.maxDepth must be positive")
	}
	if c.Delivery.ChunkLimit < 100 || c.Delivery.ChunkLimit > DefaultChunkLimit {
		problems = append(problems, fmt.Sprintf("delivery.chunkLimit must be between 100 and %d", DefaultChunkLimit))
	}
	if c.Delivery.ChunkDelayMs < 0 {
		problems = append(problems, "delivery.chunkDelayMs must not be negative")
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "", "trace", "debug", "info", "warn", "warning", "error", "fatal":
	default:
		problems = append(problems, fmt.Sprintf("logging.level %q is not a known level", c.Logging.Level))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
