package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, o := range envOverrides {
		for _, name := range o.names {
			t.Setenv(name, "")
		}
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFormats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"json", "c.json", `{"discord":{"token":"tok","allowedChannels":["general"]},"llm":{"model":"m1","maxTokens":512},"delivery":{"chunkDelayMs":100}}`},
		{"toml", "c.toml", "[discord]\ntoken = \"tok\"\nallowedChannels = [\"general\"]\n[llm]\nmodel = \"m1\"\nmaxTokens = 512\n[delivery]\nchunkDelayMs = 100\n"},
		{"yaml", "c.yaml", "discord:\n  token: tok\n  allowedChannels: [general]\nllm:\n  model: m1\n  maxTokens: 512\ndelivery:\n  chunkDelayMs: 100\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			cfg, err := Load(writeFile(t, tt.file, tt.content))
			require.NoError(t, err)

			assert.Equal(t, "tok", cfg.Discord.Token)
			assert.Equal(t, []string{"general"}, cfg.Discord.AllowedChannels)
			assert.Equal(t, "m1", cfg.LLM.Model)
			assert.Equal(t, 512, cfg.LLM.MaxTokens)
			assert.Equal(t, 100, cfg.Delivery.ChunkDelayMs)

			// untouched sections keep their defaults
			assert.Equal(t, DefaultDriver, cfg.LLM.Driver)
			assert.Equal(t, DefaultMaxDepth, cfg.Agent.MaxDepth)
			assert.Equal(t, DefaultChunkLimit, cfg.Delivery.ChunkLimit)
			assert.NoError(t, cfg.Validate())
		})
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "c.json", `{"discord":{"token":"file-token"},"llm":{"model":"file-model"}}`)
	t.Setenv("DISCORD_TOKEN", "env-token")
	t.Setenv("ANTHROPIC_API_KEY", "ant-key")
	t.Setenv("LLM_DRIVER", "Anthropic")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Discord.Token)
	assert.Equal(t, "ant-key", cfg.LLM.APIKey)
	assert.Equal(t, "anthropic", cfg.LLM.Driver)
	assert.Equal(t, "file-model", cfg.LLM.Model)

	t.Setenv("LLM_API_KEY", "primary")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "primary", cfg.LLM.APIKey)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadMissingDefaultFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LLM_MODEL", "env-model")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env-model", cfg.LLM.Model)
	assert.Equal(t, DefaultChunkDelayMs, cfg.Delivery.ChunkDelayMs)
}

func TestLoadRejectsBadInput(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeFile(t, "c.json", `{"discord":{"tokn":"x"}}`))
	assert.Error(t, err, "unknown json field")

	_, err = Load(writeFile(t, "c.ini", `token=x`))
	assert.Error(t, err, "unsupported extension")

	_, err = Load(writeFile(t, "c.yaml", "discord: [\n"))
	assert.Error(t, err, "broken yaml")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := Default()
		c.Discord.Token = "tok"
		c.LLM.Model = "m"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing token", func(c *Config) { c.Discord.Token = "" }, "discord.token"},
		{"missing model", func(c *Config) { c.LLM.Model = "" }, "llm.model"},
		{"bad driver", func(c *Config) { c.LLM.Driver = "gemini" }, "llm.driver"},
		{"zero depth", func(c *Config) { c.Agent.MaxDepth = 0 }, "agent.maxDepth"},
		{"chunk limit above cap", func(c *Config) { c.Delivery.ChunkLimit = 4000 }, "delivery.chunkLimit"},
		{"negative delay", func(c *Config) { c.Delivery.ChunkDelayMs = -1 }, "delivery.chunkDelayMs"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSaveRotatesBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "discordclaw.json")

	first := Default()
	first.LLM.Model = "one"
	require.NoError(t, Save(path, first))

	second := Default()
	second.LLM.Model = "two"
	require.NoError(t, Save(path, second))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	var got Config
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "two", got.LLM.Model)

	data, err = os.ReadFile(path + ".bak")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "one", got.LLM.Model)
}

func TestDurations(t *testing.T) {
	c := Default()
	assert.Equal(t, "2m0s", c.LLM.Timeout().String())
	assert.Equal(t, "750ms", c.Delivery.ChunkDelay().String())
}
