package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	. "github.com/roelfdiedericks/discordclaw/internal/logging"
	"github.com/roelfdiedericks/discordclaw/internal/paths"
)

// Load builds the configuration: defaults, then the config file (json, toml
// or yaml by extension), then environment overrides. An empty path means
// paths.ConfigPath, and no config file at all is fine. An explicit path must
// exist. The result is not validated; call Validate before use.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		found, err := paths.ConfigPath()
		if err != nil {
			return nil, err
		}
		path = found
	}

	if path == "" {
		L_debug("config: no config file, using defaults and environment")
	} else {
		fileCfg, err := readFile(path)
		if err != nil {
			return nil, err
		}
		// Zero values in the file leave the defaults in place
		if err := mergo.Merge(cfg, fileCfg, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merging %s: %w", path, err)
		}
		L_debug("config: loaded file", "path", path)
	}

	applyEnv(cfg)
	return cfg, nil
}

// readFile decodes path according to its extension
func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	out := &Config{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json", "":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(out)
	case ".toml":
		var md toml.MetaData
		md, err = toml.Decode(string(data), out)
		if err == nil {
			if undecoded := md.Undecoded(); len(undecoded) > 0 {
				L_warn("config: unknown keys ignored", "path", path, "keys", undecoded)
			}
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(out)
	default:
		return nil, fmt.Errorf("config %s: unsupported extension %q (use .json, .toml or .yaml)", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return out, nil
}

// envOverride maps an environment variable onto a config field
type envOverride struct {
	names []string // first non-empty wins
	apply func(*Config, string)
}

var envOverrides = []envOverride{
	{[]string{"DISCORD_TOKEN"}, func(c *Config, v string) { c.Discord.Token = v }},
	{[]string{"LLM_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY"}, func(c *Config, v string) { c.LLM.APIKey = v }},
	{[]string{"LLM_MODEL"}, func(c *Config, v string) { c.LLM.Model = v }},
	{[]string{"LLM_BASE_URL"}, func(c *Config, v string) { c.LLM.BaseURL = v }},
	{[]string{"LLM_DRIVER"}, func(c *Config, v string) { c.LLM.Driver = strings.ToLower(v) }},
}

// applyEnv overrides config values from the environment
func applyEnv(cfg *Config) {
	for _, o := range envOverrides {
		for _, name := range o.names {
			if v := strings.TrimSpace(os.Getenv(name)); v != "" {
				o.apply(cfg, v)
				L_trace("config: environment override", "var", name)
				break
			}
		}
	}
}
