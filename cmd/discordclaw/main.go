package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/roelfdiedericks/discordclaw/internal/agent"
	"github.com/roelfdiedericks/discordclaw/internal/channels/discord"
	"github.com/roelfdiedericks/discordclaw/internal/config"
	"github.com/roelfdiedericks/discordclaw/internal/llm"
	. "github.com/roelfdiedericks/discordclaw/internal/logging"
	"github.com/roelfdiedericks/discordclaw/internal/metrics"
	"github.com/roelfdiedericks/discordclaw/internal/paths"
	"github.com/roelfdiedericks/discordclaw/internal/prompt"
	"github.com/roelfdiedericks/discordclaw/internal/tools"
)

const version = "0.1.0"

// CLI is the command line definition
type CLI struct {
	Config string `help:"Config file (.json, .toml or .yaml). Defaults to ~/.discordclaw/discordclaw.json." short:"c" type:"path"`
	Debug  bool   `help:"Enable debug logging." short:"d"`
	Trace  bool   `help:"Enable trace logging."`

	Run     RunCmd     `cmd:"" default:"1" help:"Connect to Discord and answer messages."`
	Init    InitCmd    `cmd:"" help:"Write a starter config file."`
	Schema  SchemaCmd  `cmd:"" help:"Print the tool definitions sent to the model."`
	Version VersionCmd `cmd:"" help:"Print the version."`
}

// setupLogging applies the config level, overridden by --debug/--trace
func (c *CLI) setupLogging(level string) {
	settings := DefaultSettings()
	settings.Level = ParseLevel(level)
	if c.Debug {
		settings.Level = LevelDebug
	}
	if c.Trace {
		settings.Level = LevelTrace
		settings.ShowCaller = true
	}
	Init(settings)
}

// RunCmd starts the bot
type RunCmd struct{}

func (r *RunCmd) Run(cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	cli.setupLogging(cfg.Logging.Level)

	if err := cfg.Validate(); err != nil {
		return err
	}

	L_info("discordclaw %s starting", version)
	L_debug("config loaded", "driver", cfg.LLM.Driver, "model", cfg.LLM.Model, "maxDepth", cfg.Agent.MaxDepth)

	promptFile, err := paths.ExpandTilde(cfg.Agent.PromptFile)
	if err != nil {
		return err
	}
	prompts := prompt.NewFileCache(promptFile, 0)
	defer prompts.Close()

	client, err := llm.New(llm.Options{
		Driver:      cfg.LLM.Driver,
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout(),
	})
	if err != nil {
		return err
	}

	bot, err := discord.New(discord.Config{
		Token:           cfg.Discord.Token,
		Name:            cfg.Agent.Name,
		RespondToAll:    cfg.Discord.RespondToAll,
		AllowedChannels: cfg.Discord.AllowedChannels,
		ChunkLimit:      cfg.Delivery.ChunkLimit,
		ChunkDelay:      cfg.Delivery.ChunkDelay(),
	}, prompts)
	if err != nil {
		return err
	}

	ag := agent.New(agent.Options{
		LLM:      client,
		Executor: tools.NewExecutor(bot.Directory()),
		MaxDepth: cfg.Agent.MaxDepth,
	})

	if err := bot.Start(ag); err != nil {
		return err
	}
	L_info("discordclaw ready", "model", client.Model(), "maxDepth", ag.MaxDepth())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	SetShuttingDown()
	L_info("shutting down")
	bot.Stop()

	for _, line := range metrics.GetInstance().Summary() {
		L_info("metrics: %s", line)
	}
	return nil
}

// InitCmd writes a starter config
type InitCmd struct {
	Force bool `help:"Overwrite an existing config (the old one is kept as .bak)."`
}

func (i *InitCmd) Run(cli *CLI) error {
	cli.setupLogging("info")

	path := cli.Config
	if path == "" {
		var err error
		if path, err = paths.DefaultConfigPath(); err != nil {
			return err
		}
	}
	if strings.ToLower(filepath.Ext(path)) != ".json" {
		return fmt.Errorf("init writes JSON, got %s", path)
	}
	if _, err := os.Stat(path); err == nil && !i.Force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	cfg := config.Default()
	cfg.LLM.Model = "openai/gpt-4o-mini"
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\nSet discord.token (or DISCORD_TOKEN) and llm.apiKey (or LLM_API_KEY) before running.\n", path)
	return nil
}

// SchemaCmd prints the tool definitions
type SchemaCmd struct{}

func (s *SchemaCmd) Run(cli *CLI) error {
	out, err := json.MarshalIndent(tools.Definitions(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// VersionCmd prints the version
type VersionCmd struct{}

func (v *VersionCmd) Run(cli *CLI) error {
	fmt.Printf("discordclaw %s\n", version)
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("discordclaw"),
		kong.Description("A Discord bot that answers with an LLM and can read, list and post to channels."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli))
}
