// Package discord provides the Discord bot adapter for discordclaw.
package discord

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/roelfdiedericks/discordclaw/internal/agent"
	. "github.com/roelfdiedericks/discordclaw/internal/logging"
	. "github.com/roelfdiedericks/discordclaw/internal/metrics"
	"github.com/roelfdiedericks/discordclaw/internal/prompt"
	"github.com/roelfdiedericks/discordclaw/internal/types"
)

// ApologyMessage is the only reply sent when a run fails; details stay in the log
const ApologyMessage = "Sorry, something went wrong while I was working on that. Please try again in a moment."

// Intents the bot needs: guild and channel lists, guild and DM messages, and their content
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsMessageContent

// StopGrace bounds how long Stop waits for in-flight replies
const StopGrace = 30 * time.Second

// Runner answers one request; *agent.Agent satisfies it
type Runner interface {
	Run(ctx context.Context, req agent.AgentRequest, events chan<- agent.AgentEvent) (*agent.RunResult, error)
}

// Config holds the bot's settings
type Config struct {
	Token           string
	Name            string
	RespondToAll    bool
	AllowedChannels []string
	ChunkLimit      int
	ChunkDelay      time.Duration
}

// Bot represents the Discord bot
type Bot struct {
	session *discordgo.Session
	dir     *Directory
	runner  Runner
	prompts *prompt.FileCache
	config  Config
	allowed map[string]bool

	mu       sync.Mutex
	stopping bool
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

// New creates the bot and its session without connecting
func New(cfg Config, prompts *prompt.FileCache) (*Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("discord bot token not configured")
	}

	L_debug("discord: creating session", "tokenLength", len(cfg.Token))
	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	s.Identify.Intents = Intents

	b := newBot(cfg, NewDirectory(s), prompts)
	b.session = s
	return b, nil
}

func newBot(cfg Config, dir *Directory, prompts *prompt.FileCache) *Bot {
	if cfg.ChunkLimit <= 0 || cfg.ChunkLimit > MessageLimit {
		cfg.ChunkLimit = MessageLimit
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bot{
		dir:     dir,
		prompts: prompts,
		config:  cfg,
		allowed: make(map[string]bool, len(cfg.AllowedChannels)),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, c := range cfg.AllowedChannels {
		b.allowed[strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c), "#"))] = true
	}
	return b
}

// Directory returns the tools.Gateway backed by this bot's session
func (b *Bot) Directory() *Directory {
	return b.dir
}

// Name returns the channel name
func (b *Bot) Name() string {
	return "discord"
}

// Start registers handlers and opens the gateway connection
func (b *Bot) Start(runner Runner) error {
	b.runner = runner
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord connection: %w", err)
	}
	return nil
}

// Stop waits up to StopGrace for in-flight replies, cancels whatever is
// still running, then closes the connection.
func (b *Bot) Stop() {
	L_info("discord: stopping, waiting for in-flight replies")

	b.mu.Lock()
	b.stopping = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(StopGrace):
		L_warn("discord: replies still running after grace period, cancelling", "grace", StopGrace)
		b.cancel()
		<-done
	}
	b.cancel()

	if b.session == nil {
		return
	}
	if err := b.session.Close(); err != nil {
		L_warn("discord: close failed", "error", err)
	}
}

// beginReply registers an in-flight reply unless Stop has started.
// Callers that get true must call b.wg.Done when finished.
func (b *Bot) beginReply() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopping || IsShuttingDown() {
		return false
	}
	b.wg.Add(1)
	return true
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	L_info("discord: connected",
		"bot", r.User.Username,
		"id", r.User.ID,
		"guilds", len(r.Guilds),
	)
	MetricSet("discord", "guilds", int64(len(r.Guilds)))
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if IsShuttingDown() || m.Author == nil || s.State == nil || s.State.User == nil {
		return
	}

	in := b.inbound(s, m.Message)
	text, ok := b.shouldRespond(s.State.User.ID, m.Message, in)
	if !ok {
		return
	}
	in.Text = text
	MetricInc("discord", "messages")

	// discordgo dispatches each event on its own goroutine
	if !b.beginReply() {
		L_debug("discord: stopping, message ignored", "channel", in.ChannelID)
		return
	}
	defer b.wg.Done()
	b.handle(in)
}

// shouldRespond decides whether the bot answers m and returns the text with
// the bot's mention removed.
func (b *Bot) shouldRespond(botID string, m *discordgo.Message, in *types.InboundMessage) (string, bool) {
	if m.Author == nil || m.Author.Bot || m.Author.ID == botID {
		return "", false
	}

	mentioned := false
	for _, u := range m.Mentions {
		if u != nil && u.ID == botID {
			mentioned = true
			break
		}
	}

	if !in.IsDirect() {
		if !mentioned && !b.config.RespondToAll {
			return "", false
		}
		if !b.channelAllowed(in) {
			L_debug("discord: channel not in allowedChannels", "channel", in.ChannelID)
			return "", false
		}
	}

	text := stripMention(m.Content, botID)
	if text == "" {
		return "", false
	}
	return text, true
}

// channelAllowed matches allowedChannels entries against the channel ID or name
func (b *Bot) channelAllowed(in *types.InboundMessage) bool {
	if len(b.allowed) == 0 {
		return true
	}
	return b.allowed[in.ChannelID] || (in.ChannelName != "" && b.allowed[strings.ToLower(in.ChannelName)])
}

// stripMention removes <@id> and <@!id> mentions of the bot
func stripMention(content, botID string) string {
	content = strings.ReplaceAll(content, "<@"+botID+">", "")
	content = strings.ReplaceAll(content, "<@!"+botID+">", "")
	return strings.TrimSpace(content)
}

// inbound builds the request context, filling names from the state cache
func (b *Bot) inbound(s *discordgo.Session, m *discordgo.Message) *types.InboundMessage {
	in := &types.InboundMessage{
		ID:        m.ID,
		Text:      m.Content,
		Timestamp: m.Timestamp,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
	}
	if m.Author != nil {
		in.AuthorID = m.Author.ID
		in.AuthorName = displayName(m.Author)
	}
	if s.State == nil {
		return in
	}
	if ch, err := s.State.Channel(m.ChannelID); err == nil {
		in.ChannelName = ch.Name
	}
	if m.GuildID != "" {
		if g, err := s.State.Guild(m.GuildID); err == nil {
			in.GuildName = g.Name
		}
	}
	return in
}

// handle runs the agent for one message and delivers the answer
func (b *Bot) handle(in *types.InboundMessage) {
	start := time.Now()
	ctx := b.ctx

	defer func() {
		if r := recover(); r != nil {
			L_error("discord: panic while handling message", "panic", r, "channel", in.ChannelID, "stack", string(debug.Stack()))
			MetricFailWithReason("discord", "handle", "panic")
			b.reply(ctx, in.ChannelID, ApologyMessage)
		}
	}()

	L_info("discord: message received",
		"channel", in.ChannelID,
		"guild", in.GuildID,
		"author", in.AuthorName,
		"textLen", len(in.Text),
	)

	b.dir.ShowActivityIndicator(ctx, in.ChannelID)

	custom := ""
	if b.prompts != nil {
		custom = b.prompts.Content()
	}
	req := agent.AgentRequest{
		SystemPrompt: prompt.BuildSystemPrompt(prompt.Params{Name: b.config.Name, Custom: custom, Inbound: in}),
		Text:         in.Text,
		Source:       "discord:" + in.ChannelID,
	}

	events := make(chan agent.AgentEvent, 16)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for ev := range events {
			if _, ok := ev.(agent.EventRoundStart); ok {
				b.dir.ShowActivityIndicator(ctx, in.ChannelID)
			}
		}
	}()

	res, err := b.runner.Run(ctx, req, events)
	<-drained
	if err != nil {
		L_error("discord: agent run failed", "channel", in.ChannelID, "error", err)
		MetricFailWithReason("discord", "handle", "agent")
		b.reply(ctx, in.ChannelID, ApologyMessage)
		return
	}

	chunks := Segment(res.Text, b.config.ChunkLimit)
	err = Deliver(ctx, chunks, func(chunk string) error {
		_, err := b.dir.Deliver(ctx, in.ChannelID, chunk)
		return err
	}, b.config.ChunkDelay)
	if err != nil {
		L_error("discord: delivering reply failed", "channel", in.ChannelID, "error", err)
		MetricFailWithReason("discord", "handle", "deliver")
		return
	}

	MetricSuccess("discord", "handle")
	MetricSince("discord", "handle", start)
	L_elapsed(start, "discord: reply delivered", "channel", in.ChannelID, "chunks", len(chunks), "rounds", res.Rounds)
}

func (b *Bot) reply(ctx context.Context, channelID, text string) {
	if _, err := b.dir.Deliver(ctx, channelID, text); err != nil {
		L_warn("discord: failed to send reply", "channel", channelID, "error", err)
		MetricFail("discord", "reply")
	}
}
