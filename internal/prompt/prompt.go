package prompt

import (
	"fmt"
	"strings"
	"time"

	. "github.com/roelfdiedericks/discordclaw/internal/logging"
	"github.com/roelfdiedericks/discordclaw/internal/tools"
	"github.com/roelfdiedericks/discordclaw/internal/types"
)

// DefaultName is used when no bot name is configured
const DefaultName = "discordclaw"

// Params contains parameters for building the system prompt
type Params struct {
	Name    string                // bot display name
	Custom  string                // operator prompt file contents, may be empty
	Inbound *types.InboundMessage // message being answered, may be nil
	Now     time.Time             // zero means time.Now()
}

// BuildSystemPrompt assembles the system prompt: identity, tooling, the
// conversation's location, the current time and any operator instructions.
func BuildSystemPrompt(p Params) string {
	name := p.Name
	if name == "" {
		name = DefaultName
	}
	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}

	sections := []string{
		buildIdentitySection(name),
		buildToolingSection(),
		buildToolCallStyleSection(),
	}
	if p.Inbound != nil {
		sections = append(sections, buildLocationSection(p.Inbound))
	}
	sections = append(sections, buildTimeSection(now))
	if p.Custom != "" {
		sections = append(sections, "## Operator Instructions\n"+p.Custom)
	}

	prompt := strings.Join(sections, "\n\n")
	L_trace("prompt: built system prompt", "chars", len(prompt), "custom", p.Custom != "")
	return prompt
}

func buildIdentitySection(name string) string {
	return fmt.Sprintf("You are %s, an assistant living in a Discord bot. "+
		"You can read recent messages in the servers you belong to, list those servers and their channels, "+
		"and post messages. Answer in plain Discord-flavoured markdown and keep replies concise.", name)
}

func buildToolingSection() string {
	var lines []string
	lines = append(lines, "## Tooling")
	lines = append(lines, "Tool names are case-sensitive. Call tools exactly as listed.")
	lines = append(lines, "")
	lines = append(lines, tools.BuildToolSummary())
	lines = append(lines, "")
	lines = append(lines, "Channels and servers may be given by name (with or without #) or by numeric id.")
	lines = append(lines, "If a name is ambiguous, the tool result lists the candidates; pick one and call again.")
	return strings.Join(lines, "\n")
}

func buildToolCallStyleSection() string {
	return `## Tool Call Style

Do not narrate routine tool calls, just call the tool.
Use the native tool calling interface; never write tool calls out as JSON in your reply.
Your final reply is posted to the conversation automatically; only use send_message to post somewhere else.`
}

func buildLocationSection(m *types.InboundMessage) string {
	var lines []string
	lines = append(lines, "## Current Conversation")
	if m.IsDirect() {
		lines = append(lines, "This is a direct message.")
	} else {
		if m.GuildName != "" {
			lines = append(lines, fmt.Sprintf("Server: %s (id %s)", m.GuildName, m.GuildID))
		}
		if m.ChannelName != "" {
			lines = append(lines, fmt.Sprintf("Channel: #%s (id %s)", m.ChannelName, m.ChannelID))
		} else {
			lines = append(lines, fmt.Sprintf("Channel id: %s", m.ChannelID))
		}
	}
	if m.AuthorName != "" {
		lines = append(lines, fmt.Sprintf("Speaking with: %s (id %s)", m.AuthorName, m.AuthorID))
	}
	return strings.Join(lines, "\n")
}

func buildTimeSection(now time.Time) string {
	return fmt.Sprintf("## Current Date & Time\n%s (%s)",
		now.Format("Monday, January 2, 2006 15:04"), now.Format("MST"))
}
