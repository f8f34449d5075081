package tools

import (
	"fmt"
	"strings"

	"github.com/roelfdiedericks/discordclaw/internal/types"
)

// Canonical parameter names
const (
	ParamChannel = "channel"
	ParamServer  = "server"
	ParamLimit   = "limit"
	ParamMessage = "message"
)

// Param describes one parameter of an operation
type Param struct {
	Name        string
	Type        string // JSON schema type
	Description string
	Required    bool
	Default     any
}

// Descriptor describes one operation as it is advertised to the model
type Descriptor struct {
	Op          Operation
	Name        string
	Description string
	Params      []Param
}

// descriptors is the fixed catalog, in the order it is advertised
var descriptors = []Descriptor{
	{
		Op:   OpReadMessages,
		Name: NameReadMessages,
		Description: "Read the most recent messages from a channel. Returns them oldest first with author, time and attachments. " +
			"Use this whenever the user asks what was said somewhere.",
		Params: []Param{
			{Name: ParamChannel, Type: "string", Description: "Channel name (without #) or channel ID", Required: true},
			{Name: ParamLimit, Type: "integer", Description: fmt.Sprintf("How many messages to read (1-%d)", MaxReadLimit), Default: DefaultReadLimit},
			{Name: ParamServer, Type: "string", Description: "Server name or ID. Only needed when the channel name exists in several servers"},
		},
	},
	{
		Op:          OpListServers,
		Name:        NameListServers,
		Description: "List the servers the bot is connected to and their text channels.",
	},
	{
		Op:   OpSendMessage,
		Name: NameSendMessage,
		Description: "Send a message to a channel. Only use this when the user explicitly asks you to post somewhere else; " +
			"your normal reply is delivered automatically.",
		Params: []Param{
			{Name: ParamChannel, Type: "string", Description: "Channel name (without #) or channel ID", Required: true},
			{Name: ParamMessage, Type: "string", Description: "Exact text to send", Required: true},
			{Name: ParamServer, Type: "string", Description: "Server name or ID. Only needed when the channel name exists in several servers"},
		},
	},
}

// Descriptors returns the operation catalog
func Descriptors() []Descriptor {
	out := make([]Descriptor, len(descriptors))
	copy(out, descriptors)
	return out
}

// Lookup returns the descriptor for op
func Lookup(op Operation) (Descriptor, bool) {
	for _, d := range descriptors {
		if d.Op == op {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Names returns the wire names of every operation
func Names() []string {
	names := make([]string, len(descriptors))
	for i, d := range descriptors {
		names[i] = d.Name
	}
	return names
}

// Schema returns the JSON schema for the descriptor's parameters
func (d Descriptor) Schema() map[string]any {
	props := make(map[string]any, len(d.Params))
	required := []string{}
	for _, p := range d.Params {
		prop := map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// has reports whether name is a declared parameter
func (d Descriptor) has(name string) bool {
	for _, p := range d.Params {
		if p.Name == name {
			return true
		}
	}
	return false
}

// Definitions returns the catalog in the provider-neutral API format
func Definitions() []types.ToolDefinition {
	defs := make([]types.ToolDefinition, 0, len(descriptors))
	for _, d := range descriptors {
		defs = append(defs, types.ToolDefinition{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: d.Schema(),
		})
	}
	return defs
}

// BuildToolSummary generates a system prompt section listing the operations.
// Models that handle tool schemas poorly still see the names this way.
//
//	## Available Tools
//	- read_messages(channel, limit?, server?): Read the most recent messages from a channel.
func BuildToolSummary() string {
	var sb strings.Builder
	sb.WriteString("## Available Tools\n")
	sb.WriteString("Tool names are case-sensitive. Call tools exactly as listed.\n")

	for _, d := range descriptors {
		args := make([]string, 0, len(d.Params))
		for _, p := range d.Params {
			if p.Required {
				args = append(args, p.Name)
			} else {
				args = append(args, p.Name+"?")
			}
		}
		sb.WriteString(fmt.Sprintf("- %s(%s): %s\n", d.Name, strings.Join(args, ", "), truncateDescription(d.Description, 100)))
	}

	return sb.String()
}

// truncateDescription shortens a description for the summary view
func truncateDescription(desc string, maxLen int) string {
	if idx := strings.Index(desc, ". "); idx > 0 && idx < maxLen {
		return desc[:idx+1]
	}
	if len(desc) <= maxLen {
		return desc
	}

	// avoid cutting words
	truncated := desc[:maxLen]
	if idx := strings.LastIndex(truncated, " "); idx > maxLen/2 {
		truncated = truncated[:idx]
	}
	return truncated + "..."
}
