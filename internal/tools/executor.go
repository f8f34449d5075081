package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	. "github.com/roelfdiedericks/discordclaw/internal/logging"
	. "github.com/roelfdiedericks/discordclaw/internal/metrics"
	"github.com/roelfdiedericks/discordclaw/internal/types"
)

const (
	// DefaultReadLimit is used when read_messages gets no limit
	DefaultReadLimit = 20
	// MaxReadLimit is the most messages Discord returns per history request
	MaxReadLimit = 100
	// MaxSendLength is Discord's message length limit
	MaxSendLength = 2000
	// MaxListedLocations caps channels shown per server by list_servers
	MaxListedLocations = 25
)

// ErrorPrefix starts every failed execution result
const ErrorPrefix = types.ToolErrorPrefix

// Executor runs operations against a Gateway.
// Execute never returns a Go error: failures come back as text starting
// with ErrorPrefix so the model can read them and recover.
type Executor struct {
	gw Gateway
}

// NewExecutor creates an executor bound to gw
func NewExecutor(gw Gateway) *Executor {
	return &Executor{gw: gw}
}

// Execute runs the named operation with already-normalized arguments
func (e *Executor) Execute(ctx context.Context, name string, args map[string]any) (result string) {
	op := ParseOperation(name)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			L_error("tools: panic during execution", "op", name, "panic", r)
			result = errorText(fmt.Errorf("internal failure while running %s", name))
		}
		metricName := op.String()
		MetricDuration("tools", metricName, time.Since(start))
		if strings.HasPrefix(result, ErrorPrefix) {
			MetricFailWithReason("tools", metricName, failureReason(result))
		} else {
			MetricSuccess("tools", metricName)
		}
	}()

	L_debug("tools: execute", "op", name, "args", args)

	var err error
	switch op {
	case OpListServers:
		result, err = e.listServers(ctx)
	case OpReadMessages:
		var p ReadParams
		if err = decodeParams(args, &p); err == nil {
			result, err = e.readMessages(ctx, &p)
		}
	case OpSendMessage:
		var p SendParams
		if err = decodeParams(args, &p); err == nil {
			result, err = e.sendMessage(ctx, &p)
		}
	default:
		err = fmt.Errorf("unknown operation %q, valid operations are: %s", name, strings.Join(Names(), ", "))
	}

	if err != nil {
		L_debug("tools: execution failed", "op", name, "error", err)
		return errorText(err)
	}
	return result
}

func errorText(err error) string {
	return ErrorPrefix + err.Error()
}

func failureReason(result string) string {
	switch {
	case strings.Contains(result, "ambiguous"):
		return "ambiguous"
	case strings.Contains(result, "not found"):
		return "not_found"
	case strings.Contains(result, "unknown operation"):
		return "unknown_op"
	case strings.Contains(result, "required"), strings.Contains(result, "invalid arguments"):
		return "bad_args"
	default:
		return "gateway"
	}
}

func (e *Executor) listServers(ctx context.Context) (string, error) {
	containers, err := e.gw.Containers(ctx)
	if err != nil {
		return "", fmt.Errorf("listing servers: %w", err)
	}
	if len(containers) == 0 {
		return "The bot is not in any server.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Connected to %d server(s):\n", len(containers))
	for _, c := range containers {
		fmt.Fprintf(&sb, "\n%s (id %s)\n", c.Name, c.ID)
		if len(c.Locations) == 0 {
			sb.WriteString("  (no text channels visible)\n")
			continue
		}
		shown := c.Locations
		if len(shown) > MaxListedLocations {
			shown = shown[:MaxListedLocations]
		}
		for _, l := range shown {
			fmt.Fprintf(&sb, "  #%s (id %s)\n", l.Name, l.ID)
		}
		if extra := len(c.Locations) - len(shown); extra > 0 {
			fmt.Fprintf(&sb, "  ... and %d more\n", extra)
		}
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func (e *Executor) readMessages(ctx context.Context, p *ReadParams) (string, error) {
	containers, err := e.gw.Containers(ctx)
	if err != nil {
		return "", fmt.Errorf("listing servers: %w", err)
	}
	c, loc, err := ResolveLocation(containers, p.Channel, p.Server)
	if err != nil {
		return "", err
	}

	count := p.Count()
	items, err := e.gw.FetchRecent(ctx, loc.ID, count, "")
	if err != nil {
		return "", fmt.Errorf("reading #%s: %w", loc.Name, err)
	}
	if len(items) == 0 {
		return fmt.Sprintf("No messages found in #%s (%s).", loc.Name, c.Name), nil
	}
	if len(items) > count {
		items = items[:count]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Last %d message(s) in #%s (%s), oldest first:\n", len(items), loc.Name, c.Name)
	// gateway returns newest first
	for i := len(items) - 1; i >= 0; i-- {
		sb.WriteString(formatItem(items[i]))
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func formatItem(it Item) string {
	author := it.AuthorName
	if author == "" {
		author = it.AuthorID
	}
	if it.IsBot {
		author += " [bot]"
	}

	line := fmt.Sprintf("[%s] %s: %s", it.Timestamp.UTC().Format("2006-01-02 15:04 UTC"), author, it.Content)
	if len(it.Attachments) > 0 {
		line += fmt.Sprintf(" [attachments: %s]", strings.Join(it.Attachments, ", "))
	}
	return line
}

func (e *Executor) sendMessage(ctx context.Context, p *SendParams) (string, error) {
	containers, err := e.gw.Containers(ctx)
	if err != nil {
		return "", fmt.Errorf("listing servers: %w", err)
	}
	c, loc, err := ResolveLocation(containers, p.Channel, p.Server)
	if err != nil {
		return "", err
	}

	id, err := e.gw.Deliver(ctx, loc.ID, p.Message)
	if err != nil {
		return "", fmt.Errorf("sending to #%s: %w", loc.Name, err)
	}
	if id == "" {
		return "", errors.New("platform did not return a message id")
	}

	L_info("tools: message sent", "channel", loc.Name, "server", c.Name, "id", id)
	return fmt.Sprintf("Message sent to #%s in %s (message id: %s).", loc.Name, c.Name, id), nil
}
