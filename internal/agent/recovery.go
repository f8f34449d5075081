package agent

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	. "github.com/roelfdiedericks/discordclaw/internal/logging"
	"github.com/roelfdiedericks/discordclaw/internal/tools"
	"github.com/roelfdiedericks/discordclaw/internal/types"
)

// RecoveredIDPrefix marks tool calls synthesized from plain-text JSON
const RecoveredIDPrefix = "recovered_"

// recoverToolIntent inspects an assistant reply that carried no tool calls and
// decides whether it is really a tool request written out as JSON text.
//
// Two shapes are recognized:
//   - {"name": "read_messages", "arguments": {...}} naming a known operation
//   - a bare argument object with a channel-like key; a message-like key
//     makes it a send, otherwise it is a read
//
// The content may be wrapped in a ```json fence but must otherwise be a
// single JSON object.
func recoverToolIntent(content string) (types.ToolCall, bool) {
	s := stripCodeFence(strings.TrimSpace(content))
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") || !gjson.Valid(s) {
		return types.ToolCall{}, false
	}

	obj := gjson.Parse(s)
	if !obj.IsObject() {
		return types.ToolCall{}, false
	}

	if call, ok := namedCall(obj); ok {
		return call, true
	}

	args := make(map[string]json.RawMessage)
	hasChannel, hasMessage := false, false
	obj.ForEach(func(key, value gjson.Result) bool {
		k := key.String()
		if tools.HasChannelKey(k) {
			hasChannel = true
		}
		if tools.HasMessageKey(k) {
			hasMessage = true
		}
		args[k] = json.RawMessage(value.Raw)
		return true
	})

	if !hasChannel {
		return types.ToolCall{}, false
	}

	name := tools.NameReadMessages
	if hasMessage {
		name = tools.NameSendMessage
	}

	raw, err := json.Marshal(args)
	if err != nil {
		return types.ToolCall{}, false
	}

	L_debug("agent: recovered tool intent from text", "op", name)
	return types.ToolCall{
		ID:        RecoveredIDPrefix + uuid.New().String(),
		Name:      name,
		Arguments: string(raw),
	}, true
}

// namedCall handles {"name": op, "arguments"|"parameters": {...}}
func namedCall(obj gjson.Result) (types.ToolCall, bool) {
	name := obj.Get("name")
	if name.Type != gjson.String || tools.ParseOperation(name.String()) == tools.OpUnknown {
		return types.ToolCall{}, false
	}

	args := obj.Get("arguments")
	if !args.Exists() {
		args = obj.Get("parameters")
	}

	raw := "{}"
	switch {
	case args.IsObject():
		raw = args.Raw
	case args.Type == gjson.String && gjson.Valid(args.String()):
		raw = args.String()
	}

	return types.ToolCall{
		ID:        RecoveredIDPrefix + uuid.New().String(),
		Name:      tools.ParseOperation(name.String()).String(),
		Arguments: raw,
	}, true
}

// stripCodeFence removes a surrounding ``` or ```json fence
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	if nl := strings.IndexByte(inner, '\n'); nl >= 0 {
		lang := strings.TrimSpace(inner[:nl])
		if lang == "" || strings.EqualFold(lang, "json") {
			inner = inner[nl+1:]
		}
	}
	return strings.TrimSpace(inner)
}
