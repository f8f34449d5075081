package tools

import (
	. "github.com/roelfdiedericks/discordclaw/internal/logging"
)

// synonym lists alternative spellings models use for a canonical parameter
type synonym struct {
	canonical string
	aliases   []string
}

var (
	channelSynonyms = synonym{ParamChannel, []string{"channel_name", "channel_id", "channelName", "channelId", "channel_title"}}
	serverSynonyms  = synonym{ParamServer, []string{"server_name", "server_id", "serverName", "serverId", "guild", "guild_id", "guild_name"}}
	messageSynonyms = synonym{ParamMessage, []string{"content", "text", "msg", "body"}}
	limitSynonyms   = synonym{ParamLimit, []string{"count", "num", "n", "max", "amount", "number"}}
)

var synonymTable = map[Operation][]synonym{
	OpReadMessages: {channelSynonyms, serverSynonyms, limitSynonyms},
	OpSendMessage:  {channelSynonyms, serverSynonyms, messageSynonyms},
	OpListServers:  nil,
}

// Normalize maps alias keys onto canonical parameter names for the named
// operation and drops every key the operation does not declare.
// An alias is only applied when the canonical key is absent, so an explicit
// canonical value always wins. The input map is left untouched.
func Normalize(name string, raw map[string]any) map[string]any {
	op := ParseOperation(name)
	out := make(map[string]any, len(raw))

	desc, ok := Lookup(op)
	if !ok {
		return out
	}

	for k, v := range raw {
		out[k] = v
	}

	for _, syn := range synonymTable[op] {
		if _, present := out[syn.canonical]; present {
			continue
		}
		for _, alias := range syn.aliases {
			if v, found := out[alias]; found {
				out[syn.canonical] = v
				L_trace("normalize: renamed parameter", "op", desc.Name, "from", alias, "to", syn.canonical)
				break
			}
		}
	}

	for k := range out {
		if desc.has(k) {
			continue
		}
		if c := canonicalKey(k); c != "" && desc.has(c) {
			L_trace("normalize: dropped alias", "op", desc.Name, "key", k)
		} else {
			L_debug("normalize: dropped unknown parameter", "op", desc.Name, "key", k)
		}
		delete(out, k)
	}

	return out
}

// canonicalKey returns the canonical parameter an alias stands for, across all operations.
// Used when guessing intent from free-form JSON with no operation name.
func canonicalKey(key string) string {
	for _, syn := range []synonym{channelSynonyms, serverSynonyms, messageSynonyms, limitSynonyms} {
		if key == syn.canonical {
			return key
		}
		for _, alias := range syn.aliases {
			if key == alias {
				return syn.canonical
			}
		}
	}
	return ""
}

// HasChannelKey reports whether key is the channel parameter or one of its aliases
func HasChannelKey(key string) bool {
	return canonicalKey(key) == ParamChannel
}

// HasMessageKey reports whether key is the message parameter or one of its aliases
func HasMessageKey(key string) bool {
	return canonicalKey(key) == ParamMessage
}
