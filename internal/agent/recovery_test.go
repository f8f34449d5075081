package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roelfdiedericks/discordclaw/internal/tools"
)

func TestRecoverToolIntent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantOK   bool
		wantName string
		wantArgs string
	}{
		{"channel key", `{"channel":"general"}`, true, tools.NameReadMessages, `{"channel":"general"}`},
		{"channel alias with limit", `{"channel_name":"dev","limit":3}`, true, tools.NameReadMessages, `{"channel_name":"dev","limit":3}`},
		{"send by message key", `{"channel":"general","message":"hello"}`, true, tools.NameSendMessage, `{"channel":"general","message":"hello"}`},
		{"send by content alias", `{"channelId":"101","content":"hello"}`, true, tools.NameSendMessage, `{"channelId":"101","content":"hello"}`},
		{"fenced", "```json\n{\"channel\":\"general\"}\n```", true, tools.NameReadMessages, `{"channel":"general"}`},
		{"named call", `{"name":"send_message","arguments":{"channel":"a","message":"b"}}`, true, tools.NameSendMessage, `{"channel":"a","message":"b"}`},
		{"named call string arguments", `{"name":"read_messages","arguments":"{\"channel\":\"x\"}"}`, true, tools.NameReadMessages, `{"channel":"x"}`},
		{"named call parameters", `{"name":"LIST_SERVERS","parameters":{}}`, true, tools.NameListServers, `{}`},
		{"no channel key", `{"foo":"bar"}`, false, "", ""},
		{"prose", `Sure, let me check #general for you.`, false, "", ""},
		{"prose containing json", `Here: {"channel":"general"} done`, false, "", ""},
		{"invalid json", `{"channel": general}`, false, "", ""},
		{"array", `[{"channel":"general"}]`, false, "", ""},
		{"empty", ``, false, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call, ok := recoverToolIntent(tt.content)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantName, call.Name)
			assert.JSONEq(t, tt.wantArgs, call.Arguments)
			assert.True(t, strings.HasPrefix(call.ID, RecoveredIDPrefix))
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```{\"a\":1}```"))
	assert.Equal(t, `plain`, stripCodeFence("plain"))
}
