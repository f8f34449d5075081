package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		op   string
		in   map[string]any
		want map[string]any
	}{
		{
			name: "alias renamed",
			op:   NameReadMessages,
			in:   map[string]any{"channel_name": "general", "count": 5},
			want: map[string]any{"channel": "general", "limit": 5},
		},
		{
			name: "canonical wins over alias",
			op:   NameSendMessage,
			in:   map[string]any{"channel": "general", "channel_id": "999", "message": "hi", "content": "other"},
			want: map[string]any{"channel": "general", "message": "hi"},
		},
		{
			name: "unknown keys dropped",
			op:   NameReadMessages,
			in:   map[string]any{"channel": "general", "verbose": true, "format": "json"},
			want: map[string]any{"channel": "general"},
		},
		{
			name: "guild maps to server",
			op:   NameSendMessage,
			in:   map[string]any{"channelId": "101", "guild": "Alpha", "text": "yo"},
			want: map[string]any{"channel": "101", "server": "Alpha", "message": "yo"},
		},
		{
			name: "message alias not valid for read",
			op:   NameReadMessages,
			in:   map[string]any{"channel": "general", "content": "x"},
			want: map[string]any{"channel": "general"},
		},
		{
			name: "list takes nothing",
			op:   NameListServers,
			in:   map[string]any{"server": "Alpha"},
			want: map[string]any{},
		},
		{
			name: "unknown operation",
			op:   "delete_everything",
			in:   map[string]any{"channel": "general"},
			want: map[string]any{},
		},
		{
			name: "nil input",
			op:   NameReadMessages,
			in:   nil,
			want: map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.op, tt.in))
		})
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	in := map[string]any{"channel_name": "general", "junk": 1}
	_ = Normalize(NameReadMessages, in)
	assert.Equal(t, map[string]any{"channel_name": "general", "junk": 1}, in)
}

func TestKeyClassifiers(t *testing.T) {
	assert.True(t, HasChannelKey("channel"))
	assert.True(t, HasChannelKey("channelId"))
	assert.False(t, HasChannelKey("server"))
	assert.True(t, HasMessageKey("content"))
	assert.True(t, HasMessageKey("message"))
	assert.False(t, HasMessageKey("limit"))
}
