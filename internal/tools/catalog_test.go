package tools

import (
	"strings"
	"testing"
)

func TestCatalogWireContract(t *testing.T) {
	want := map[string][]string{
		NameReadMessages: {ParamChannel, ParamLimit, ParamServer},
		NameListServers:  {},
		NameSendMessage:  {ParamChannel, ParamMessage, ParamServer},
	}

	defs := Definitions()
	if len(defs) != len(want) {
		t.Fatalf("got %d definitions, want %d", len(defs), len(want))
	}

	for _, def := range defs {
		params, ok := want[def.Name]
		if !ok {
			t.Errorf("unexpected operation %q", def.Name)
			continue
		}
		props := def.InputSchema["properties"].(map[string]any)
		if len(props) != len(params) {
			t.Errorf("%s: got %d properties, want %d", def.Name, len(props), len(params))
		}
		for _, p := range params {
			if _, ok := props[p]; !ok {
				t.Errorf("%s: missing property %q", def.Name, p)
			}
		}
	}
}

func TestRequiredParams(t *testing.T) {
	for _, def := range Definitions() {
		required := def.InputSchema["required"].([]string)
		switch def.Name {
		case NameReadMessages:
			if len(required) != 1 || required[0] != ParamChannel {
				t.Errorf("read_messages required = %v", required)
			}
		case NameSendMessage:
			if len(required) != 2 {
				t.Errorf("send_message required = %v", required)
			}
		case NameListServers:
			if len(required) != 0 {
				t.Errorf("list_servers required = %v", required)
			}
		}
	}
}

func TestParseOperationRoundTrip(t *testing.T) {
	for _, name := range Names() {
		op := ParseOperation(name)
		if op == OpUnknown {
			t.Errorf("ParseOperation(%q) = OpUnknown", name)
		}
		if op.String() != name {
			t.Errorf("ParseOperation(%q).String() = %q", name, op.String())
		}
	}
	if ParseOperation("nope") != OpUnknown {
		t.Error("expected OpUnknown")
	}
}

func TestBuildToolSummary(t *testing.T) {
	s := BuildToolSummary()
	for _, want := range []string{
		"## Available Tools",
		"- read_messages(channel, limit?, server?):",
		"- list_servers():",
		"- send_message(channel, message, server?):",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("summary missing %q:\n%s", want, s)
		}
	}
}

func TestTruncateDescription(t *testing.T) {
	tests := []struct {
		desc   string
		maxLen int
		want   string
	}{
		{"Short one. Second sentence.", 100, "Short one."},
		{"no sentence break here", 100, "no sentence break here"},
		{"word word word word word", 12, "word word..."},
	}
	for _, tt := range tests {
		if got := truncateDescription(tt.desc, tt.maxLen); got != tt.want {
			t.Errorf("truncateDescription(%q, %d) = %q, want %q", tt.desc, tt.maxLen, got, tt.want)
		}
	}
}
