package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"trace", LevelTrace},
		{"DEBUG", LevelDebug},
		{" info ", LevelInfo},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestHasFmtVerb(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"plain message", false},
		{"count is %d", true},
		{"100%% done", false},
		{"value %v", true},
		{"trailing %", false},
	}
	for _, tt := range tests {
		if got := hasFmtVerb(tt.in); got != tt.want {
			t.Errorf("hasFmtVerb(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogStyles(t *testing.T) {
	var buf bytes.Buffer
	Init(&Settings{Level: LevelDebug, TimeFormat: "15:04", Output: &buf})
	defer Init(nil)

	L_info("simple")
	L_info("formatted %d", 42)
	L_info("structured", "key", "value")
	L_debug("hidden?")

	out := buf.String()
	for _, want := range []string{"simple", "formatted 42", "structured", "key=value", "hidden?"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	SetLevel(LevelWarn)
	L_info("suppressed")
	if strings.Contains(buf.String(), "suppressed") {
		t.Errorf("info message logged at warn level: %s", buf.String())
	}
}

func TestKeyValueArgsWithoutVerbs(t *testing.T) {
	var buf bytes.Buffer
	Init(&Settings{Level: LevelDebug, TimeFormat: "15:04", Output: &buf})
	defer Init(nil)

	L_debug("tool finished", "rounds", 3, "failed", false)
	L_warn("progress 100%% done", "part", 2)

	out := buf.String()
	for _, want := range []string{"tool finished", "rounds=3", "failed=false", "progress 100%% done", "part=2"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}
