package agent

import (
	"regexp"
	"strings"
)

var (
	// closed <think>/<thinking> blocks
	thinkBlockRe = regexp.MustCompile(`(?is)<think(?:ing)?>.*?</think(?:ing)?>`)
	// a stray closing tag means everything before it was reasoning
	danglingThinkRe = regexp.MustCompile(`(?is)^.*</think(?:ing)?>`)
	// an opening tag that never closed runs to the end
	unclosedThinkRe = regexp.MustCompile(`(?is)<think(?:ing)?>.*$`)
	// harmony-format channel markers (gpt-oss and friends)
	harmonyMessageRe = regexp.MustCompile(`(?s)^.*<\|channel\|>\s*final\s*<\|message\|>`)
	harmonyTokenRe   = regexp.MustCompile(`<\|[a-z_]+\|>`)
	// leading role or channel labels such as "analysis:" or "final\n"
	leadingLabelRe = regexp.MustCompile(`(?i)^\s*(?:analysis|assistant|commentary|final)\s*(?::|\n)\s*`)
	// output that opens on the analysis channel
	analysisPreambleRe = regexp.MustCompile(`(?i)^\s*analysis\s*(?::|\n)`)
)

// glued harmony marker when the channel tokens were stripped server-side
const harmonyFinalMarker = "assistantfinal"

// cleanAnswer strips reasoning preambles and channel labels from model text
// so only the user-facing answer remains. Returns "" when nothing is left.
func cleanAnswer(text string) string {
	// labels are only stripped from channel-formatted output; a plain
	// "Final: 3-2" is an answer
	channelFormatted := strings.Contains(text, "<|") ||
		strings.Contains(text, harmonyFinalMarker) ||
		analysisPreambleRe.MatchString(text)

	s := thinkBlockRe.ReplaceAllString(text, "")
	s = danglingThinkRe.ReplaceAllString(s, "")
	s = unclosedThinkRe.ReplaceAllString(s, "")

	if strings.Contains(s, "<|channel|>") {
		s = harmonyMessageRe.ReplaceAllString(s, "")
	}
	s = harmonyTokenRe.ReplaceAllString(s, "")

	if idx := strings.LastIndex(s, harmonyFinalMarker); idx >= 0 {
		s = s[idx+len(harmonyFinalMarker):]
	}

	for channelFormatted {
		stripped := leadingLabelRe.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = stripped
	}

	return strings.TrimSpace(s)
}
