package discord

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	. "github.com/roelfdiedericks/discordclaw/internal/logging"
)

// MessageLimit is the Discord cap on message length, in characters
const MessageLimit = 2000

var sentenceTerminators = []string{". ", "! ", "? ", ".\n"}

// Segment splits text into chunks of at most limit characters (runes).
// Text that already fits is returned unchanged as a single chunk. Longer text
// is cut at a paragraph break, sentence end or line break near the end of
// each window, falling back to a hard cut, and every chunk is prefixed with
// a [Part i/N] marker. When limit is too small to hold a marker the chunks
// are returned unmarked.
func Segment(text string, limit int) []string {
	if limit <= 0 || len([]rune(text)) <= limit {
		return []string{text}
	}

	remaining := []rune(strings.TrimSpace(text))

	// The marker width depends on N, so split with a guess and widen the
	// reserve until the part count fits inside it.
	parts := 2
	for {
		reserve := markerWidth(parts)
		window := limit - reserve
		if window < 1 {
			L_debug("discord: limit too small for part markers", "limit", limit)
			return splitRunes(remaining, limit)
		}

		chunks := splitRunes(remaining, window)
		if len(chunks) <= 1 {
			return chunks
		}
		if markerWidth(len(chunks)) > reserve {
			parts = len(chunks)
			continue
		}
		for i := range chunks {
			chunks[i] = partMarker(i+1, len(chunks)) + chunks[i]
		}
		return chunks
	}
}

func partMarker(i, n int) string {
	return fmt.Sprintf("[Part %d/%d] ", i, n)
}

// markerWidth is the widest marker among n parts, in runes
func markerWidth(n int) int {
	return len(partMarker(n, n))
}

// splitRunes cuts text into trimmed, non-empty chunks of at most window runes
func splitRunes(remaining []rune, window int) []string {
	var chunks []string
	for len(remaining) > 0 {
		if len(remaining) <= window {
			chunks = appendChunk(chunks, remaining)
			break
		}

		cut := findSplitPoint(remaining, window)
		chunks = appendChunk(chunks, remaining[:cut])
		remaining = trimLeftRunes(remaining[cut:])
	}
	return chunks
}

func appendChunk(chunks []string, r []rune) []string {
	if s := strings.TrimSpace(string(r)); s != "" {
		chunks = append(chunks, s)
	}
	return chunks
}

// findSplitPoint returns the rune index at which to end the current chunk.
// The result is always in (0, window].
func findSplitPoint(text []rune, window int) int {
	area := text[:window]

	// Paragraph break in the back half
	if idx := lastIndexRunes(area, "\n\n"); idx > 0 && idx >= window/2 {
		return idx
	}

	// Sentence end in the back 30%, keeping the punctuation
	backThirty := window - window*3/10
	best := -1
	for _, sep := range sentenceTerminators {
		if idx := lastIndexRunes(area, sep); idx > best {
			best = idx
		}
	}
	if best >= 0 && best >= backThirty {
		return best + 1
	}

	// Line break in the back 30%
	if idx := lastIndexRunes(area, "\n"); idx > 0 && idx >= backThirty {
		return idx
	}

	return window
}

// lastIndexRunes is strings.LastIndex over a rune slice, returning a rune index
func lastIndexRunes(r []rune, sep string) int {
	s := []rune(sep)
	for i := len(r) - len(s); i >= 0; i-- {
		match := true
		for j := range s {
			if r[i+j] != s[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func trimLeftRunes(r []rune) []rune {
	for len(r) > 0 && unicode.IsSpace(r[0]) {
		r = r[1:]
	}
	return r
}

// Deliver sends chunks in order with delay between them, stopping at the
// first send error or when ctx is cancelled.
func Deliver(ctx context.Context, chunks []string, send func(string) error, delay time.Duration) error {
	for i, chunk := range chunks {
		if i > 0 && delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := send(chunk); err != nil {
			L_warn("discord: chunk delivery failed", "part", i+1, "of", len(chunks), "error", err)
			return fmt.Errorf("sending part %d/%d: %w", i+1, len(chunks), err)
		}
	}
	return nil
}
