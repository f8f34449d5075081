package discord

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var partMarkerRe = regexp.MustCompile(`^\[Part (\d+)/(\d+)\] `)

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func reconstruct(t *testing.T, chunks []string) string {
	t.Helper()
	var b strings.Builder
	for _, c := range chunks {
		require.Regexp(t, partMarkerRe, c)
		b.WriteString(partMarkerRe.ReplaceAllString(c, ""))
	}
	return b.String()
}

func TestSegmentShortTextUnchanged(t *testing.T) {
	tests := []string{
		"",
		"hello",
		"  padded  ",
		strings.Repeat("a", 100),
		strings.Repeat("é", 100), // multi-byte runes count once
	}
	for _, text := range tests {
		got := Segment(text, 100)
		require.Len(t, got, 1)
		assert.Equal(t, text, got[0])
	}
}

func TestSegmentLongText(t *testing.T) {
	paragraphs := strings.Repeat("This is a sentence in a paragraph. Another one follows here!\n", 8)
	tests := []struct {
		name  string
		text  string
		limit int
	}{
		{"paragraphs", strings.Repeat(paragraphs+"\n", 10), 300},
		{"sentences only", strings.Repeat("Short sentence number one. Is this another? Yes it is! ", 40), 200},
		{"no boundaries", strings.Repeat("x", 1234), 100},
		{"lines only", strings.Repeat("line of text without punctuation\n", 50), 150},
		{"multi-byte", strings.Repeat("ünïcödé wörds hère. ", 200), 500},
		{"discord limit", strings.Repeat("word ", 1500), MessageLimit},
		{"four digit part count", strings.Repeat("x", 100100), 100},
		{"narrow window", strings.Repeat("abcdefghij", 5), 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Segment(tt.text, tt.limit)
			require.Greater(t, len(chunks), 1)

			for i, c := range chunks {
				assert.LessOrEqual(t, len([]rune(c)), tt.limit, "chunk %d too long", i)
				m := partMarkerRe.FindStringSubmatch(c)
				require.NotNil(t, m)
				assert.Equal(t, strings.TrimSpace(strings.TrimPrefix(c, m[0])), strings.TrimPrefix(c, m[0]))
			}

			assert.Equal(t, stripWhitespace(tt.text), stripWhitespace(reconstruct(t, chunks)))
		})
	}
}

func TestSegmentLimitTooSmallForMarkers(t *testing.T) {
	tests := []struct {
		text  string
		limit int
	}{
		{strings.Repeat("abcdefghij", 5), 10},
		{strings.Repeat("abcdefghij", 5), 1},
		{strings.Repeat("x", 200), 13},
	}
	for _, tt := range tests {
		chunks := Segment(tt.text, tt.limit)
		require.Greater(t, len(chunks), 1)
		for i, c := range chunks {
			assert.LessOrEqual(t, len([]rune(c)), tt.limit, "chunk %d too long", i)
			assert.NotRegexp(t, partMarkerRe, c)
		}
		assert.Equal(t, tt.text, strings.Join(chunks, ""))
	}
}

func TestMarkerWidth(t *testing.T) {
	assert.Equal(t, len("[Part 9/9] "), markerWidth(9))
	assert.Equal(t, len("[Part 1000/1000] "), markerWidth(1000))
}

func TestSegmentPrefersParagraphBreak(t *testing.T) {
	first := strings.Repeat("a", 60)
	second := strings.Repeat("b", 60)
	chunks := Segment(first+"\n\n"+second, 100)
	require.Len(t, chunks, 2)
	assert.Equal(t, "[Part 1/2] "+first, chunks[0])
	assert.Equal(t, "[Part 2/2] "+second, chunks[1])
}

func TestSegmentKeepsSentencePunctuation(t *testing.T) {
	first := strings.Repeat("a", 70) + "."
	second := strings.Repeat("b", 60)
	chunks := Segment(first+" "+second, 100)
	require.Len(t, chunks, 2)
	assert.Equal(t, "[Part 1/2] "+first, chunks[0])
	assert.Equal(t, "[Part 2/2] "+second, chunks[1])
}

func TestSegmentIgnoresEarlyBoundaries(t *testing.T) {
	// paragraph break too early in the window falls through to a hard cut
	text := "ab\n\n" + strings.Repeat("c", 200)
	chunks := Segment(text, 100)
	require.Greater(t, len(chunks), 1)
	assert.Equal(t, "[Part 1/3] ab\n\n"+strings.Repeat("c", 85), chunks[0])
}

func TestFindSplitPoint(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		window int
		want   int
	}{
		{"hard cut", strings.Repeat("x", 50), 20, 20},
		{"paragraph", strings.Repeat("x", 12) + "\n\n" + strings.Repeat("y", 20), 20, 12},
		{"sentence", strings.Repeat("x", 15) + ". " + strings.Repeat("y", 20), 20, 16},
		{"newline", strings.Repeat("x", 16) + "\n" + strings.Repeat("y", 20), 20, 16},
		{"newline too early", strings.Repeat("x", 5) + "\n" + strings.Repeat("y", 20), 20, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, findSplitPoint([]rune(tt.text), tt.window))
		})
	}
}

func TestDeliverSendsInOrder(t *testing.T) {
	var sent []string
	err := Deliver(context.Background(), []string{"a", "b", "c"}, func(s string) error {
		sent = append(sent, s)
		return nil
	}, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, sent)
}

func TestDeliverStopsAtFirstError(t *testing.T) {
	boom := errors.New("boom")
	var sent []string
	err := Deliver(context.Background(), []string{"a", "b", "c"}, func(s string) error {
		if s == "b" {
			return boom
		}
		sent = append(sent, s)
		return nil
	}, 0)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "part 2/3")
	assert.Equal(t, []string{"a"}, sent)
}

func TestDeliverHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var sent []string
	err := Deliver(ctx, []string{"a", "b"}, func(s string) error {
		sent = append(sent, s)
		cancel()
		return nil
	}, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"a"}, sent)
}
