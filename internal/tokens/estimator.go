// Package tokens estimates prompt sizes with tiktoken.
package tokens

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	. "github.com/roelfdiedericks/discordclaw/internal/logging"
	"github.com/roelfdiedericks/discordclaw/internal/types"
)

// DefaultEncoding is cl100k_base; close enough for most hosted models
const DefaultEncoding = "cl100k_base"

// MessageOverhead approximates role and framing tokens per turn
const MessageOverhead = 4

// Estimator counts tokens, falling back to chars/4 when no encoding is loaded
type Estimator struct {
	encoding *tiktoken.Tiktoken
	mu       sync.Mutex
}

var (
	globalEstimator     *Estimator
	globalEstimatorOnce sync.Once
)

// Get returns the global token estimator (singleton)
func Get() *Estimator {
	globalEstimatorOnce.Do(func() {
		var err error
		globalEstimator, err = New()
		if err != nil {
			L_warn("tokens: failed to load encoding, using chars/4", "error", err)
			globalEstimator = &Estimator{}
		}
	})
	return globalEstimator
}

// New loads DefaultEncoding
func New() (*Estimator, error) {
	enc, err := tiktoken.GetEncoding(DefaultEncoding)
	if err != nil {
		return nil, err
	}
	return &Estimator{encoding: enc}, nil
}

// Count returns the token count for text
func (e *Estimator) Count(text string) int {
	if e == nil || e.encoding == nil {
		return len(text) / 4
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.encoding.Encode(text, nil, nil))
}

// CountMessages estimates a whole conversation including tool calls
func (e *Estimator) CountMessages(turns []types.Message) int {
	total := 0
	for _, t := range turns {
		total += MessageOverhead + e.Count(t.Content)
		for _, tc := range t.ToolCalls {
			total += e.Count(tc.Name) + e.Count(tc.Arguments)
		}
	}
	return total
}

// Estimate counts text with the global estimator
func Estimate(text string) int {
	return Get().Count(text)
}

// EstimateMessages counts turns with the global estimator
func EstimateMessages(turns []types.Message) int {
	return Get().CountMessages(turns)
}
