package tools

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Validator is implemented by parameter structs that can check themselves
type Validator interface {
	Validate() error
}

// ReadParams are the arguments of read_messages
type ReadParams struct {
	Channel string `mapstructure:"channel"`
	Limit   *int   `mapstructure:"limit"`
	Server  string `mapstructure:"server"`
}

// Validate implements Validator
func (p *ReadParams) Validate() error {
	if strings.TrimSpace(p.Channel) == "" {
		return errors.New("channel is required")
	}
	return nil
}

// Count returns the requested limit clamped to [1, MaxReadLimit], or the default
func (p *ReadParams) Count() int {
	if p.Limit == nil {
		return DefaultReadLimit
	}
	n := *p.Limit
	if n < 1 {
		return 1
	}
	if n > MaxReadLimit {
		return MaxReadLimit
	}
	return n
}

// SendParams are the arguments of send_message
type SendParams struct {
	Channel string `mapstructure:"channel"`
	Message string `mapstructure:"message"`
	Server  string `mapstructure:"server"`
}

// Validate implements Validator
func (p *SendParams) Validate() error {
	if strings.TrimSpace(p.Channel) == "" {
		return errors.New("channel is required")
	}
	if strings.TrimSpace(p.Message) == "" {
		return errors.New("message is required and cannot be empty")
	}
	if n := len([]rune(p.Message)); n > MaxSendLength {
		return fmt.Errorf("message is %d characters, the limit is %d", n, MaxSendLength)
	}
	return nil
}

// ListParams are the arguments of list_servers (none)
type ListParams struct{}

// decodeParams decodes args into out with weak typing ("10" -> 10, 12 -> "12")
// and runs Validate when out implements Validator.
func decodeParams(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if v, ok := out.(Validator); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
