// Package tools implements the messaging operations the model may invoke:
// reading a channel, sending to a channel and listing servers.
package tools

import "strings"

// Operation is the closed set of operations the executor knows how to run
type Operation int

const (
	OpUnknown Operation = iota
	OpReadMessages
	OpSendMessage
	OpListServers
)

// Wire names the model uses to call each operation
const (
	NameReadMessages = "read_messages"
	NameSendMessage  = "send_message"
	NameListServers  = "list_servers"
)

// ParseOperation maps a model-supplied name onto an Operation.
// Matching ignores case and surrounding whitespace; anything else is OpUnknown.
func ParseOperation(name string) Operation {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameReadMessages:
		return OpReadMessages
	case NameSendMessage:
		return OpSendMessage
	case NameListServers:
		return OpListServers
	default:
		return OpUnknown
	}
}

// String returns the wire name, or "unknown"
func (o Operation) String() string {
	switch o {
	case OpReadMessages:
		return NameReadMessages
	case OpSendMessage:
		return NameSendMessage
	case OpListServers:
		return NameListServers
	default:
		return "unknown"
	}
}
