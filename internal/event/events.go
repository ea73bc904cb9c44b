// Package event defines the events agents push to the UI observer and a
// small generic emitter for synchronous lifecycle subscriptions.
package event

import (
	"encoding/json"

	"github.com/chicdev/chic/internal/chat"
)

// Type identifies the kind of an AgentEvent.
type Type string

const (
	// TypeTextChunk carries streamed assistant text.
	TypeTextChunk Type = "text_chunk"
	// TypeToolUseAdded announces a pending tool call.
	TypeToolUseAdded Type = "tool_use_added"
	// TypeToolResultAdded reports a tool call's result arriving.
	TypeToolResultAdded Type = "tool_result_added"
	// TypePermissionNeeded surfaces a queued approval request.
	TypePermissionNeeded Type = "permission_needed"
	// TypeStatusChanged reports an agent status transition.
	TypeStatusChanged Type = "status_changed"
	// TypeComplete ends a turn.
	TypeComplete Type = "complete"
	// TypeError reports a categorized failure (see the Category* constants).
	TypeError Type = "error"
)

// Error categories carried on TypeError events. Stable strings: the UI
// decides between "show and continue" and "require reconnect" from these.
const (
	CategoryConnect   = "connect"
	CategoryTransport = "transport"
	CategorySend      = "send"
	CategoryCompact   = "compaction"
)

// AgentEvent is one event pushed from an agent to the observer sink. Events
// are ordered per agent; there is no ordering across agents.
type AgentEvent struct {
	Type    Type
	AgentID string

	// TypeTextChunk
	Text            string
	ParentToolUseID string

	// TypeToolUseAdded / TypeToolResultAdded; Block points into the
	// streaming item and later into history, so the UI sees results attach.
	Block     *chat.ToolUseBlock
	ToolUseID string

	// TypePermissionNeeded
	RequestID string
	ToolName  string
	ToolInput json.RawMessage

	// TypeStatusChanged
	Status string

	// TypeComplete
	Item *chat.ChatItem

	// TypeError
	Category string
	Err      error
}

// Sink receives agent events. Implementations must not block for long; the
// emitting agent's turn goroutine is the caller.
type Sink func(AgentEvent)
