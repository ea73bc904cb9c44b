// Package provider defines the ModelClient interface the agent core talks
// to, the provider event union it consumes, and the Claude Code CLI
// implementation. The core never assumes a particular transport; everything
// behind ModelClient is opaque.
package provider

import (
	"context"
	"encoding/json"
	"errors"
)

// Errors returned by model clients.
var (
	ErrNotConnected   = errors.New("model client is not connected")
	ErrAlreadyStarted = errors.New("model client is already connected")
	ErrTurnInProgress = errors.New("a turn is already in progress")
)

// Event is one element of the ordered per-turn event sequence a ModelClient
// produces. Concrete types: TextDelta, ToolUseBegin, ToolResult,
// TurnComplete, ConnectionError.
type Event interface {
	isEvent()
}

// TextDelta carries a span of assistant text. A display message may arrive
// as many deltas; the accumulator buffers them.
type TextDelta struct {
	Text string
	// ParentToolUseID is set when the text belongs to a nested meta-tool
	// turn (e.g. inside a Task).
	ParentToolUseID string
}

func (TextDelta) isEvent() {}

// ToolUseBegin announces a tool invocation. The result arrives later as a
// ToolResult matched by ID.
type ToolUseBegin struct {
	ID              string
	Name            string
	Input           json.RawMessage
	ParentToolUseID string
}

func (ToolUseBegin) isEvent() {}

// ToolResult carries the outcome of an earlier ToolUseBegin.
type ToolResult struct {
	ToolUseID string
	Content   string
	IsError   bool
}

func (ToolResult) isEvent() {}

// TurnComplete ends a turn. The event channel is closed after it.
type TurnComplete struct {
	SessionID string
	IsError   bool
	Result    string
	Usage     *Usage
}

func (TurnComplete) isEvent() {}

// ConnectionError reports a transport failure mid-turn. The turn is over;
// the connection must be explicitly re-established by the caller.
type ConnectionError struct {
	Err error
}

func (ConnectionError) isEvent() {}

// PermissionDecision is the answer a PermissionFunc produces for an
// in-stream tool approval request.
type PermissionDecision struct {
	Allow bool
	// Message is guidance forwarded to the model on denial, so the turn
	// continues instead of aborting.
	Message string
}

// PermissionFunc is handed to the client and awaited by the client itself
// whenever the provider asks whether a tool may run. It is called on a
// dedicated goroutine and may block until a human decides.
type PermissionFunc func(toolName string, input json.RawMessage, toolUseID string) PermissionDecision

// ConnectOptions configures a connection.
type ConnectOptions struct {
	// Cwd is the working directory for the conversation.
	Cwd string
	// ResumeSessionID resumes a stored provider session when non-empty.
	ResumeSessionID string
	// PermissionFunc arbitrates in-stream tool approval requests. Nil
	// denies everything.
	PermissionFunc PermissionFunc
}

// ModelClient is one connection to the remote coding assistant. One client
// serves one agent; calls are not safe to overlap except Interrupt and
// Disconnect, which may race a Query.
type ModelClient interface {
	// Connect establishes the connection. Idempotent failure: on error the
	// client stays unconnected and may be retried explicitly.
	Connect(ctx context.Context, opts ConnectOptions) error

	// Query starts a turn and returns its finite, ordered event sequence.
	// The channel closes after TurnComplete or ConnectionError.
	Query(ctx context.Context, prompt string) (<-chan Event, error)

	// Interrupt requests cancellation of the in-flight turn. The turn still
	// terminates through its event channel.
	Interrupt() error

	// Disconnect tears the connection down and releases resources.
	Disconnect() error
}

// Usage carries token accounting reported with TurnComplete.
type Usage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens,omitempty"`
}

// ContextTokens returns the tokens counting against the context window
// (output does not count).
func (u *Usage) ContextTokens() int {
	if u == nil {
		return 0
	}
	return u.InputTokens + u.CacheCreationInputTokens + u.CacheReadInputTokens
}
