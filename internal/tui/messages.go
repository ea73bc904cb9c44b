package tui

import (
	"time"

	"github.com/chicdev/chic/internal/agent"
	"github.com/chicdev/chic/internal/event"
	"github.com/chicdev/chic/internal/session"
)

// agentEventMsg wraps one agent event from the manager's fan-in channel.
type agentEventMsg struct {
	Event event.AgentEvent
	// Closed is set when the channel was closed (manager shut down).
	Closed bool
}

// lifecycleMsg wraps a roster or selection change.
type lifecycleMsg struct {
	Change agent.Lifecycle
}

// sendResultMsg is the result of sending a prompt to an agent.
type sendResultMsg struct {
	AgentID string
	Err     error
}

// createResultMsg is the result of creating (or resuming) an agent.
type createResultMsg struct {
	Agent *agent.Agent
	Err   error
}

// sessionListMsg carries stored sessions for the picker.
type sessionListMsg struct {
	Sessions []session.Info
	Err      error
}

// compactResultMsg is the result of a compaction run.
type compactResultMsg struct {
	Stats  session.Stats
	DryRun bool
	Err    error
}

// shellResultMsg carries captured output of an inline shell command.
type shellResultMsg struct {
	Command string
	Output  string
	Err     error
}

// tickMsg drives the spinner animation.
type tickMsg time.Time

// clearNoticeMsg clears the transient notice after a timeout.
type clearNoticeMsg struct{}
