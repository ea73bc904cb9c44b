// Package agent implements the per-agent state machine: each agent owns a
// model client connection, a conversation history, and a permission mode,
// and folds streamed provider events into chat items for its observer.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chicdev/chic/internal/chat"
	"github.com/chicdev/chic/internal/event"
	"github.com/chicdev/chic/internal/id"
	"github.com/chicdev/chic/internal/permission"
	"github.com/chicdev/chic/internal/provider"
	"github.com/chicdev/chic/internal/session"
)

// Status is an agent's lifecycle state.
type Status string

const (
	// StatusIdle means no turn is running; the agent accepts sends.
	StatusIdle Status = "idle"
	// StatusBusy means a turn is in flight.
	StatusBusy Status = "busy"
	// StatusNeedsInput means a permission request is waiting on the user.
	StatusNeedsInput Status = "needs_input"
)

var (
	// ErrBusy is returned by Send while a turn is in flight.
	ErrBusy = errors.New("agent is busy")
	// ErrNotConnected is returned when the agent has no live connection.
	ErrNotConnected = errors.New("agent is not connected")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("agent is closed")
)

// contentQuerier is implemented by clients that accept structured content
// parts alongside the prompt text. ClaudeClient implements it; test fakes
// need not.
type contentQuerier interface {
	QueryWithContent(ctx context.Context, prompt string, extra []any) (<-chan provider.Event, error)
}

// Agent is one independent conversation with the model. All exported
// methods are safe for concurrent use.
type Agent struct {
	ID        string
	Name      string
	Cwd       string
	CreatedAt time.Time

	client provider.ModelClient
	gate   *permission.Gate
	store  *session.Store
	sink   event.Sink

	mu sync.Mutex
	// +checklocks:mu
	status Status
	// +checklocks:mu
	mode permission.Mode
	// +checklocks:mu
	history []*chat.ChatItem
	// +checklocks:mu
	sessionID string
	// +checklocks:mu
	connected bool
	// +checklocks:mu
	closed bool
	// +checklocks:mu
	turnCancel context.CancelFunc
	// +checklocks:mu
	turnDone chan struct{}
}

// Options configures a new agent.
type Options struct {
	Name string
	Cwd  string
	Mode permission.Mode
}

// New creates a disconnected agent. Call Connect before Send.
func New(client provider.ModelClient, gate *permission.Gate, store *session.Store, sink event.Sink, opts Options) *Agent {
	mode := opts.Mode
	if mode == "" {
		mode = permission.ModeDefault
	}
	a := &Agent{
		ID:        id.Generate(),
		Name:      opts.Name,
		Cwd:       opts.Cwd,
		CreatedAt: time.Now(),
		client:    client,
		gate:      gate,
		store:     store,
		sink:      sink,
		status:    StatusIdle,
		mode:      mode,
	}
	if a.Name == "" {
		a.Name = "agent-" + a.ID
	}
	return a
}

// Connect establishes the model connection. With a resume session ID the
// prior conversation's history is loaded from the store and the provider
// resumes its server-side context.
func (a *Agent) Connect(ctx context.Context, resumeSessionID string) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrClosed
	}
	if a.connected {
		a.mu.Unlock()
		return provider.ErrAlreadyStarted
	}
	a.mu.Unlock()

	err := a.client.Connect(ctx, provider.ConnectOptions{
		Cwd:             a.Cwd,
		ResumeSessionID: resumeSessionID,
		PermissionFunc:  a.permissionFunc,
	})
	if err != nil {
		a.emit(event.AgentEvent{
			Type:     event.TypeError,
			AgentID:  a.ID,
			Category: event.CategoryConnect,
			Err:      err,
		})
		return fmt.Errorf("connecting agent %s: %w", a.ID, err)
	}

	var history []*chat.ChatItem
	if resumeSessionID != "" && a.store != nil {
		history, err = a.store.LoadHistory(a.Cwd, resumeSessionID)
		if err != nil {
			slog.Warn("loading resumed history", "agent", a.ID, "session", resumeSessionID, "error", err)
			history = nil
		}
	}

	a.mu.Lock()
	a.connected = true
	a.sessionID = resumeSessionID
	if history != nil {
		a.history = history
	}
	a.mu.Unlock()
	return nil
}

// Send starts a new turn with the given prompt. It returns immediately;
// turn progress arrives on the event sink. Images, if any, are attached as
// structured content parts.
func (a *Agent) Send(ctx context.Context, text string, images []chat.ImageAttachment) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrClosed
	}
	if !a.connected {
		a.mu.Unlock()
		return ErrNotConnected
	}
	if a.status != StatusIdle {
		a.mu.Unlock()
		return ErrBusy
	}

	userItem := chat.NewUserItem(text, images)
	a.history = append(a.history, userItem)

	turnCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	a.turnCancel = cancel
	a.turnDone = done
	changed := a.setStatusLocked(StatusBusy)
	a.mu.Unlock()
	if changed {
		a.emitStatus(StatusBusy)
	}

	events, err := a.query(turnCtx, text, images)
	if err != nil {
		a.mu.Lock()
		a.turnCancel = nil
		a.turnDone = nil
		changed = a.setStatusLocked(StatusIdle)
		a.mu.Unlock()
		if changed {
			a.emitStatus(StatusIdle)
		}
		cancel()
		close(done)
		a.emit(event.AgentEvent{
			Type:     event.TypeError,
			AgentID:  a.ID,
			Category: event.CategorySend,
			Err:      err,
		})
		return fmt.Errorf("sending prompt: %w", err)
	}

	go a.runTurn(turnCtx, cancel, done, userItem, events)
	return nil
}

func (a *Agent) query(ctx context.Context, text string, images []chat.ImageAttachment) (<-chan provider.Event, error) {
	if len(images) > 0 {
		if cq, ok := a.client.(contentQuerier); ok {
			extra := make([]any, 0, len(images))
			for _, img := range images {
				extra = append(extra, provider.ImagePart(img.MediaType, img.Data))
			}
			return cq.QueryWithContent(ctx, text, extra)
		}
	}
	return a.client.Query(ctx, text)
}

// runTurn folds provider events until the turn completes, is interrupted,
// or the transport fails. History and the session store are only appended
// at turn end; display streaming happens through the sink.
func (a *Agent) runTurn(ctx context.Context, cancel context.CancelFunc, done chan struct{}, userItem *chat.ChatItem, events <-chan provider.Event) {
	defer close(done)
	defer cancel()

	acc := NewAccumulator(a.ID, a.sink)
	for {
		select {
		case <-ctx.Done():
			a.finishTurn(userItem, acc.Finalize())
			a.emit(event.AgentEvent{
				Type:    event.TypeComplete,
				AgentID: a.ID,
				Item:    acc.Item(),
			})
			return

		case ev, ok := <-events:
			if !ok {
				if acc.Closed() {
					return
				}
				// Channel closed without TurnComplete: transport died.
				a.failTurn(userItem, acc, errors.New("model connection closed mid-turn"))
				return
			}
			switch e := ev.(type) {
			case provider.ConnectionError:
				a.failTurn(userItem, acc, e.Err)
				return

			case provider.TurnComplete:
				a.mu.Lock()
				if e.SessionID != "" {
					a.sessionID = e.SessionID
				}
				a.mu.Unlock()
				acc.Apply(ev)
				a.finishTurn(userItem, acc.Item())
				return

			default:
				acc.Apply(ev)
			}
		}
	}
}

// failTurn ends a turn on transport failure: partial content is committed
// like an interrupted turn, then the error is reported.
func (a *Agent) failTurn(userItem *chat.ChatItem, acc *Accumulator, err error) {
	item := acc.Finalize()
	a.finishTurn(userItem, item)
	if item != nil {
		a.emit(event.AgentEvent{
			Type:    event.TypeComplete,
			AgentID: a.ID,
			Item:    item,
		})
	}
	a.emit(event.AgentEvent{
		Type:     event.TypeError,
		AgentID:  a.ID,
		Category: event.CategoryTransport,
		Err:      err,
	})
}

// finishTurn appends the turn's items to history, persists them, and
// returns the agent to idle. assistantItem may be nil (nothing streamed
// before an interrupt).
func (a *Agent) finishTurn(userItem, assistantItem *chat.ChatItem) {
	a.mu.Lock()
	if assistantItem != nil {
		a.history = append(a.history, assistantItem)
	}
	if a.sessionID == "" {
		a.sessionID = id.GenerateSession()
	}
	sessionID := a.sessionID
	a.turnCancel = nil
	a.turnDone = nil
	changed := a.setStatusLocked(StatusIdle)
	a.mu.Unlock()
	if changed {
		a.emitStatus(StatusIdle)
	}

	if a.store != nil {
		items := []*chat.ChatItem{userItem}
		if assistantItem != nil {
			items = append(items, assistantItem)
		}
		if err := a.store.Append(a.Cwd, sessionID, items); err != nil {
			slog.Warn("persisting turn", "agent", a.ID, "session", sessionID, "error", err)
		}
	}
}

// Interrupt cancels the in-flight turn. Partial streamed content is kept.
// A no-op when the agent is idle.
func (a *Agent) Interrupt() error {
	a.mu.Lock()
	if a.status == StatusIdle || a.turnCancel == nil {
		a.mu.Unlock()
		return nil
	}
	cancel := a.turnCancel
	done := a.turnDone
	a.mu.Unlock()

	if err := a.client.Interrupt(); err != nil {
		slog.Warn("sending interrupt", "agent", a.ID, "error", err)
	}
	cancel()
	if done != nil {
		<-done
	}
	return nil
}

// permissionFunc is handed to the provider; it runs on a per-request
// goroutine and blocks until the gate resolves. Only that goroutine waits,
// so event folding for the rest of the turn keeps flowing.
func (a *Agent) permissionFunc(toolName string, input json.RawMessage, toolUseID string) provider.PermissionDecision {
	a.mu.Lock()
	mode := a.mode
	a.mu.Unlock()

	d := <-a.gate.Request(a.ID, mode, toolName, input)

	// If that was the last pending request, the agent goes back to busy.
	a.mu.Lock()
	changed := false
	if a.status == StatusNeedsInput && a.gate.PendingCount(a.ID) == 0 {
		changed = a.setStatusLocked(StatusBusy)
	}
	a.mu.Unlock()
	if changed {
		a.emitStatus(StatusBusy)
	}

	if d.Allowed() {
		return provider.PermissionDecision{Allow: true}
	}
	return provider.PermissionDecision{Allow: false, Message: d.Message}
}

// HandleSurfaced is called when the gate surfaces a queued request for this
// agent. The agent flags itself as needing input and forwards the request
// to the observer.
func (a *Agent) HandleSurfaced(req *permission.Request) {
	a.mu.Lock()
	changed := false
	if a.status == StatusBusy {
		changed = a.setStatusLocked(StatusNeedsInput)
	}
	a.mu.Unlock()
	if changed {
		a.emitStatus(StatusNeedsInput)
	}

	a.emit(event.AgentEvent{
		Type:      event.TypePermissionNeeded,
		AgentID:   a.ID,
		RequestID: req.ID,
		ToolName:  req.ToolName,
		ToolInput: req.Input,
	})
}

// Status returns the agent's current lifecycle state.
func (a *Agent) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Mode returns the agent's permission mode.
func (a *Agent) Mode() permission.Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// SetMode changes the permission mode. It applies to requests evaluated
// after the change; queued requests keep the mode they were evaluated
// under.
func (a *Agent) SetMode(m permission.Mode) {
	a.mu.Lock()
	a.mode = m
	a.mu.Unlock()
}

// CycleMode advances default -> accept-edits -> plan -> default and
// returns the new mode.
func (a *Agent) CycleMode() permission.Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mode = a.mode.Cycle()
	return a.mode
}

// SessionID returns the provider session ID, empty before the first turn
// completes on a fresh agent.
func (a *Agent) SessionID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessionID
}

// History returns a copy of the committed conversation. The in-flight
// turn's item is not included until the turn ends.
func (a *Agent) History() []*chat.ChatItem {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*chat.ChatItem, len(a.history))
	copy(out, a.history)
	return out
}

// Close interrupts any in-flight turn, denies this agent's queued
// permission requests, and tears down the connection. Idempotent.
func (a *Agent) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	cancel := a.turnCancel
	done := a.turnDone
	connected := a.connected
	a.connected = false
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	if a.gate != nil {
		a.gate.CloseAgent(a.ID)
	}
	if connected {
		if err := a.client.Disconnect(); err != nil {
			return fmt.Errorf("closing agent %s: %w", a.ID, err)
		}
	}
	return nil
}

// setStatusLocked changes status and reports whether it changed. The
// caller emits StatusChanged after releasing the lock.
// +checklocks:mu
func (a *Agent) setStatusLocked(s Status) bool {
	if a.status == s {
		return false
	}
	a.status = s
	return true
}

func (a *Agent) emitStatus(s Status) {
	a.emit(event.AgentEvent{
		Type:    event.TypeStatusChanged,
		AgentID: a.ID,
		Status:  string(s),
	})
}

func (a *Agent) emit(ev event.AgentEvent) {
	if a.sink != nil {
		a.sink(ev)
	}
}
