package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chicdev/chic/internal/config"
	"github.com/chicdev/chic/internal/event"
	"github.com/chicdev/chic/internal/permission"
	"github.com/chicdev/chic/internal/provider"
	"github.com/chicdev/chic/internal/session"
)

// ErrNoSuchAgent is returned for lookups of unknown agent IDs or indexes.
var ErrNoSuchAgent = errors.New("no such agent")

// eventBuffer sizes the shared observer channel. Slow observers cause
// drops rather than stalled agent turns.
const eventBuffer = 256

// LifecycleKind labels manager lifecycle notifications.
type LifecycleKind string

const (
	LifecycleCreated  LifecycleKind = "created"
	LifecycleClosed   LifecycleKind = "closed"
	LifecycleSelected LifecycleKind = "selected"
)

// Lifecycle is emitted when the agent roster or selection changes.
type Lifecycle struct {
	Kind  LifecycleKind
	Agent *Agent
}

// Manager owns the agent roster: creation, teardown, selection, and the
// fan-in of every agent's events onto one observer channel. Agents are
// kept in creation order so they map stably onto numbered hotkeys.
type Manager struct {
	gate  *permission.Gate
	store *session.Store
	cfg   *config.Config
	cwd   string

	// newClient builds a fresh model client per agent; swapped in tests.
	newClient func() provider.ModelClient

	events    chan event.AgentEvent
	lifecycle event.Emitter[Lifecycle]

	mu sync.Mutex
	// +checklocks:mu
	agents []*Agent
	// +checklocks:mu
	active int
	// +checklocks:mu
	closed bool
}

// NewManager creates a manager for agents working in cwd.
func NewManager(cfg *config.Config, gate *permission.Gate, store *session.Store, cwd string) *Manager {
	m := &Manager{
		gate:  gate,
		store: store,
		cfg:   cfg,
		cwd:   cwd,
		newClient: func() provider.ModelClient {
			return provider.NewClaudeClient(cfg.Binary())
		},
		events: make(chan event.AgentEvent, eventBuffer),
		active: -1,
	}
	gate.OnSurfaced(m.routeSurfaced)
	return m
}

// SetClientFactory replaces the model client constructor. Must be called
// before the first CreateAgent.
func (m *Manager) SetClientFactory(fn func() provider.ModelClient) {
	m.newClient = fn
}

// Events returns the shared observer channel. All agents' events arrive
// here, ordered per agent.
func (m *Manager) Events() <-chan event.AgentEvent {
	return m.events
}

// OnLifecycle subscribes to roster and selection changes.
func (m *Manager) OnLifecycle(fn func(Lifecycle)) {
	m.lifecycle.Subscribe(fn)
}

// CreateAgent connects a new agent and makes it the active one. An empty
// name gets a generated default; a non-empty resumeSessionID restores that
// session's conversation.
func (m *Manager) CreateAgent(ctx context.Context, name, resumeSessionID string) (*Agent, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	if name == "" {
		name = fmt.Sprintf("agent %d", len(m.agents)+1)
	}
	m.mu.Unlock()

	mode, err := permission.ParseMode(m.cfg.Mode())
	if err != nil {
		mode = permission.ModeDefault
	}
	a := New(m.newClient(), m.gate, m.store, m.sink, Options{
		Name: name,
		Cwd:  m.cwd,
		Mode: mode,
	})
	if err := a.Connect(ctx, resumeSessionID); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.agents = append(m.agents, a)
	m.active = len(m.agents) - 1
	m.mu.Unlock()

	slog.Info("agent created", "agent", a.ID, "name", a.Name, "resume", resumeSessionID)
	m.lifecycle.Emit(Lifecycle{Kind: LifecycleCreated, Agent: a})
	m.lifecycle.Emit(Lifecycle{Kind: LifecycleSelected, Agent: a})
	return a, nil
}

// CloseAgent tears down the agent with the given ID and removes it from
// the roster. Other agents' in-flight turns are unaffected. If the closed
// agent was active, selection moves to the agent now at its index, or the
// last agent, or nothing.
func (m *Manager) CloseAgent(id string) error {
	m.mu.Lock()
	idx := -1
	for i, a := range m.agents {
		if a.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return ErrNoSuchAgent
	}
	a := m.agents[idx]
	m.agents = append(m.agents[:idx], m.agents[idx+1:]...)
	switch {
	case len(m.agents) == 0:
		m.active = -1
	case m.active > idx:
		m.active--
	case m.active == idx && m.active >= len(m.agents):
		m.active = len(m.agents) - 1
	}
	var selected *Agent
	if m.active >= 0 {
		selected = m.agents[m.active]
	}
	m.mu.Unlock()

	if err := a.Close(); err != nil {
		slog.Warn("closing agent", "agent", a.ID, "error", err)
	}
	slog.Info("agent closed", "agent", a.ID)
	m.lifecycle.Emit(Lifecycle{Kind: LifecycleClosed, Agent: a})
	if selected != nil {
		m.lifecycle.Emit(Lifecycle{Kind: LifecycleSelected, Agent: selected})
	}
	return nil
}

// SwitchTo makes the agent at the given roster index active.
func (m *Manager) SwitchTo(index int) (*Agent, error) {
	m.mu.Lock()
	if index < 0 || index >= len(m.agents) {
		m.mu.Unlock()
		return nil, ErrNoSuchAgent
	}
	m.active = index
	a := m.agents[index]
	m.mu.Unlock()

	m.lifecycle.Emit(Lifecycle{Kind: LifecycleSelected, Agent: a})
	return a, nil
}

// Active returns the selected agent, or nil when the roster is empty.
func (m *Manager) Active() *Agent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active < 0 {
		return nil
	}
	return m.agents[m.active]
}

// Get returns the agent with the given ID.
func (m *Manager) Get(id string) (*Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.agents {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, ErrNoSuchAgent
}

// List returns the roster in creation order.
func (m *Manager) List() []*Agent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Agent, len(m.agents))
	copy(out, m.agents)
	return out
}

// Close tears down every agent and closes the observer channel.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	agents := make([]*Agent, len(m.agents))
	copy(agents, m.agents)
	m.agents = nil
	m.active = -1
	m.mu.Unlock()

	var firstErr error
	for _, a := range agents {
		if err := a.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	close(m.events)
	return firstErr
}

// sink is each agent's event sink: fan-in onto the shared channel. When
// the observer falls behind the event is dropped instead of blocking the
// emitting turn.
func (m *Manager) sink(ev event.AgentEvent) {
	// The send is non-blocking, so holding mu here is cheap; it also
	// guarantees nothing is sent after Close flips closed.
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	select {
	case m.events <- ev:
	default:
		slog.Warn("dropping agent event, observer behind", "agent", ev.AgentID, "type", ev.Type)
	}
}

// routeSurfaced forwards a surfaced permission request to its agent.
func (m *Manager) routeSurfaced(req *permission.Request) {
	a, err := m.Get(req.AgentID)
	if err != nil {
		return
	}
	a.HandleSurfaced(req)
}
