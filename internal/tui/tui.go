// Package tui provides the Bubbletea-based terminal interface: a thin
// observer over the agent manager. All conversation logic lives in the
// agent, permission, and session packages; this package only renders
// events and translates keys into operations.
package tui

import (
	"fmt"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chicdev/chic/internal/agent"
	"github.com/chicdev/chic/internal/command"
	"github.com/chicdev/chic/internal/permission"
	"github.com/chicdev/chic/internal/session"
)

// Model is the main Bubbletea model.
type Model struct {
	width  int
	height int
	ready  bool

	mgr       *agent.Manager
	gate      *permission.Gate
	store     *session.Store
	compactor *session.Compactor
	registry  *command.Registry
	cwd       string

	tabs  TabBar
	chat  ChatView
	input InputLine
	keys  KeyBindings

	prompt *PermissionPrompt
	picker *SessionPicker

	notice string
	errMsg string

	// resumeSessionID seeds the first agent from a stored session.
	resumeSessionID string

	quitting bool
}

// Options wires the model's collaborators.
type Options struct {
	Manager   *agent.Manager
	Gate      *permission.Gate
	Store     *session.Store
	Compactor *session.Compactor
	Registry  *command.Registry
	Cwd       string

	// ResumeSessionID, when set, seeds the initial agent from a stored
	// session instead of starting fresh.
	ResumeSessionID string
}

// New creates the TUI model.
func New(opts Options) Model {
	input := NewInputLine()
	input.SetFocused(true)
	input.SetCommandNames(opts.Registry.Names())

	return Model{
		mgr:             opts.Manager,
		gate:            opts.Gate,
		store:           opts.Store,
		compactor:       opts.Compactor,
		registry:        opts.Registry,
		cwd:             opts.Cwd,
		resumeSessionID: opts.ResumeSessionID,
		tabs:            NewTabBar(),
		chat:            NewChatView(),
		input:           input,
		keys:            DefaultKeyBindings(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		waitForEvent(m.mgr.Events()),
		createAgentCmd(m.mgr, "", m.resumeSessionID, ""),
	)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	sections := []string{m.tabs.View()}

	if m.picker != nil {
		sections = append(sections, m.picker.View())
	} else {
		sections = append(sections, m.chat.View())
	}

	if m.prompt != nil {
		sections = append(sections, m.prompt.View())
	}

	sections = append(sections, m.input.View(), m.statusBar())
	return strings.Join(sections, "\n")
}

// statusBar renders the bottom bar: mode, transient notices, errors.
func (m Model) statusBar() string {
	if m.errMsg != "" {
		return errorBarStyle.Width(m.width).Render("Error: " + m.errMsg)
	}
	if m.notice != "" {
		return noticeStyle.Width(m.width).Render(m.notice)
	}

	mode := permission.ModeDefault
	status := agent.StatusIdle
	if a := m.mgr.Active(); a != nil {
		mode = a.Mode()
		status = a.Status()
	}
	left := modeStyle.Render(string(mode)) + statusStyle.Render(" "+string(status))
	help := statusStyle.Render("enter: send  esc: interrupt  shift+tab: mode  ctrl+n: new agent  ctrl+c: quit")
	return left + help
}

// layout recomputes component sizes after a resize.
func (m *Model) layout() {
	m.tabs.SetWidth(m.width)
	m.input.SetSize(m.width)

	chatHeight := m.height - 2 - m.input.ContentHeight() // tab bar + status bar
	if m.prompt != nil {
		m.prompt.SetWidth(m.width)
		chatHeight -= 2
	}
	if chatHeight < 3 {
		chatHeight = 3
	}
	m.chat.SetSize(m.width, chatHeight)
	if m.picker != nil {
		m.picker.SetSize(m.width, chatHeight)
	}
}

// syncRoster refreshes tab state and, when the active agent changed,
// swaps the chat view to its history.
func (m *Model) syncRoster() {
	active := m.mgr.Active()
	activeID := ""
	if active != nil {
		activeID = active.ID
	}
	m.tabs.SetAgents(m.mgr.List(), activeID)

	if activeID != m.chat.AgentID() {
		if active != nil {
			m.chat.SetAgent(activeID, active.History())
		} else {
			m.chat.SetAgent("", nil)
		}
		m.syncPrompt()
	}
}

// syncPrompt shows the surfaced request for the visible agent, if any.
func (m *Model) syncPrompt() {
	m.prompt = nil
	if id := m.chat.AgentID(); id != "" {
		if req := m.gate.Next(id); req != nil {
			m.prompt = NewPermissionPrompt(req.ID, req.AgentID, req.ToolName, req.Input)
			m.prompt.SetWidth(m.width)
		}
	}
}

// Run starts the TUI over an already-wired manager and blocks until exit.
// The manager is closed on the way out.
func Run(opts Options) error {
	p := tea.NewProgram(
		New(opts),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	// Roster changes can originate outside Update (agent close on error);
	// forward them into the program loop.
	opts.Manager.OnLifecycle(func(lc agent.Lifecycle) {
		go p.Send(lifecycleMsg{Change: lc})
	})

	_, err := p.Run()
	slog.Info("tui exited", "error", err)
	if cerr := opts.Manager.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("closing agents: %w", cerr)
	}
	return err
}
