package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/chicdev/chic/internal/command"
	"github.com/chicdev/chic/internal/event"
	"github.com/chicdev/chic/internal/permission"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()
		return m, nil

	case tickMsg:
		m.tabs.Tick()
		return m, tickCmd()

	case agentEventMsg:
		if msg.Closed {
			return m, tea.Quit
		}
		return m.handleAgentEvent(msg.Event)

	case lifecycleMsg:
		m.syncRoster()
		m.layout()
		return m, nil

	case createResultMsg:
		if msg.Err != nil {
			return m.fail(msg.Err)
		}
		m.picker = nil
		m.syncRoster()
		m.layout()
		return m, nil

	case sendResultMsg:
		if msg.Err != nil {
			return m.fail(msg.Err)
		}
		return m, nil

	case sessionListMsg:
		if msg.Err != nil {
			return m.fail(msg.Err)
		}
		m.picker = NewSessionPicker(msg.Sessions)
		m.layout()
		return m, nil

	case compactResultMsg:
		if msg.Err != nil {
			return m.fail(msg.Err)
		}
		verb := "compacted"
		if msg.DryRun {
			verb = "would compact"
		}
		m.notice = fmt.Sprintf("%s %d blocks, saving %d bytes (~%d tokens)",
			verb, msg.Stats.BlocksCompacted, msg.Stats.BytesSaved, msg.Stats.TokensSaved)
		return m, clearNoticeCmd()

	case shellResultMsg:
		note := "$ " + msg.Command
		if msg.Output != "" {
			note += "\n" + msg.Output
		}
		if msg.Err != nil {
			note += "\n" + msg.Err.Error()
		}
		m.chat.AddNote(note)
		return m, nil

	case clearNoticeMsg:
		m.notice = ""
		m.errMsg = ""
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	cmd := m.input.Update(msg)
	return m, cmd
}

// handleAgentEvent folds one manager event and re-arms the channel read.
func (m Model) handleAgentEvent(ev event.AgentEvent) (tea.Model, tea.Cmd) {
	m.chat.Apply(ev)

	switch ev.Type {
	case event.TypePermissionNeeded:
		if ev.AgentID == m.chat.AgentID() && m.prompt == nil {
			m.prompt = NewPermissionPrompt(ev.RequestID, ev.AgentID, ev.ToolName, ev.ToolInput)
			m.layout()
		}
	case event.TypeComplete, event.TypeError:
		if ev.AgentID == m.chat.AgentID() {
			m.syncPrompt()
			m.layout()
		}
	}
	return m, waitForEvent(m.mgr.Events())
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}

	if m.picker != nil {
		return m.handlePickerKey(msg)
	}
	if m.prompt != nil {
		return m.handlePromptKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.CycleMode):
		if a := m.mgr.Active(); a != nil {
			m.notice = "permission mode: " + string(a.CycleMode())
			return m, clearNoticeCmd()
		}
		return m, nil

	case key.Matches(msg, m.keys.NewAgent):
		return m, createAgentCmd(m.mgr, "", "", "")

	case key.Matches(msg, m.keys.CloseAgent):
		if a := m.mgr.Active(); a != nil {
			return m, closeAgentCmd(m.mgr, a.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.NextAgent):
		return m.switchRelative(1)

	case key.Matches(msg, m.keys.PrevAgent):
		return m.switchRelative(-1)

	case key.Matches(msg, m.keys.Interrupt):
		if a := m.mgr.Active(); a != nil {
			return m, interruptCmd(a)
		}
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.chat.ScrollUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.chat.ScrollDown()
		return m, nil

	case key.Matches(msg, m.keys.Newline):
		m.input.InsertNewline()
		m.layout()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	}

	// Number keys with alt switch agents directly.
	if s := msg.String(); len(s) == 5 && strings.HasPrefix(s, "alt+") && s[4] >= '1' && s[4] <= '9' {
		if _, err := m.mgr.SwitchTo(int(s[4]-'1')); err == nil {
			m.syncRoster()
			m.layout()
		}
		return m, nil
	}

	// Up/down browse input history when not editing multiline text.
	switch msg.String() {
	case "up":
		if m.input.HistoryUp() {
			m.layout()
			return m, nil
		}
	case "down":
		if m.input.HistoryDown() {
			m.layout()
			return m, nil
		}
	}

	cmd := m.input.Update(msg)
	m.layout()
	return m, cmd
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.picker.Up()
	case "down", "j":
		m.picker.Down()
	case "enter":
		if info := m.picker.Selected(); info != nil {
			return m, createAgentCmd(m.mgr, "", info.ID, "")
		}
		m.picker = nil
		m.layout()
	case "esc":
		m.picker = nil
		m.layout()
	}
	return m, nil
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.prompt.EnteringMessage {
		switch {
		case key.Matches(msg, m.keys.Submit):
			message := strings.TrimSpace(m.input.Value())
			m.input.Clear()
			return m.resolvePrompt(permission.DenyWithAlternative, message)
		case key.Matches(msg, m.keys.Cancel):
			m.prompt.EnteringMessage = false
			m.input.Clear()
			m.input.SetPlaceholder("Message (/ for commands, ! for shell)")
			return m, nil
		}
		cmd := m.input.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Allow):
		return m.resolvePrompt(permission.Allow, "")
	case key.Matches(msg, m.keys.Deny):
		return m.resolvePrompt(permission.Deny, "")
	case key.Matches(msg, m.keys.AllowSession):
		return m.resolvePrompt(permission.AllowSession, "")
	case key.Matches(msg, m.keys.AllowAll):
		return m.resolvePrompt(permission.AllowAll, "")
	case key.Matches(msg, m.keys.DenyWithMsg):
		m.prompt.EnteringMessage = true
		m.input.SetPlaceholder("Tell the model what to do instead...")
		return m, nil
	case key.Matches(msg, m.keys.NextAgent):
		return m.switchRelative(1)
	case key.Matches(msg, m.keys.PrevAgent):
		return m.switchRelative(-1)
	}
	return m, nil
}

// resolvePrompt answers the surfaced request and shows the next one, if
// already queued.
func (m Model) resolvePrompt(behavior permission.Behavior, message string) (tea.Model, tea.Cmd) {
	requestID := m.prompt.RequestID
	m.prompt = nil
	m.input.SetPlaceholder("Message (/ for commands, ! for shell)")

	if err := m.gate.Resolve(requestID, permission.Decision{Behavior: behavior, Message: message}); err != nil {
		return m.fail(err)
	}
	m.syncPrompt()
	m.layout()
	return m, nil
}

func (m Model) switchRelative(delta int) (tea.Model, tea.Cmd) {
	agents := m.mgr.List()
	if len(agents) == 0 {
		return m, nil
	}
	current := 0
	activeID := m.chat.AgentID()
	for i, a := range agents {
		if a.ID == activeID {
			current = i
			break
		}
	}
	next := (current + delta + len(agents)) % len(agents)
	if _, err := m.mgr.SwitchTo(next); err == nil {
		m.syncRoster()
		m.layout()
	}
	return m, nil
}

// submit sends or routes the input line's content.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	m.input.AddToHistory(text)
	m.input.Clear()
	m.layout()

	inv := m.registry.Parse(text)
	switch inv.Kind {
	case command.KindNone:
		return m.sendPrompt(text)

	case command.KindCustom:
		return m.sendPrompt(inv.Def.Expand(inv.Args))

	case command.KindClear:
		replaceID := ""
		name := ""
		if a := m.mgr.Active(); a != nil {
			replaceID = a.ID
			name = a.Name
		}
		return m, createAgentCmd(m.mgr, name, "", replaceID)

	case command.KindResume:
		if inv.Args != "" {
			return m, createAgentCmd(m.mgr, "", inv.Args, "")
		}
		return m, listSessionsCmd(m.store, m.cwd)

	case command.KindAgent:
		return m.handleAgentCommand(inv.Args)

	case command.KindCompact:
		a := m.mgr.Active()
		if a == nil || a.SessionID() == "" {
			return m.fail(fmt.Errorf("no active session to compact"))
		}
		dry := strings.Contains(inv.Args, "--dry") || strings.Contains(inv.Args, "-n")
		return m, compactCmd(m.store, m.compactor, m.cwd, a.SessionID(), dry)

	case command.KindShell:
		if inv.Args == "" {
			return m.fail(fmt.Errorf("usage: !<command>"))
		}
		return m, shellCmd(inv.Args, m.cwd)

	case command.KindExit:
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) sendPrompt(text string) (tea.Model, tea.Cmd) {
	a := m.mgr.Active()
	if a == nil {
		return m.fail(fmt.Errorf("no active agent"))
	}
	m.chat.AddUser(text)
	return m, sendCmd(a, text)
}

// handleAgentCommand routes /agent [close [n]] | [name].
func (m Model) handleAgentCommand(args string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(args)

	if len(fields) == 0 {
		var lines []string
		for i, a := range m.mgr.List() {
			marker := " "
			if a.ID == m.chat.AgentID() {
				marker = ">"
			}
			lines = append(lines, fmt.Sprintf("%s %d  %-16s %s", marker, i+1, a.Name, a.Status()))
		}
		if len(lines) == 0 {
			lines = []string{"no agents"}
		}
		m.chat.AddNote(strings.Join(lines, "\n"))
		return m, nil
	}

	if fields[0] == "close" {
		target := m.mgr.Active()
		if len(fields) > 1 {
			idx := 0
			if _, err := fmt.Sscanf(fields[1], "%d", &idx); err == nil {
				if agents := m.mgr.List(); idx >= 1 && idx <= len(agents) {
					target = agents[idx-1]
				}
			}
		}
		if target == nil {
			return m.fail(fmt.Errorf("no agent to close"))
		}
		return m, closeAgentCmd(m.mgr, target.ID)
	}

	return m, createAgentCmd(m.mgr, fields[0], "", "")
}

// fail records an error on the status bar.
func (m Model) fail(err error) (tea.Model, tea.Cmd) {
	m.errMsg = err.Error()
	return m, clearNoticeCmd()
}
