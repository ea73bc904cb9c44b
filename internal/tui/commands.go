package tui

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chicdev/chic/internal/agent"
	"github.com/chicdev/chic/internal/event"
	"github.com/chicdev/chic/internal/session"
)

// shellTimeout bounds inline /shell commands.
const shellTimeout = 2 * time.Minute

// waitForEvent reads the next agent event from the manager's fan-in channel.
func waitForEvent(ch <-chan event.AgentEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return agentEventMsg{Closed: true}
		}
		return agentEventMsg{Event: ev}
	}
}

// tickCmd drives the spinner animation.
func tickCmd() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// clearNoticeCmd clears the transient notice after a delay.
func clearNoticeCmd() tea.Cmd {
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg {
		return clearNoticeMsg{}
	})
}

// sendCmd sends a prompt to an agent.
func sendCmd(a *agent.Agent, text string) tea.Cmd {
	return func() tea.Msg {
		err := a.Send(context.Background(), text, nil)
		return sendResultMsg{AgentID: a.ID, Err: err}
	}
}

// interruptCmd cancels an agent's in-flight turn.
func interruptCmd(a *agent.Agent) tea.Cmd {
	return func() tea.Msg {
		if err := a.Interrupt(); err != nil {
			return sendResultMsg{AgentID: a.ID, Err: err}
		}
		return nil
	}
}

// createAgentCmd creates (or resumes) an agent. When replaceID is set, that
// agent is closed after the new one connects.
func createAgentCmd(mgr *agent.Manager, name, resumeSessionID, replaceID string) tea.Cmd {
	return func() tea.Msg {
		a, err := mgr.CreateAgent(context.Background(), name, resumeSessionID)
		if err != nil {
			return createResultMsg{Err: err}
		}
		if replaceID != "" {
			if err := mgr.CloseAgent(replaceID); err != nil {
				return createResultMsg{Agent: a, Err: err}
			}
		}
		return createResultMsg{Agent: a}
	}
}

// closeAgentCmd closes one agent.
func closeAgentCmd(mgr *agent.Manager, id string) tea.Cmd {
	return func() tea.Msg {
		if err := mgr.CloseAgent(id); err != nil {
			return sendResultMsg{AgentID: id, Err: err}
		}
		return createResultMsg{Agent: mgr.Active()}
	}
}

// listSessionsCmd loads stored sessions for the picker.
func listSessionsCmd(store *session.Store, cwd string) tea.Cmd {
	return func() tea.Msg {
		infos, err := store.ListSessions(cwd)
		return sessionListMsg{Sessions: infos, Err: err}
	}
}

// compactCmd runs the compactor against a stored session.
func compactCmd(store *session.Store, compactor *session.Compactor, cwd, sessionID string, dryRun bool) tea.Cmd {
	return func() tea.Msg {
		history, err := store.LoadHistory(cwd, sessionID)
		if err != nil {
			return compactResultMsg{Err: fmt.Errorf("load session: %w", err)}
		}
		compacted, stats := compactor.Compact(history, dryRun)
		if !dryRun {
			if err := store.Rewrite(cwd, sessionID, compacted); err != nil {
				return compactResultMsg{Err: err}
			}
		}
		return compactResultMsg{Stats: stats, DryRun: dryRun}
	}
}

// shellCmd runs an inline shell command with captured output.
func shellCmd(command, cwd string) tea.Cmd {
	return func() tea.Msg {
		shell := os.Getenv("SHELL")
		if shell == "" {
			shell = "/bin/sh"
		}
		ctx, cancel := context.WithTimeout(context.Background(), shellTimeout)
		defer cancel()

		cmd := exec.CommandContext(ctx, shell, "-lc", command)
		cmd.Dir = cwd
		out, err := cmd.CombinedOutput()
		return shellResultMsg{
			Command: command,
			Output:  strings.TrimRight(string(out), "\n"),
			Err:     err,
		}
	}
}
