package tui

import (
	"encoding/json"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// PermissionPrompt shows the surfaced permission request for the visible
// agent and collects one of the five resolutions.
type PermissionPrompt struct {
	width     int
	RequestID string
	AgentID   string
	ToolName  string
	Input     json.RawMessage

	// EnteringMessage is set while the user types a deny-with-message
	// alternative in the input line.
	EnteringMessage bool
}

// NewPermissionPrompt creates a prompt for one surfaced request.
func NewPermissionPrompt(requestID, agentID, toolName string, input json.RawMessage) *PermissionPrompt {
	return &PermissionPrompt{
		RequestID: requestID,
		AgentID:   agentID,
		ToolName:  toolName,
		Input:     input,
	}
}

// SetWidth updates the prompt width.
func (p *PermissionPrompt) SetWidth(width int) {
	p.width = width
}

// View renders the prompt.
func (p *PermissionPrompt) View() string {
	if p.EnteringMessage {
		return permPromptStyle.Width(p.width).Render(
			permLabelStyle.Render("Deny with message:") + " type guidance, enter to send, esc to cancel")
	}

	detail := summarizeInput(p.Input)
	header := lipgloss.JoinHorizontal(lipgloss.Center,
		permLabelStyle.Render("Permission: "),
		permToolStyle.Render(p.ToolName),
		" ",
		detail,
	)
	choices := statusStyle.Render("y: allow  n: deny  s: allow for session  a: allow all queued  m: deny with message")
	return permPromptStyle.Width(p.width).Render(header + "\n" + choices)
}

// summarizeInput flattens the tool input for a one-line display.
func summarizeInput(input json.RawMessage) string {
	var fields map[string]any
	if err := json.Unmarshal(input, &fields); err != nil {
		return compressInput(string(input))
	}
	// Prefer the fields users actually decide on.
	for _, key := range []string{"command", "file_path", "url", "pattern"} {
		if v, ok := fields[key].(string); ok && v != "" {
			return compressInput(v)
		}
	}
	var parts []string
	for k, v := range fields {
		if s, ok := v.(string); ok {
			parts = append(parts, k+"="+s)
		}
	}
	return compressInput(strings.Join(parts, " "))
}
