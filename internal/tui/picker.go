package tui

import (
	"fmt"
	"strings"

	"github.com/chicdev/chic/internal/session"
)

// SessionPicker is the /resume session chooser.
type SessionPicker struct {
	width    int
	height   int
	sessions []session.Info
	cursor   int
}

// NewSessionPicker creates a picker over stored sessions, newest first.
func NewSessionPicker(sessions []session.Info) *SessionPicker {
	return &SessionPicker{sessions: sessions}
}

// SetSize updates the picker dimensions.
func (p *SessionPicker) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// Up moves the cursor up.
func (p *SessionPicker) Up() {
	if p.cursor > 0 {
		p.cursor--
	}
}

// Down moves the cursor down.
func (p *SessionPicker) Down() {
	if p.cursor < len(p.sessions)-1 {
		p.cursor++
	}
}

// Selected returns the session under the cursor, or nil when empty.
func (p *SessionPicker) Selected() *session.Info {
	if len(p.sessions) == 0 {
		return nil
	}
	return &p.sessions[p.cursor]
}

// View renders the picker.
func (p *SessionPicker) View() string {
	var b strings.Builder
	b.WriteString(pickerTitleStyle.Render("Resume a session (enter to pick, esc to cancel)"))
	b.WriteString("\n")

	if len(p.sessions) == 0 {
		b.WriteString(pickerRowStyle.Render("No stored sessions for this directory."))
		return b.String()
	}

	visible := p.sessions
	maxRows := p.height - 2
	if maxRows > 0 && len(visible) > maxRows {
		start := p.cursor - maxRows/2
		if start < 0 {
			start = 0
		}
		if start+maxRows > len(visible) {
			start = len(visible) - maxRows
		}
		visible = visible[start : start+maxRows]
	}

	for i, info := range visible {
		row := fmt.Sprintf("%s  %s  %s",
			info.ID,
			info.UpdatedAt.Format("Jan 02 15:04"),
			info.Preview,
		)
		if len(row) > p.width-4 && p.width > 7 {
			row = row[:p.width-7] + "..."
		}
		style := pickerRowStyle
		if p.sessions[p.cursor].ID == visible[i].ID {
			style = pickerSelectedStyle
		}
		b.WriteString(style.Render(row))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
