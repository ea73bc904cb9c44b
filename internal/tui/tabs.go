package tui

import (
	"fmt"
	"strings"

	"github.com/chicdev/chic/internal/agent"
)

// spinnerFrames animate busy agents in the tab bar.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// TabBar renders one tab per agent with a needs-attention badge.
type TabBar struct {
	width    int
	agents   []*agent.Agent
	activeID string
	frame    int
}

// NewTabBar creates an empty tab bar.
func NewTabBar() TabBar {
	return TabBar{}
}

// SetWidth updates the bar width.
func (t *TabBar) SetWidth(width int) {
	t.width = width
}

// SetAgents replaces the roster shown.
func (t *TabBar) SetAgents(agents []*agent.Agent, activeID string) {
	t.agents = agents
	t.activeID = activeID
}

// Tick advances the spinner animation frame.
func (t *TabBar) Tick() {
	t.frame = (t.frame + 1) % len(spinnerFrames)
}

// View renders the tab bar.
func (t TabBar) View() string {
	if len(t.agents) == 0 {
		return tabBarStyle.Width(t.width).Render(tabStyle.Render("no agents"))
	}

	var tabs []string
	for idx, a := range t.agents {
		label := fmt.Sprintf("%d:%s", idx+1, a.Name)

		switch a.Status() {
		case agent.StatusBusy:
			label += " " + spinnerFrames[t.frame]
		case agent.StatusNeedsInput:
			label += " !"
		}

		style := tabStyle
		switch {
		case a.ID == t.activeID:
			style = tabActiveStyle
		case a.Status() == agent.StatusNeedsInput:
			style = tabAttentionStyle
		}
		tabs = append(tabs, style.Render(label))
	}
	return tabBarStyle.Width(t.width).Render(strings.Join(tabs, ""))
}
