package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/muesli/reflow/wordwrap"

	"github.com/chicdev/chic/internal/chat"
	"github.com/chicdev/chic/internal/event"
)

// ChatView renders one agent's conversation: committed history plus the
// streaming tail of the in-flight turn.
type ChatView struct {
	width   int
	height  int
	agentID string

	items []*chat.ChatItem

	// Streaming tail state for the current turn. tailBlocks holds live
	// pointers, so results attach without extra bookkeeping.
	tailText   strings.Builder
	tailBlocks []*chat.ToolUseBlock

	// System notes (command output, notices) pinned after the history.
	notes []string

	viewport viewport.Model
	ready    bool
}

// NewChatView creates an empty chat view.
func NewChatView() ChatView {
	return ChatView{}
}

// SetSize updates the component dimensions.
func (v *ChatView) SetSize(width, height int) {
	v.width = width
	v.height = height
	if !v.ready {
		v.viewport = viewport.New(width, height)
		v.ready = true
	} else {
		v.viewport.Width = width
		v.viewport.Height = height
	}
	v.refresh()
}

// SetAgent switches the view to another agent's conversation.
func (v *ChatView) SetAgent(agentID string, history []*chat.ChatItem) {
	v.agentID = agentID
	v.items = history
	v.resetTail()
	v.notes = nil
	v.refresh()
	v.viewport.GotoBottom()
}

// AgentID returns the agent currently shown.
func (v *ChatView) AgentID() string {
	return v.agentID
}

// Apply folds one agent event into the view. Events for other agents are
// ignored.
func (v *ChatView) Apply(ev event.AgentEvent) {
	if ev.AgentID != v.agentID {
		return
	}
	atBottom := v.viewport.AtBottom()

	switch ev.Type {
	case event.TypeTextChunk:
		v.tailText.WriteString(ev.Text)
	case event.TypeToolUseAdded:
		if ev.Block != nil && ev.Block.ParentID == "" {
			v.tailBlocks = append(v.tailBlocks, ev.Block)
		}
	case event.TypeToolResultAdded:
		// The block pointer is shared; nothing to update.
	case event.TypeComplete:
		if ev.Item != nil {
			v.items = append(v.items, ev.Item)
		}
		v.resetTail()
	case event.TypeError:
		if ev.Err != nil {
			v.notes = append(v.notes, chatErrStyle.Render("error ("+ev.Category+"): "+ev.Err.Error()))
		}
		v.resetTail()
	default:
		return
	}

	v.refresh()
	if atBottom {
		v.viewport.GotoBottom()
	}
}

// AddUser echoes a just-sent user message ahead of the turn completing.
func (v *ChatView) AddUser(text string) {
	v.items = append(v.items, chat.NewUserItem(text, nil))
	v.refresh()
	v.viewport.GotoBottom()
}

// AddNote appends a system note (command output, notices) to the transcript.
func (v *ChatView) AddNote(note string) {
	v.notes = append(v.notes, chatSystemStyle.Render(note))
	v.refresh()
	v.viewport.GotoBottom()
}

// Streaming reports whether a turn is currently rendering a tail.
func (v *ChatView) Streaming() bool {
	return v.tailText.Len() > 0 || len(v.tailBlocks) > 0
}

// ScrollUp scrolls the viewport up one page.
func (v *ChatView) ScrollUp() { v.viewport.ViewUp() }

// ScrollDown scrolls the viewport down one page.
func (v *ChatView) ScrollDown() { v.viewport.ViewDown() }

func (v *ChatView) resetTail() {
	v.tailText.Reset()
	v.tailBlocks = nil
}

// refresh rebuilds the viewport content.
func (v *ChatView) refresh() {
	if !v.ready {
		return
	}

	var sections []string
	for _, item := range v.items {
		sections = append(sections, v.renderItem(item))
	}
	if tail := v.renderTail(); tail != "" {
		sections = append(sections, tail)
	}
	sections = append(sections, v.notes...)

	v.viewport.SetContent(strings.Join(sections, "\n\n"))
}

func (v *ChatView) renderItem(item *chat.ChatItem) string {
	switch item.Role {
	case chat.RoleUser:
		uc := item.User()
		text := uc.Text
		if n := len(uc.Images); n > 0 {
			text += strings.Repeat(" [image]", n)
		}
		return chatUserStyle.Render("You: ") + wordwrap.String(text, v.width-6)

	case chat.RoleAssistant:
		var parts []string
		for _, block := range item.Assistant().Blocks {
			switch b := block.(type) {
			case *chat.TextBlock:
				parts = append(parts, renderMarkdown(b.Text, v.width-2))
			case *chat.ToolUseBlock:
				parts = append(parts, v.renderToolUse(b, "  "))
			}
		}
		return chatAssistantStyle.Render("Claude:") + "\n" + strings.Join(parts, "\n")

	default:
		return ""
	}
}

func (v *ChatView) renderToolUse(b *chat.ToolUseBlock, pad string) string {
	line := pad + chatToolStyle.Render("["+b.Name+"]") + " " + compressInput(string(b.Input))

	parts := []string{line}
	for _, child := range b.Children {
		parts = append(parts, v.renderToolUse(child, pad+"  "))
	}
	if b.HasResult {
		arrow := chatResultStyle.Render("->")
		if b.IsError {
			arrow = chatErrStyle.Render("!>")
		}
		parts = append(parts, pad+arrow+" "+truncateResult(b.Result, v.width-len(pad)-4))
	} else {
		parts = append(parts, pad+chatResultStyle.Render("…"))
	}
	return strings.Join(parts, "\n")
}

// renderTail renders the in-flight turn below the committed history.
func (v *ChatView) renderTail() string {
	if !v.Streaming() {
		return ""
	}
	var parts []string
	if v.tailText.Len() > 0 {
		parts = append(parts, wordwrap.String(v.tailText.String(), v.width-2))
	}
	for _, b := range v.tailBlocks {
		parts = append(parts, v.renderToolUse(b, "  "))
	}
	return chatAssistantStyle.Render("Claude:") + "\n" + strings.Join(parts, "\n")
}

// compressInput flattens tool input JSON to a single display line.
func compressInput(input string) string {
	input = strings.Join(strings.Fields(input), " ")
	const maxLen = 80
	if len(input) > maxLen {
		return input[:maxLen-3] + "..."
	}
	return input
}

// truncateResult shows the first few lines of a tool result.
func truncateResult(result string, maxWidth int) string {
	if maxWidth < 10 {
		maxWidth = 10
	}
	lines := strings.Split(result, "\n")

	const maxLines = 5
	if len(lines) > maxLines {
		lines = lines[:maxLines]
		lines = append(lines, "...")
	}
	for i, line := range lines {
		if len(line) > maxWidth {
			lines[i] = line[:maxWidth-3] + "..."
		}
	}

	var parts []string
	for i, line := range lines {
		if i == 0 {
			parts = append(parts, line)
		} else {
			parts = append(parts, "     "+line)
		}
	}
	return strings.Join(parts, "\n")
}

// View renders the chat view.
func (v ChatView) View() string {
	if v.agentID == "" {
		return chatEmptyStyle.Width(v.width).Height(v.height).Render("No agent. ctrl+n creates one.")
	}
	if len(v.items) == 0 && !v.Streaming() && len(v.notes) == 0 {
		return chatEmptyStyle.Width(v.width).Height(v.height).Render("Type a message to begin.")
	}
	return v.viewport.View()
}
