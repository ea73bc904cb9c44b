package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
)

// maxHistorySize limits the number of entries stored in input history.
const maxHistorySize = 100

// maxInputHeight limits how tall the input can grow (in lines of content).
const maxInputHeight = 8

// InputLine is the prompt entry component.
type InputLine struct {
	width   int
	focused bool
	input   textarea.Model

	// Slash-command names for the completion hint.
	commandNames []string

	// Input history for up/down navigation
	history      []string
	historyIndex int    // -1 means not browsing history
	savedInput   string // saved current input while browsing
}

// NewInputLine creates a new input line component.
func NewInputLine() InputLine {
	ta := textarea.New()
	ta.Placeholder = "Message (/ for commands, ! for shell)"
	ta.CharLimit = 16384
	ta.Prompt = "> "
	ta.ShowLineNumbers = false
	ta.SetHeight(1)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	return InputLine{
		input:        ta,
		historyIndex: -1,
	}
}

// SetSize updates the component dimensions.
func (i *InputLine) SetSize(width int) {
	i.width = width
	i.input.SetWidth(width - 6)
}

// SetCommandNames supplies slash-command names for the completion hint.
func (i *InputLine) SetCommandNames(names []string) {
	i.commandNames = names
}

// SetFocused sets the focus state.
func (i *InputLine) SetFocused(focused bool) {
	i.focused = focused
	if focused {
		i.input.Focus()
	} else {
		i.input.Blur()
	}
}

// Update handles input events and returns a command.
func (i *InputLine) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	i.input, cmd = i.input.Update(msg)
	i.updateHeight()
	return cmd
}

// Value returns the current input value.
func (i *InputLine) Value() string {
	return i.input.Value()
}

// SetValue replaces the input value.
func (i *InputLine) SetValue(s string) {
	i.input.SetValue(s)
	i.input.CursorEnd()
	i.updateHeight()
}

// Clear resets the input value.
func (i *InputLine) Clear() {
	i.input.SetValue("")
	i.input.SetHeight(1)
}

// SetPlaceholder sets the placeholder text.
func (i *InputLine) SetPlaceholder(text string) {
	i.input.Placeholder = text
}

// CompletionHint returns matching command names when the input is a slash
// prefix, for display above the input line.
func (i *InputLine) CompletionHint() string {
	value := i.input.Value()
	if !strings.HasPrefix(value, "/") || strings.ContainsAny(value, " \n") {
		return ""
	}
	prefix := value[1:]
	var matches []string
	for _, name := range i.commandNames {
		if strings.HasPrefix(name, prefix) {
			matches = append(matches, "/"+name)
		}
	}
	if len(matches) == 0 {
		return ""
	}
	return strings.Join(matches, "  ")
}

// View renders the input line.
func (i InputLine) View() string {
	style := inputLineStyle
	if i.focused {
		style = inputLineFocusedStyle
	}
	view := i.input.View()
	if hint := i.CompletionHint(); hint != "" {
		view = statusStyle.Render(hint) + "\n" + view
	}
	return style.Width(i.width).Render(view)
}

// AddToHistory adds the given input to history if non-empty.
func (i *InputLine) AddToHistory(input string) {
	if input == "" {
		return
	}
	if len(i.history) > 0 && i.history[len(i.history)-1] == input {
		return
	}
	i.history = append(i.history, input)
	if len(i.history) > maxHistorySize {
		i.history = i.history[len(i.history)-maxHistorySize:]
	}
	i.historyIndex = -1
	i.savedInput = ""
}

// HistoryUp navigates to the previous (older) history entry.
// Returns true if the input was changed.
func (i *InputLine) HistoryUp() bool {
	if len(i.history) == 0 {
		return false
	}
	if i.historyIndex == -1 {
		i.savedInput = i.input.Value()
		i.historyIndex = len(i.history) - 1
	} else if i.historyIndex > 0 {
		i.historyIndex--
	} else {
		return false
	}
	i.input.SetValue(i.history[i.historyIndex])
	i.input.CursorEnd()
	return true
}

// HistoryDown navigates to the next (newer) history entry.
// Returns true if the input was changed.
func (i *InputLine) HistoryDown() bool {
	if i.historyIndex == -1 {
		return false
	}
	if i.historyIndex < len(i.history)-1 {
		i.historyIndex++
		i.input.SetValue(i.history[i.historyIndex])
		i.input.CursorEnd()
		return true
	}
	i.historyIndex = -1
	i.input.SetValue(i.savedInput)
	i.input.CursorEnd()
	i.savedInput = ""
	return true
}

// InsertNewline inserts a newline at the cursor (shift+enter).
func (i *InputLine) InsertNewline() {
	i.input.InsertString("\n")
	i.updateHeight()
}

// ContentHeight returns the height needed for the current content,
// clamped to [1, maxInputHeight].
func (i *InputLine) ContentHeight() int {
	lines := i.input.LineCount()
	if lines < 1 {
		lines = 1
	}
	if lines > maxInputHeight {
		lines = maxInputHeight
	}
	return lines
}

func (i *InputLine) updateHeight() {
	i.input.SetHeight(i.ContentHeight())
}
