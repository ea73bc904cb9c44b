package agent

import (
	"strings"

	"github.com/chicdev/chic/internal/chat"
	"github.com/chicdev/chic/internal/event"
	"github.com/chicdev/chic/internal/provider"
)

// Accumulator folds one turn's ordered provider events into a single
// assistant ChatItem and pushes display events to the sink as it goes.
//
// Text deltas are buffered and flushed as one TextBlock when a tool call
// begins or the turn ends, so many small deltas never fragment history.
// Tool calls share the item with the text spoken before them; text after a
// tool result starts a new buffer in the same item. A new ChatItem only
// ever starts with a new send.
type Accumulator struct {
	agentID string
	sink    event.Sink

	item *chat.ChatItem
	buf  strings.Builder
	// open tracks tool blocks awaiting results, including nested ones.
	open   map[string]*chat.ToolUseBlock
	closed bool
}

// NewAccumulator creates an accumulator for one turn of one agent.
func NewAccumulator(agentID string, sink event.Sink) *Accumulator {
	return &Accumulator{
		agentID: agentID,
		sink:    sink,
		open:    make(map[string]*chat.ToolUseBlock),
	}
}

// Item returns the assistant item under construction, or nil before the
// first event arrives.
func (a *Accumulator) Item() *chat.ChatItem {
	return a.item
}

// Closed reports whether the turn completed normally.
func (a *Accumulator) Closed() bool {
	return a.closed
}

// Apply folds one provider event. Events must arrive in provider order.
func (a *Accumulator) Apply(ev provider.Event) {
	switch e := ev.(type) {
	case provider.TextDelta:
		a.ensureItem()
		a.buf.WriteString(e.Text)
		a.emit(event.AgentEvent{
			Type:            event.TypeTextChunk,
			AgentID:         a.agentID,
			Text:            e.Text,
			ParentToolUseID: e.ParentToolUseID,
		})

	case provider.ToolUseBegin:
		a.ensureItem()
		a.flushText()
		block := &chat.ToolUseBlock{
			ID:    e.ID,
			Name:  e.Name,
			Input: e.Input,
		}
		if parent := a.open[e.ParentToolUseID]; parent != nil {
			parent.AddChild(block)
		} else {
			a.item.Assistant().Append(block)
		}
		a.open[e.ID] = block
		a.emit(event.AgentEvent{
			Type:    event.TypeToolUseAdded,
			AgentID: a.agentID,
			Block:   block,
		})

	case provider.ToolResult:
		block := a.open[e.ToolUseID]
		if block == nil && a.item != nil {
			block = a.item.Assistant().FindToolUse(e.ToolUseID)
		}
		if block == nil {
			// A result for a tool we never saw begin; nothing to attach to.
			return
		}
		block.SetResult(e.Content, e.IsError)
		delete(a.open, e.ToolUseID)
		a.emit(event.AgentEvent{
			Type:      event.TypeToolResultAdded,
			AgentID:   a.agentID,
			Block:     block,
			ToolUseID: e.ToolUseID,
		})

	case provider.TurnComplete:
		// An empty turn still yields an item: "the model responded" always
		// maps 1:1 to a ChatItem.
		a.ensureItem()
		a.flushText()
		a.closed = true
		a.emit(event.AgentEvent{
			Type:    event.TypeComplete,
			AgentID: a.agentID,
			Item:    a.item,
		})
	}
}

// Finalize flushes any partial text so nothing streamed is lost, and
// returns the item (nil if no event ever arrived). Used on interrupt and
// transport failure.
func (a *Accumulator) Finalize() *chat.ChatItem {
	if a.item == nil && a.buf.Len() == 0 {
		return nil
	}
	a.ensureItem()
	a.flushText()
	return a.item
}

func (a *Accumulator) ensureItem() {
	if a.item == nil {
		a.item = chat.NewAssistantItem()
	}
}

// flushText turns the buffered deltas into a completed TextBlock.
func (a *Accumulator) flushText() {
	if a.buf.Len() == 0 {
		return
	}
	a.item.Assistant().Append(&chat.TextBlock{Text: a.buf.String()})
	a.buf.Reset()
}

func (a *Accumulator) emit(ev event.AgentEvent) {
	if a.sink != nil {
		a.sink(ev)
	}
}
