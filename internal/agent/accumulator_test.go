package agent

import (
	"encoding/json"
	"testing"

	"github.com/chicdev/chic/internal/chat"
	"github.com/chicdev/chic/internal/event"
	"github.com/chicdev/chic/internal/provider"
)

func collectSink(events *[]event.AgentEvent) event.Sink {
	return func(ev event.AgentEvent) {
		*events = append(*events, ev)
	}
}

func TestAccumulatorTextOnly(t *testing.T) {
	var events []event.AgentEvent
	acc := NewAccumulator("a1", collectSink(&events))

	acc.Apply(provider.TextDelta{Text: "Hello, "})
	acc.Apply(provider.TextDelta{Text: "world."})
	acc.Apply(provider.TurnComplete{SessionID: "s1"})

	item := acc.Item()
	if item == nil {
		t.Fatal("expected an item")
	}
	if got := item.Assistant().Text(); got != "Hello, world." {
		t.Errorf("text = %q, want %q", got, "Hello, world.")
	}
	if len(item.Assistant().Blocks) != 1 {
		t.Errorf("blocks = %d, want 1 merged text block", len(item.Assistant().Blocks))
	}
	if !acc.Closed() {
		t.Error("expected Closed after TurnComplete")
	}

	// Two chunks then a complete carrying the item.
	if len(events) != 3 {
		t.Fatalf("events = %d, want 3", len(events))
	}
	if events[0].Type != event.TypeTextChunk || events[0].Text != "Hello, " {
		t.Errorf("first event = %+v", events[0])
	}
	if events[2].Type != event.TypeComplete || events[2].Item != item {
		t.Errorf("last event = %+v", events[2])
	}
}

func TestAccumulatorToolUseSplitsText(t *testing.T) {
	var events []event.AgentEvent
	acc := NewAccumulator("a1", collectSink(&events))

	acc.Apply(provider.TextDelta{Text: "Let me check."})
	acc.Apply(provider.ToolUseBegin{ID: "t1", Name: "Read", Input: json.RawMessage(`{"file_path":"main.go"}`)})
	acc.Apply(provider.ToolResult{ToolUseID: "t1", Content: "package main"})
	acc.Apply(provider.TextDelta{Text: "It's Go."})
	acc.Apply(provider.TurnComplete{})

	blocks := acc.Item().Assistant().Blocks
	if len(blocks) != 3 {
		t.Fatalf("blocks = %d, want text, tool_use, text", len(blocks))
	}
	if tb, ok := blocks[0].(*chat.TextBlock); !ok || tb.Text != "Let me check." {
		t.Errorf("blocks[0] = %#v", blocks[0])
	}
	tu, ok := blocks[1].(*chat.ToolUseBlock)
	if !ok {
		t.Fatalf("blocks[1] = %#v, want tool use", blocks[1])
	}
	if !tu.HasResult || tu.Result != "package main" {
		t.Errorf("tool result not attached: %+v", tu)
	}
	if tb, ok := blocks[2].(*chat.TextBlock); !ok || tb.Text != "It's Go." {
		t.Errorf("blocks[2] = %#v", blocks[2])
	}
}

func TestAccumulatorNestedToolUse(t *testing.T) {
	acc := NewAccumulator("a1", nil)

	acc.Apply(provider.ToolUseBegin{ID: "task1", Name: "Task", Input: json.RawMessage(`{}`)})
	acc.Apply(provider.ToolUseBegin{ID: "sub1", Name: "Grep", Input: json.RawMessage(`{}`), ParentToolUseID: "task1"})
	acc.Apply(provider.ToolResult{ToolUseID: "sub1", Content: "3 matches"})
	acc.Apply(provider.ToolResult{ToolUseID: "task1", Content: "done"})
	acc.Apply(provider.TurnComplete{})

	blocks := acc.Item().Assistant().Blocks
	if len(blocks) != 1 {
		t.Fatalf("blocks = %d, want just the parent task", len(blocks))
	}
	task := blocks[0].(*chat.ToolUseBlock)
	if len(task.Children) != 1 {
		t.Fatalf("children = %d, want 1", len(task.Children))
	}
	if task.Children[0].Result != "3 matches" {
		t.Errorf("child result = %q", task.Children[0].Result)
	}
	if !task.Complete() {
		t.Error("parent should be complete once child and parent have results")
	}
}

func TestAccumulatorSiblingResultsOutOfOrder(t *testing.T) {
	acc := NewAccumulator("a1", nil)

	// Two independent tools start before either finishes; results come
	// back in the opposite order.
	acc.Apply(provider.ToolUseBegin{ID: "t1", Name: "Read", Input: json.RawMessage(`{}`)})
	acc.Apply(provider.ToolUseBegin{ID: "t2", Name: "Grep", Input: json.RawMessage(`{}`)})
	acc.Apply(provider.ToolResult{ToolUseID: "t2", Content: "grep output"})
	acc.Apply(provider.ToolResult{ToolUseID: "t1", Content: "read output"})
	acc.Apply(provider.TurnComplete{})

	blocks := acc.Item().Assistant().Blocks
	if len(blocks) != 2 {
		t.Fatalf("blocks = %d, want two sibling tools", len(blocks))
	}
	first := blocks[0].(*chat.ToolUseBlock)
	second := blocks[1].(*chat.ToolUseBlock)
	if first.ID != "t1" || second.ID != "t2" {
		t.Fatalf("block order = %q, %q; want begin order t1, t2", first.ID, second.ID)
	}
	if !first.HasResult || first.Result != "read output" {
		t.Errorf("t1 result = %+v", first)
	}
	if !second.HasResult || second.Result != "grep output" {
		t.Errorf("t2 result = %+v", second)
	}
	if len(first.Children) != 0 || len(second.Children) != 0 {
		t.Error("siblings must not nest under each other")
	}
}

func TestAccumulatorResultForUnknownTool(t *testing.T) {
	var events []event.AgentEvent
	acc := NewAccumulator("a1", collectSink(&events))

	acc.Apply(provider.ToolResult{ToolUseID: "ghost", Content: "x"})

	if acc.Item() != nil {
		t.Error("unknown result should not create an item")
	}
	if len(events) != 0 {
		t.Errorf("events = %d, want 0", len(events))
	}
}

func TestAccumulatorEmptyTurnStillYieldsItem(t *testing.T) {
	acc := NewAccumulator("a1", nil)
	acc.Apply(provider.TurnComplete{})

	item := acc.Item()
	if item == nil {
		t.Fatal("empty turn must still yield a chat item")
	}
	if len(item.Assistant().Blocks) != 0 {
		t.Errorf("blocks = %d, want 0", len(item.Assistant().Blocks))
	}
}

func TestAccumulatorFinalizeKeepsPartialText(t *testing.T) {
	acc := NewAccumulator("a1", nil)
	acc.Apply(provider.TextDelta{Text: "half a thou"})

	item := acc.Finalize()
	if item == nil {
		t.Fatal("expected partial item")
	}
	if got := item.Assistant().Text(); got != "half a thou" {
		t.Errorf("text = %q", got)
	}
	if acc.Closed() {
		t.Error("finalized turn is not a completed turn")
	}
}

func TestAccumulatorFinalizeWithNoEvents(t *testing.T) {
	acc := NewAccumulator("a1", nil)
	if item := acc.Finalize(); item != nil {
		t.Errorf("expected nil item, got %+v", item)
	}
}
