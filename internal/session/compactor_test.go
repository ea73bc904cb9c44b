package session

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/chicdev/chic/internal/chat"
)

// buildHistory creates numTurns user/assistant pairs; every assistant turn
// carries one tool use with a large result.
func buildHistory(numTurns int, resultSize int) []*chat.ChatItem {
	var history []*chat.ChatItem
	for i := 0; i < numTurns; i++ {
		history = append(history, chat.NewUserItem("do something", nil))

		item := chat.NewAssistantItem()
		tu := &chat.ToolUseBlock{ID: "t" + string(rune('0'+i)), Name: "Bash"}
		tu.SetResult(strings.Repeat("x", resultSize), false)
		item.Assistant().Append(tu)
		item.Assistant().Append(&chat.TextBlock{Text: "done"})
		history = append(history, item)
	}
	return history
}

func TestCompact_KeepsRecentTurns(t *testing.T) {
	c := NewCompactor(2, 100)
	history := buildHistory(5, 500)

	out, stats := c.Compact(history, false)

	if stats.BlocksCompacted != 3 {
		t.Errorf("compacted %d blocks, want 3 (5 turns - 2 kept)", stats.BlocksCompacted)
	}

	// The two most recent assistant turns are untouched (same pointers).
	for i := len(out) - 4; i < len(out); i++ {
		if out[i] != history[i] {
			t.Errorf("recent item %d was replaced", i)
		}
	}

	// Older tool results carry the compaction marker, ids preserved.
	old := out[1].Assistant().ToolUses()[0]
	if !old.Compacted || !strings.HasPrefix(old.Result, "[compacted:") {
		t.Errorf("old block = %+v", old)
	}
	if old.ID != history[1].Assistant().ToolUses()[0].ID {
		t.Error("block id changed during compaction")
	}
}

func TestCompact_SkipsResultsShorterThanSummary(t *testing.T) {
	// A tiny threshold makes small results eligible, but replacing a
	// 40-byte result with a ~100-byte summary would grow the session.
	c := NewCompactor(1, 10)
	history := buildHistory(3, 40)

	out, stats := c.Compact(history, false)

	if stats.BlocksCompacted != 0 {
		t.Errorf("compacted %d blocks, want 0", stats.BlocksCompacted)
	}
	if stats.BytesSaved != 0 {
		t.Errorf("bytes saved = %d, want 0", stats.BytesSaved)
	}
	for i := range out {
		if out[i] != history[i] {
			t.Errorf("item %d was replaced despite no savings", i)
		}
	}
}

func TestCompact_InputNotMutated(t *testing.T) {
	c := NewCompactor(1, 100)
	history := buildHistory(3, 500)

	before, err := json.Marshal(history)
	if err != nil {
		t.Fatal(err)
	}

	c.Compact(history, false)

	after, err := json.Marshal(history)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("Compact mutated its input")
	}
}

func TestCompact_DryRun(t *testing.T) {
	c := NewCompactor(1, 100)
	history := buildHistory(3, 500)

	before, _ := json.Marshal(history)
	out, stats := c.Compact(history, true)
	after, _ := json.Marshal(out)

	if stats.BlocksCompacted != 2 || stats.BytesSaved <= 0 {
		t.Errorf("dry-run stats = %+v", stats)
	}
	if stats.TokensSaved != stats.BytesSaved/4 {
		t.Errorf("TokensSaved = %d, want %d", stats.TokensSaved, stats.BytesSaved/4)
	}
	if string(before) != string(after) {
		t.Error("dry run changed the history")
	}
}

func TestCompact_Idempotent(t *testing.T) {
	c := NewCompactor(1, 100)
	history := buildHistory(4, 500)

	once, stats1 := c.Compact(history, false)
	if stats1.BytesSaved == 0 {
		t.Fatal("first pass saved nothing")
	}

	twice, stats2 := c.Compact(once, false)
	if stats2.BytesSaved != 0 || stats2.BlocksCompacted != 0 {
		t.Errorf("second pass stats = %+v, want zero", stats2)
	}

	a, _ := json.Marshal(once)
	b, _ := json.Marshal(twice)
	if string(a) != string(b) {
		t.Error("second pass changed the history")
	}
}

func TestCompact_SmallResultsUntouched(t *testing.T) {
	c := NewCompactor(1, 1024)
	history := buildHistory(3, 100) // all results below threshold

	_, stats := c.Compact(history, false)
	if stats.BlocksCompacted != 0 {
		t.Errorf("compacted %d small blocks, want 0", stats.BlocksCompacted)
	}
}

func TestCompact_NestedChildren(t *testing.T) {
	c := NewCompactor(1, 100)

	history := []*chat.ChatItem{chat.NewUserItem("run the task", nil)}
	item := chat.NewAssistantItem()
	parent := &chat.ToolUseBlock{ID: "task1", Name: "Task"}
	child := &chat.ToolUseBlock{ID: "c1", Name: "Read"}
	child.SetResult(strings.Repeat("y", 400), false)
	parent.AddChild(child)
	parent.SetResult("ok", false)
	item.Assistant().Append(parent)
	history = append(history, item)

	// Add a recent turn so the Task turn is old enough to compact.
	recent := chat.NewAssistantItem()
	history = append(history, chat.NewUserItem("next", nil), recent)

	out, stats := c.Compact(history, false)
	if stats.BlocksCompacted != 1 {
		t.Fatalf("compacted %d blocks, want 1 (the child)", stats.BlocksCompacted)
	}

	got := out[1].Assistant().FindToolUse("c1")
	if got == nil || !got.Compacted {
		t.Errorf("nested child not compacted: %+v", got)
	}
	// Original child untouched.
	if history[1].Assistant().FindToolUse("c1").Compacted {
		t.Error("original nested child was mutated")
	}
}

func TestCompact_FewTurns(t *testing.T) {
	c := NewCompactor(3, 100)
	history := buildHistory(2, 500)

	out, stats := c.Compact(history, false)
	if stats.BlocksCompacted != 0 {
		t.Errorf("compacted %d, want 0 when history is within the keep window", stats.BlocksCompacted)
	}
	for i := range out {
		if out[i] != history[i] {
			t.Error("items replaced despite no compaction")
		}
	}
}
