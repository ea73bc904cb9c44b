package chat

import (
	"encoding/json"
	"testing"
)

func TestToolUseBlockSetResult(t *testing.T) {
	tu := &ToolUseBlock{ID: "t1", Name: "Bash"}

	if tu.HasResult {
		t.Fatal("new block should not have a result")
	}

	tu.SetResult("file1\nfile2", false)
	if !tu.HasResult || tu.Result != "file1\nfile2" || tu.IsError {
		t.Errorf("unexpected block after SetResult: %+v", tu)
	}

	// A second result must not overwrite the first.
	tu.SetResult("other", true)
	if tu.Result != "file1\nfile2" || tu.IsError {
		t.Errorf("result was overwritten: %+v", tu)
	}
}

func TestToolUseBlockComplete(t *testing.T) {
	parent := &ToolUseBlock{ID: "task1", Name: "Task"}
	child := &ToolUseBlock{ID: "t1", Name: "Read"}
	parent.AddChild(child)

	parent.SetResult("done", false)
	if parent.Complete() {
		t.Error("parent should not be complete while a child is pending")
	}

	child.SetResult("contents", false)
	if !parent.Complete() {
		t.Error("parent should be complete once all children have results")
	}
}

func TestFindToolUseNested(t *testing.T) {
	parent := &ToolUseBlock{ID: "task1", Name: "Task"}
	inner := &ToolUseBlock{ID: "t2", Name: "Grep"}
	parent.AddChild(&ToolUseBlock{ID: "t1", Name: "Read"})
	parent.AddChild(inner)

	content := &AssistantContent{}
	content.Append(&TextBlock{Text: "working"})
	content.Append(parent)

	if got := content.FindToolUse("t2"); got != inner {
		t.Errorf("FindToolUse(t2) = %v, want nested block", got)
	}
	if got := content.FindToolUse("missing"); got != nil {
		t.Errorf("FindToolUse(missing) = %v, want nil", got)
	}
}

func TestChatItemJSONRoundTrip(t *testing.T) {
	item := NewAssistantItem()
	ac := item.Assistant()
	ac.Append(&TextBlock{Text: "Sure, checking..."})
	tu := &ToolUseBlock{ID: "t1", Name: "Bash", Input: json.RawMessage(`{"command":"ls"}`)}
	tu.SetResult("file1\nfile2", false)
	ac.Append(tu)
	ac.Append(&TextBlock{Text: "Found 2 files."})

	data, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var restored ChatItem
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	rc := restored.Assistant()
	if rc == nil {
		t.Fatal("restored item is not assistant content")
	}
	if len(rc.Blocks) != 3 {
		t.Fatalf("restored %d blocks, want 3", len(rc.Blocks))
	}
	if rc.Text() != "Sure, checking...\nFound 2 files." {
		t.Errorf("restored text = %q", rc.Text())
	}
	rtu := rc.FindToolUse("t1")
	if rtu == nil || rtu.Result != "file1\nfile2" || !rtu.HasResult {
		t.Errorf("restored tool use = %+v", rtu)
	}
}

func TestUserItemJSONRoundTrip(t *testing.T) {
	item := NewUserItem("hello", []ImageAttachment{
		{Path: "shot.png", MediaType: "image/png", Data: "aGk="},
	})

	data, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var restored ChatItem
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	uc := restored.User()
	if uc == nil || uc.Text != "hello" || len(uc.Images) != 1 {
		t.Errorf("restored user content = %+v", uc)
	}
}
