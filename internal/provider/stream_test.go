package provider

import (
	"encoding/json"
	"testing"
)

func TestParseStreamMessage_Assistant(t *testing.T) {
	line := []byte(`{"type":"assistant","session_id":"abc","message":{"role":"assistant","content":[{"type":"text","text":"Sure, checking..."},{"type":"tool_use","id":"t1","name":"Bash","input":{"command":"ls"}}]}}`)

	msg, err := parseStreamMessage(line)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if msg.Type != "assistant" || msg.SessionID != "abc" {
		t.Errorf("msg = %+v", msg)
	}

	events := translate(msg)
	if len(events) != 2 {
		t.Fatalf("translated %d events, want 2", len(events))
	}

	td, ok := events[0].(TextDelta)
	if !ok || td.Text != "Sure, checking..." {
		t.Errorf("events[0] = %#v", events[0])
	}
	tu, ok := events[1].(ToolUseBegin)
	if !ok || tu.ID != "t1" || tu.Name != "Bash" {
		t.Errorf("events[1] = %#v", events[1])
	}
	var input struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal(tu.Input, &input); err != nil || input.Command != "ls" {
		t.Errorf("tool input = %s", tu.Input)
	}
}

func TestParseStreamMessage_ToolResultString(t *testing.T) {
	line := []byte(`{"type":"user","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"t1","content":"file1\nfile2","is_error":false}]}}`)

	msg, err := parseStreamMessage(line)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	events := translate(msg)
	if len(events) != 1 {
		t.Fatalf("translated %d events, want 1", len(events))
	}
	tr, ok := events[0].(ToolResult)
	if !ok || tr.ToolUseID != "t1" || tr.Content != "file1\nfile2" || tr.IsError {
		t.Errorf("events[0] = %#v", events[0])
	}
}

func TestParseStreamMessage_ToolResultArray(t *testing.T) {
	line := []byte(`{"type":"user","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"t2","content":[{"type":"text","text":"part one"},{"type":"text","text":"part two"}],"is_error":true}]}}`)

	msg, err := parseStreamMessage(line)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	events := translate(msg)
	tr, ok := events[0].(ToolResult)
	if !ok || tr.Content != "part one\npart two" || !tr.IsError {
		t.Errorf("events[0] = %#v", events[0])
	}
}

func TestParseStreamMessage_Result(t *testing.T) {
	line := []byte(`{"type":"result","subtype":"success","session_id":"abc","is_error":false,"result":"done","usage":{"input_tokens":100,"output_tokens":50,"cache_read_input_tokens":2000}}`)

	msg, err := parseStreamMessage(line)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	events := translate(msg)
	if len(events) != 1 {
		t.Fatalf("translated %d events, want 1", len(events))
	}
	tc, ok := events[0].(TurnComplete)
	if !ok || tc.SessionID != "abc" || tc.IsError {
		t.Errorf("events[0] = %#v", events[0])
	}
	if got := tc.Usage.ContextTokens(); got != 2100 {
		t.Errorf("ContextTokens() = %d, want 2100", got)
	}
}

func TestParseStreamMessage_ControlRequest(t *testing.T) {
	line := []byte(`{"type":"control_request","request_id":"r1","request":{"subtype":"can_use_tool","tool_name":"Write","input":{"file_path":"/tmp/x"}}}`)

	msg, err := parseStreamMessage(line)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if msg.Request == nil || msg.Request.Subtype != "can_use_tool" || msg.Request.ToolName != "Write" {
		t.Errorf("request = %+v", msg.Request)
	}

	// Control requests produce no turn events.
	if events := translate(msg); len(events) != 0 {
		t.Errorf("translated %d events, want 0", len(events))
	}
}

func TestParseStreamMessage_NestedParent(t *testing.T) {
	line := []byte(`{"type":"assistant","parent_tool_use_id":"task1","message":{"role":"assistant","content":[{"type":"tool_use","id":"t9","name":"Read","input":{}}]}}`)

	msg, err := parseStreamMessage(line)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	events := translate(msg)
	tu, ok := events[0].(ToolUseBegin)
	if !ok || tu.ParentToolUseID != "task1" {
		t.Errorf("events[0] = %#v", events[0])
	}
}

func TestParseStreamMessage_Empty(t *testing.T) {
	msg, err := parseStreamMessage(nil)
	if err != nil || msg != nil {
		t.Errorf("empty line: msg=%v err=%v", msg, err)
	}
}

func TestParseStreamMessage_Invalid(t *testing.T) {
	if _, err := parseStreamMessage([]byte("not json")); err == nil {
		t.Error("invalid JSON should error")
	}
}

func TestTranslate_SystemIgnored(t *testing.T) {
	msg := &streamMessage{Type: "system", Subtype: "init"}
	if events := translate(msg); len(events) != 0 {
		t.Errorf("system message produced %d events", len(events))
	}
}
