package tui

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSummarizeInputPrefersDecisionFields(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bash command", `{"command":"rm -rf build","description":"clean"}`, "rm -rf build"},
		{"file path", `{"file_path":"/tmp/x.go","content":"..."}`, "/tmp/x.go"},
		{"url", `{"url":"https://example.com"}`, "https://example.com"},
		{"invalid json", `not json`, "not json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := summarizeInput(json.RawMessage(tt.input))
			if !strings.Contains(got, tt.want) {
				t.Errorf("summarizeInput(%s) = %q, want to contain %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPermissionPromptView(t *testing.T) {
	p := NewPermissionPrompt("r1", "a1", "Bash", json.RawMessage(`{"command":"make"}`))
	p.SetWidth(100)

	view := p.View()
	if !strings.Contains(view, "Bash") {
		t.Errorf("tool name missing:\n%s", view)
	}
	if !strings.Contains(view, "make") {
		t.Errorf("command missing:\n%s", view)
	}
	for _, choice := range []string{"allow", "deny", "session", "all queued", "message"} {
		if !strings.Contains(view, choice) {
			t.Errorf("choice %q missing:\n%s", choice, view)
		}
	}

	p.EnteringMessage = true
	if view := p.View(); !strings.Contains(view, "Deny with message") {
		t.Errorf("message mode missing:\n%s", view)
	}
}
