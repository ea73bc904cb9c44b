package agent

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/chicdev/chic/internal/chat"
	"github.com/chicdev/chic/internal/event"
	"github.com/chicdev/chic/internal/permission"
	"github.com/chicdev/chic/internal/provider"
	"github.com/chicdev/chic/internal/session"
)

// fakeClient is a scriptable ModelClient: tests push provider events into
// the current turn channel.
type fakeClient struct {
	mu         sync.Mutex
	connected  bool
	opts       provider.ConnectOptions
	turn       chan provider.Event
	prompts    []string
	interrupts int
}

func (f *fakeClient) Connect(_ context.Context, opts provider.ConnectOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	f.opts = opts
	return nil
}

func (f *fakeClient) Query(_ context.Context, prompt string) (<-chan provider.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turn = make(chan provider.Event, 16)
	f.prompts = append(f.prompts, prompt)
	return f.turn, nil
}

func (f *fakeClient) Interrupt() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interrupts++
	return nil
}

func (f *fakeClient) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	return nil
}

func (f *fakeClient) push(ev provider.Event) {
	f.mu.Lock()
	turn := f.turn
	f.mu.Unlock()
	turn <- ev
}

func (f *fakeClient) closeTurn() {
	f.mu.Lock()
	turn := f.turn
	f.turn = nil
	f.mu.Unlock()
	close(turn)
}

func (f *fakeClient) permissionFunc() provider.PermissionFunc {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opts.PermissionFunc
}

// waitEvent drains the sink channel until an event of the wanted type
// arrives, failing the test on timeout.
func waitEvent(t *testing.T, ch <-chan event.AgentEvent, want event.Type) event.AgentEvent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Type == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", want)
		}
	}
}

func newTestAgent(t *testing.T) (*Agent, *fakeClient, *permission.Gate, chan event.AgentEvent) {
	t.Helper()
	client := &fakeClient{}
	gate := permission.NewGate(t.TempDir(), nil)
	store := session.NewStore(t.TempDir())
	events := make(chan event.AgentEvent, 64)
	a := New(client, gate, store, func(ev event.AgentEvent) { events <- ev }, Options{
		Name: "tester",
		Cwd:  t.TempDir(),
	})
	gate.OnSurfaced(a.HandleSurfaced)
	if err := a.Connect(context.Background(), ""); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a, client, gate, events
}

func TestAgentTurnLifecycle(t *testing.T) {
	a, client, _, events := newTestAgent(t)

	if got := a.Status(); got != StatusIdle {
		t.Fatalf("status = %s, want idle", got)
	}
	if err := a.Send(context.Background(), "hello", nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	waitEvent(t, events, event.TypeStatusChanged)

	client.push(provider.TextDelta{Text: "hi there"})
	client.push(provider.TurnComplete{SessionID: "sess-1"})

	done := waitEvent(t, events, event.TypeComplete)
	if done.Item == nil || done.Item.Assistant().Text() != "hi there" {
		t.Errorf("complete item = %+v", done.Item)
	}
	if got := a.Status(); got != StatusIdle {
		t.Errorf("status after turn = %s, want idle", got)
	}
	if got := a.SessionID(); got != "sess-1" {
		t.Errorf("session ID = %q, want sess-1", got)
	}

	history := a.History()
	if len(history) != 2 {
		t.Fatalf("history = %d items, want user + assistant", len(history))
	}
	if history[0].Role != chat.RoleUser || history[1].Role != chat.RoleAssistant {
		t.Errorf("history roles = %s, %s", history[0].Role, history[1].Role)
	}
}

func TestAgentSendWhileBusy(t *testing.T) {
	a, client, _, events := newTestAgent(t)

	if err := a.Send(context.Background(), "first", nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := a.Send(context.Background(), "second", nil); err != ErrBusy {
		t.Errorf("second Send = %v, want ErrBusy", err)
	}

	client.push(provider.TurnComplete{})
	waitEvent(t, events, event.TypeComplete)

	if err := a.Send(context.Background(), "third", nil); err != nil {
		t.Errorf("Send after completion = %v", err)
	}
	client.push(provider.TurnComplete{})
	waitEvent(t, events, event.TypeComplete)
}

func TestAgentSendNotConnected(t *testing.T) {
	client := &fakeClient{}
	a := New(client, permission.NewGate(t.TempDir(), nil), nil, nil, Options{Cwd: t.TempDir()})
	if err := a.Send(context.Background(), "hi", nil); err != ErrNotConnected {
		t.Errorf("Send = %v, want ErrNotConnected", err)
	}
}

func TestAgentInterruptKeepsPartialContent(t *testing.T) {
	a, client, _, events := newTestAgent(t)

	if err := a.Send(context.Background(), "go on", nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	client.push(provider.TextDelta{Text: "started but"})
	waitEvent(t, events, event.TypeTextChunk)

	if err := a.Interrupt(); err != nil {
		t.Fatalf("Interrupt: %v", err)
	}

	if got := a.Status(); got != StatusIdle {
		t.Errorf("status after interrupt = %s, want idle", got)
	}
	if client.interrupts != 1 {
		t.Errorf("interrupts sent = %d, want 1", client.interrupts)
	}
	history := a.History()
	if len(history) != 2 {
		t.Fatalf("history = %d items, want partial assistant item kept", len(history))
	}
	if got := history[1].Assistant().Text(); got != "started but" {
		t.Errorf("partial text = %q", got)
	}
}

func TestAgentInterruptWhileIdle(t *testing.T) {
	a, client, _, _ := newTestAgent(t)
	if err := a.Interrupt(); err != nil {
		t.Fatalf("Interrupt: %v", err)
	}
	if client.interrupts != 0 {
		t.Errorf("idle interrupt reached the client")
	}
}

func TestAgentTransportFailureMidTurn(t *testing.T) {
	a, client, _, events := newTestAgent(t)

	if err := a.Send(context.Background(), "hi", nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	client.push(provider.TextDelta{Text: "partial"})
	waitEvent(t, events, event.TypeTextChunk)
	client.closeTurn()

	errEv := waitEvent(t, events, event.TypeError)
	if errEv.Category != event.CategoryTransport {
		t.Errorf("category = %s, want transport", errEv.Category)
	}
	if got := a.Status(); got != StatusIdle {
		t.Errorf("status = %s, want idle", got)
	}
	history := a.History()
	if len(history) != 2 || history[1].Assistant().Text() != "partial" {
		t.Errorf("partial content not preserved: %d items", len(history))
	}
}

func TestAgentPermissionFlow(t *testing.T) {
	a, client, gate, events := newTestAgent(t)

	if err := a.Send(context.Background(), "run something", nil); err != nil {
		t.Fatalf("Send: %v", err)
	}

	pf := client.permissionFunc()
	if pf == nil {
		t.Fatal("permission func not wired through Connect")
	}

	decisions := make(chan provider.PermissionDecision, 1)
	go func() {
		decisions <- pf("Bash", json.RawMessage(`{"command":"make"}`), "t1")
	}()

	needed := waitEvent(t, events, event.TypePermissionNeeded)
	if needed.ToolName != "Bash" {
		t.Errorf("tool = %s, want Bash", needed.ToolName)
	}
	if got := a.Status(); got != StatusNeedsInput {
		t.Errorf("status = %s, want needs_input", got)
	}

	if err := gate.Resolve(needed.RequestID, permission.Decision{Behavior: permission.Allow}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	d := <-decisions
	if !d.Allow {
		t.Error("decision should allow")
	}

	// With no more pending requests the agent resumes its turn.
	waitEvent(t, events, event.TypeStatusChanged)
	if got := a.Status(); got != StatusBusy {
		t.Errorf("status after resolve = %s, want busy", got)
	}

	client.push(provider.TurnComplete{})
	waitEvent(t, events, event.TypeComplete)
}

func TestAgentPermissionDenyWithAlternative(t *testing.T) {
	a, client, gate, events := newTestAgent(t)

	if err := a.Send(context.Background(), "edit", nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	pf := client.permissionFunc()

	decisions := make(chan provider.PermissionDecision, 1)
	go func() {
		decisions <- pf("Write", json.RawMessage(`{"file_path":"/etc/motd"}`), "t1")
	}()

	needed := waitEvent(t, events, event.TypePermissionNeeded)
	if err := gate.Resolve(needed.RequestID, permission.Decision{
		Behavior: permission.DenyWithAlternative,
		Message:  "use the scratch dir",
	}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	d := <-decisions
	if d.Allow {
		t.Error("decision should deny")
	}
	if d.Message != "use the scratch dir" {
		t.Errorf("message = %q", d.Message)
	}

	client.push(provider.TurnComplete{})
	waitEvent(t, events, event.TypeComplete)
}

func TestAgentModeCycling(t *testing.T) {
	a, _, _, _ := newTestAgent(t)

	if got := a.Mode(); got != permission.ModeDefault {
		t.Fatalf("initial mode = %s", got)
	}
	if got := a.CycleMode(); got != permission.ModeAcceptEdits {
		t.Errorf("first cycle = %s", got)
	}
	if got := a.CycleMode(); got != permission.ModePlan {
		t.Errorf("second cycle = %s", got)
	}
	if got := a.CycleMode(); got != permission.ModeDefault {
		t.Errorf("third cycle = %s", got)
	}
}

func TestAgentCloseDeniesQueuedRequests(t *testing.T) {
	a, client, _, events := newTestAgent(t)

	if err := a.Send(context.Background(), "run", nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	pf := client.permissionFunc()

	decisions := make(chan provider.PermissionDecision, 1)
	go func() {
		decisions <- pf("Bash", json.RawMessage(`{"command":"rm"}`), "t1")
	}()
	waitEvent(t, events, event.TypePermissionNeeded)

	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	d := <-decisions
	if d.Allow {
		t.Error("queued request should be denied on close")
	}
	if client.connected {
		t.Error("client still connected after close")
	}
	if err := a.Send(context.Background(), "more", nil); err != ErrClosed {
		t.Errorf("Send after close = %v, want ErrClosed", err)
	}
}

func TestAgentResumeLoadsHistory(t *testing.T) {
	cwd := t.TempDir()
	store := session.NewStore(t.TempDir())
	prior := []*chat.ChatItem{
		chat.NewUserItem("earlier question", nil),
		chat.NewAssistantItem(),
	}
	if err := store.Append(cwd, "sess-9", prior); err != nil {
		t.Fatalf("Append: %v", err)
	}

	client := &fakeClient{}
	a := New(client, permission.NewGate(t.TempDir(), nil), store, nil, Options{Cwd: cwd})
	if err := a.Connect(context.Background(), "sess-9"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	if got := client.opts.ResumeSessionID; got != "sess-9" {
		t.Errorf("resume ID passed to client = %q", got)
	}
	history := a.History()
	if len(history) != 2 {
		t.Fatalf("history = %d items, want 2 restored", len(history))
	}
	if history[0].User().Text != "earlier question" {
		t.Errorf("restored text = %q", history[0].User().Text)
	}
	if got := a.SessionID(); got != "sess-9" {
		t.Errorf("session ID = %q", got)
	}
}
