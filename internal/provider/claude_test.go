package provider

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"
)

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// newPipedClient returns a connected client whose stdin is discarded and
// whose read loop is not yet running.
func newPipedClient() *ClaudeClient {
	c := NewClaudeClient("claude")
	c.connected = true
	c.stdin = nopWriteCloser{io.Discard}
	c.readLoopDone = make(chan struct{})
	return c
}

func assistantLine(text string) string {
	return fmt.Sprintf(`{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":%q}]}}`+"\n", text)
}

func resultLine(sessionID string) string {
	return fmt.Sprintf(`{"type":"result","session_id":%q,"result":"done"}`+"\n", sessionID)
}

// currentTurn reads the client's turn pointer for test assertions.
func currentTurn(c *ClaudeClient) *turnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.turn
}

func waitTurnCleared(t *testing.T, c *ClaudeClient) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for currentTurn(c) != nil {
		if time.Now().After(deadline) {
			t.Fatal("turn was not cleared after cancellation")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestReadLoopSurvivesAbandonedTurn(t *testing.T) {
	c := newPipedClient()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := c.Query(ctx, "hi")
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	// Far more events than the turn channel buffers.
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString(assistantLine("chunk"))
	}
	b.WriteString(resultLine("s1"))
	go c.runReadLoop(strings.NewReader(b.String()))

	// Read one event, then walk away from the channel mid-turn.
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("no event arrived")
	}
	cancel()

	select {
	case <-c.readLoopDone:
	case <-time.After(2 * time.Second):
		t.Fatal("read loop still blocked after the turn was abandoned")
	}
}

func TestQueryAllowedImmediatelyAfterInterruptedTurn(t *testing.T) {
	c := newPipedClient()

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := c.Query(ctx, "first"); err != nil {
		t.Fatalf("query: %v", err)
	}
	cancel()

	// No waiting: an interrupted turn must not hold the client busy.
	if _, err := c.Query(context.Background(), "second"); err != nil {
		t.Fatalf("query after interrupted turn: %v", err)
	}
}

func TestStaleResultNotRoutedToNextTurn(t *testing.T) {
	c := newPipedClient()

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := c.Query(ctx, "first"); err != nil {
		t.Fatalf("query: %v", err)
	}
	cancel()
	waitTurnCleared(t, c)

	ch2, err := c.Query(context.Background(), "second")
	if err != nil {
		t.Fatalf("second query: %v", err)
	}

	// The abandoned turn's result line arrives first; it must not end the
	// new turn.
	stream := resultLine("old") + assistantLine("fresh") + resultLine("new")
	go c.runReadLoop(strings.NewReader(stream))

	select {
	case ev := <-ch2:
		td, ok := ev.(TextDelta)
		if !ok || td.Text != "fresh" {
			t.Fatalf("first event = %#v, want fresh TextDelta", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event for second turn")
	}

	select {
	case ev := <-ch2:
		tc, ok := ev.(TurnComplete)
		if !ok || tc.SessionID != "new" {
			t.Fatalf("second event = %#v, want TurnComplete for new turn", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second turn did not complete")
	}
}

func TestDisconnectUnblocksReadLoop(t *testing.T) {
	c := newPipedClient()
	pr, pw := io.Pipe()
	c.stdout = pr

	ch, err := c.Query(context.Background(), "hi")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	go c.runReadLoop(pr)
	go func() {
		for i := 0; i < 200; i++ {
			if _, err := io.WriteString(pw, assistantLine("chunk")); err != nil {
				return
			}
		}
	}()

	// One read, then the consumer goes away while the sender floods.
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("no event arrived")
	}

	done := make(chan error, 1)
	go func() { done <- c.Disconnect() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("disconnect: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Disconnect hung on a read loop blocked by an abandoned turn")
	}
}
