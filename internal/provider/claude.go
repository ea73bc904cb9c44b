package provider

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/chicdev/chic/internal/id"
	"github.com/chicdev/chic/internal/logging"
)

// stopTimeout is how long Disconnect waits for a graceful exit before
// killing the process.
const stopTimeout = 5 * time.Second

// turnState is one in-flight turn: its event channel plus an abandon
// signal. Abandoning releases the read loop from a consumer that stopped
// reading (interrupted or closed turns).
type turnState struct {
	ctx       context.Context
	ch        chan Event
	abandoned chan struct{}
	once      sync.Once
}

func newTurnState(ctx context.Context) *turnState {
	return &turnState{
		ctx: ctx,
		// Buffered so the read loop never blocks on a slow consumer for long.
		ch:        make(chan Event, 64),
		abandoned: make(chan struct{}),
	}
}

func (t *turnState) abandon() {
	t.once.Do(func() { close(t.abandoned) })
}

// ClaudeClient drives the claude CLI in stream-json mode over stdin/stdout
// pipes. One process serves one conversation for its whole lifetime.
type ClaudeClient struct {
	binary string

	mu sync.Mutex
	// +checklocks:mu
	cmd *exec.Cmd
	// +checklocks:mu
	stdin io.WriteCloser
	// +checklocks:mu
	stdout io.ReadCloser
	// +checklocks:mu
	turn *turnState
	// staleResults counts abandoned turns whose result line has not yet
	// arrived; those lines are swallowed instead of routed to a later turn.
	// +checklocks:mu
	staleResults int
	// +checklocks:mu
	sessionID string
	// +checklocks:mu
	connected bool

	opts ConnectOptions

	readLoopDone chan struct{}
}

// Verify ClaudeClient implements ModelClient.
var _ ModelClient = (*ClaudeClient)(nil)

// NewClaudeClient creates a client that spawns the given claude binary.
// Empty binary means "claude" from PATH.
func NewClaudeClient(binary string) *ClaudeClient {
	if binary == "" {
		binary = "claude"
	}
	return &ClaudeClient{binary: binary}
}

// Connect spawns the claude process and starts the read loop.
func (c *ClaudeClient) Connect(ctx context.Context, opts ConnectOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return ErrAlreadyStarted
	}

	args := []string{
		"--output-format", "stream-json",
		"--input-format", "stream-json",
		"--verbose",
	}
	if opts.ResumeSessionID != "" {
		args = append(args, "--resume", opts.ResumeSessionID)
	}

	cmd := exec.CommandContext(ctx, c.binary, args...)
	if opts.Cwd != "" {
		cmd.Dir = opts.Cwd
	}
	cmd.Env = append(os.Environ(), "CHIC=1")

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		return fmt.Errorf("start claude: %w", err)
	}

	c.cmd = cmd
	c.stdin = stdin
	c.stdout = stdout
	c.opts = opts
	c.sessionID = opts.ResumeSessionID
	c.connected = true
	c.readLoopDone = make(chan struct{})

	go c.runReadLoop(stdout)

	slog.Info("claude connected", "pid", cmd.Process.Pid, "cwd", opts.Cwd, "resume", opts.ResumeSessionID != "")
	return nil
}

// SessionID returns the provider session id, known after the first turn (or
// immediately on resume).
func (c *ClaudeClient) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Query sends a user prompt and returns the turn's event channel.
func (c *ClaudeClient) Query(ctx context.Context, prompt string) (<-chan Event, error) {
	return c.QueryWithContent(ctx, prompt, nil)
}

// QueryWithContent sends a user prompt with optional structured content
// parts (e.g. image attachments) and returns the turn's event channel.
func (c *ClaudeClient) QueryWithContent(ctx context.Context, prompt string, extra []any) (<-chan Event, error) {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	if c.turn != nil {
		select {
		case <-c.turn.ctx.Done():
			// The prior turn was canceled but its watcher has not detached
			// it yet; do so now so an interrupted agent can send again
			// immediately.
			old := c.turn
			c.turn = nil
			c.staleResults++
			old.abandon()
		default:
			c.mu.Unlock()
			return nil, ErrTurnInProgress
		}
	}

	var content any = prompt
	if len(extra) > 0 {
		parts := []any{textContent{Type: "text", Text: prompt}}
		parts = append(parts, extra...)
		content = parts
	}

	msg := inputMessage{
		Type: "user",
		Message: messageBody{
			Role:    "user",
			Content: content,
		},
		SessionID:       c.sessionID,
		ParentToolUseID: nil,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	data = append(data, '\n')

	stdin := c.stdin
	t := newTurnState(ctx)
	c.turn = t
	c.mu.Unlock()

	if _, err := stdin.Write(data); err != nil {
		c.mu.Lock()
		if c.turn == t {
			c.turn = nil
		}
		c.mu.Unlock()
		t.abandon()
		return nil, fmt.Errorf("write prompt: %w", err)
	}

	go c.watchTurn(t)
	return t.ch, nil
}

// watchTurn abandons the turn when its context is canceled, so the read
// loop never blocks sending into a channel nobody reads anymore. The
// goroutine exits as soon as the turn ends normally.
func (c *ClaudeClient) watchTurn(t *turnState) {
	select {
	case <-t.ctx.Done():
		c.abandonTurn(t)
	case <-t.abandoned:
	}
}

// abandonTurn detaches an in-flight turn from the stream. The CLI will
// still emit the turn's result line; staleResults makes the read loop
// swallow it instead of routing it into a later turn.
func (c *ClaudeClient) abandonTurn(t *turnState) {
	c.mu.Lock()
	if c.turn == t {
		c.turn = nil
		c.staleResults++
	}
	c.mu.Unlock()
	t.abandon()
}

// ImagePart builds a structured image content part for QueryWithContent.
func ImagePart(mediaType, data string) any {
	return imageContent{
		Type: "image",
		Source: imageSource{
			Type:      "base64",
			MediaType: mediaType,
			Data:      data,
		},
	}
}

// Interrupt asks the CLI to cancel the in-flight turn. The turn still ends
// through its event channel (result line from the CLI).
func (c *ClaudeClient) Interrupt() error {
	c.mu.Lock()
	stdin := c.stdin
	connected := c.connected
	c.mu.Unlock()

	if !connected || stdin == nil {
		return ErrNotConnected
	}

	req := outgoingControlRequest{
		Type:      "control_request",
		RequestID: id.Generate(),
		Request:   controlRequestBody{Subtype: "interrupt"},
	}
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if _, err := stdin.Write(data); err != nil {
		return fmt.Errorf("write interrupt: %w", err)
	}
	return nil
}

// Disconnect closes the pipes and terminates the process, SIGTERM first,
// SIGKILL after stopTimeout.
func (c *ClaudeClient) Disconnect() error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil
	}
	c.connected = false

	if c.stdin != nil {
		c.stdin.Close()
		c.stdin = nil
	}
	if c.stdout != nil {
		c.stdout.Close()
		c.stdout = nil
	}
	cmd := c.cmd
	c.cmd = nil
	turn := c.turn
	done := c.readLoopDone
	c.mu.Unlock()

	// Unblock the read loop if it is mid-send into a turn whose consumer
	// already went away; the loop still closes the channel on its way out.
	if turn != nil {
		turn.abandon()
	}

	if cmd != nil && cmd.Process != nil {
		if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
			_ = cmd.Wait()
		} else {
			waited := make(chan error, 1)
			go func() { waited <- cmd.Wait() }()
			select {
			case <-waited:
			case <-time.After(stopTimeout):
				slog.Debug("claude did not exit gracefully, sending SIGKILL")
				_ = cmd.Process.Kill()
				<-waited
			}
		}
	}

	if done != nil {
		<-done
	}

	slog.Info("claude disconnected")
	return nil
}

// runReadLoop parses stdout lines and routes events to the current turn
// channel until the pipe closes.
func (c *ClaudeClient) runReadLoop(stdout io.Reader) {
	defer logging.LogPanic("claude-read-loop", nil)
	defer close(c.readLoopDone)

	scanner := bufio.NewScanner(stdout)
	// Tool results can be large; allow lines up to 10MB.
	scanner.Buffer(make([]byte, 64*1024), 10*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		msg, err := parseStreamMessage(line)
		if err != nil {
			slog.Warn("unparseable stream line", "error", err, "len", len(line))
			continue
		}
		if msg == nil {
			continue
		}

		if msg.Type == "control_request" && msg.Request != nil {
			// Approval requests block on a human decision; handle each on
			// its own goroutine so event routing continues.
			go c.handleControlRequest(msg.RequestID, msg.Request)
			continue
		}

		if msg.SessionID != "" {
			c.mu.Lock()
			c.sessionID = msg.SessionID
			c.mu.Unlock()
		}

		events := translate(msg)
		if len(events) == 0 {
			continue
		}

		turnOver := false
		for _, ev := range events {
			if _, ok := ev.(TurnComplete); ok {
				turnOver = true
			}
		}

		c.mu.Lock()
		turn := c.turn
		stale := c.staleResults
		if stale > 0 && turnOver {
			// The result line of an earlier abandoned turn; swallow the
			// whole batch rather than ending the current turn with it.
			c.staleResults--
		}
		c.mu.Unlock()
		if stale > 0 {
			slog.Debug("dropping events of abandoned turn", "count", len(events), "result", turnOver)
			continue
		}
		if turn == nil {
			slog.Debug("dropping events outside a turn", "count", len(events))
			continue
		}

		delivered := true
		for _, ev := range events {
			select {
			case turn.ch <- ev:
			case <-turn.abandoned:
				delivered = false
			}
			if !delivered {
				break
			}
		}
		if !delivered && turnOver {
			// The turn was abandoned while its own result was in hand, so
			// no further result line is owed for it.
			c.mu.Lock()
			if c.staleResults > 0 {
				c.staleResults--
			}
			c.mu.Unlock()
		}
		if delivered && turnOver {
			c.endTurn(turn)
		}
	}

	// Pipe closed. If a turn was in flight this is a transport failure.
	err := scanner.Err()
	c.mu.Lock()
	turn := c.turn
	wasConnected := c.connected
	c.connected = false
	c.mu.Unlock()

	if turn != nil {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		select {
		case turn.ch <- ConnectionError{Err: err}:
		case <-turn.abandoned:
		}
		c.endTurn(turn)
	}
	if wasConnected {
		slog.Warn("claude stream closed", "error", err)
	}
}

func (c *ClaudeClient) endTurn(turn *turnState) {
	c.mu.Lock()
	if c.turn == turn {
		c.turn = nil
	}
	c.mu.Unlock()
	turn.abandon()
	close(turn.ch)
}

// handleControlRequest answers a can_use_tool request by awaiting the
// registered permission function.
func (c *ClaudeClient) handleControlRequest(requestID string, req *controlRequest) {
	defer logging.LogPanic("claude-control-request", nil)

	if req.Subtype != "can_use_tool" {
		slog.Debug("ignoring control request", "subtype", req.Subtype)
		return
	}

	decision := PermissionDecision{Allow: false, Message: "no permission handler configured"}
	if c.opts.PermissionFunc != nil {
		toolUseID := ""
		if req.ToolUse != nil {
			toolUseID = req.ToolUse.ID
		}
		decision = c.opts.PermissionFunc(req.ToolName, req.Input, toolUseID)
	}

	behavior := "deny"
	if decision.Allow {
		behavior = "allow"
	}
	payload, err := json.Marshal(permissionResponse{
		Behavior: behavior,
		Message:  decision.Message,
	})
	if err != nil {
		slog.Error("marshal permission response", "error", err)
		return
	}

	resp := controlResponse{
		Type: "control_response",
		Response: controlResponseBody{
			Subtype:   "success",
			RequestID: requestID,
			Response:  payload,
		},
	}
	data, err := json.Marshal(resp)
	if err != nil {
		slog.Error("marshal control response", "error", err)
		return
	}
	data = append(data, '\n')

	c.mu.Lock()
	stdin := c.stdin
	c.mu.Unlock()
	if stdin == nil {
		return
	}
	if _, err := stdin.Write(data); err != nil {
		slog.Warn("write control response", "error", err)
	}
}
