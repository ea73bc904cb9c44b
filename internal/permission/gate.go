package permission

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chicdev/chic/internal/id"
)

// Gate errors.
var (
	ErrRequestNotFound = errors.New("permission request not found")
)

// Behavior is the outcome kind of a permission decision.
type Behavior string

const (
	Allow Behavior = "allow"
	Deny  Behavior = "deny"
	// AllowSession allows and adds the tool to the agent's session
	// allow-set; future requests for that tool auto-allow.
	AllowSession Behavior = "allow-session"
	// AllowAll allows this request and every request currently queued for
	// the same agent ("rest of this batch"). It does not persist.
	AllowAll Behavior = "allow-all"
	// DenyWithAlternative denies but carries guidance the model should
	// follow instead; the turn continues.
	DenyWithAlternative Behavior = "deny-with-alternative"
)

// Decision is one resolution of a permission request.
type Decision struct {
	Behavior Behavior
	Message  string
}

// Allowed reports whether the decision permits the tool call.
func (d Decision) Allowed() bool {
	switch d.Behavior {
	case Allow, AllowSession, AllowAll:
		return true
	}
	return false
}

// Request is a pending approval. Exactly one Decision is eventually
// delivered on its channel: by Resolve, by an AllowAll batch, or by
// CloseAgent (Deny).
type Request struct {
	ID          string
	AgentID     string
	Tool        Tool
	ToolName    string
	Input       json.RawMessage
	RequestedAt time.Time

	resp chan Decision
}

// Gate evaluates the decision policy and tracks queued requests per agent.
// Immediate decisions never enqueue; queued requests are surfaced one at a
// time per agent, FIFO.
type Gate struct {
	planDir string

	mu sync.Mutex
	// +checklocks:mu
	pending map[string]*Request
	// +checklocks:mu
	queue map[string][]*Request // per-agent FIFO
	// +checklocks:mu
	sessionAllowed map[string]map[Tool]bool // per-agent; never shared across agents
	// +checklocks:mu
	configAllowed map[string]bool // from config, applies to every agent

	// onSurfaced is invoked (without the lock held) whenever a request
	// becomes the head of its agent's queue and should be shown to the
	// user. Set once before use.
	onSurfaced func(*Request)
}

// NewGate creates a gate. planDir is the plan-mode scratch directory;
// allowedTools are extra names from config that never require approval.
func NewGate(planDir string, allowedTools []string) *Gate {
	configAllowed := make(map[string]bool, len(allowedTools))
	for _, name := range allowedTools {
		configAllowed[name] = true
	}
	return &Gate{
		planDir:        planDir,
		pending:        make(map[string]*Request),
		queue:          make(map[string][]*Request),
		sessionAllowed: make(map[string]map[Tool]bool),
		configAllowed:  configAllowed,
	}
}

// OnSurfaced registers the callback fired when a request reaches the front
// of an agent's queue.
func (g *Gate) OnSurfaced(fn func(*Request)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onSurfaced = fn
}

// Request evaluates the policy for one tool call and returns a channel that
// yields exactly one Decision. Rules, first match wins:
//
//  1. always-allow list -> Allow
//  2. plan mode + blocked write outside plan dir -> DenyWithAlternative
//     (inside the plan dir -> Allow)
//  3. accept-edits mode + edit-class tool -> Allow
//  4. tool in the agent's session allow-set (or config allow list) -> Allow
//  5. otherwise enqueue and wait for an external Resolve
//
// Immediate decisions are delivered on an already-buffered channel, so the
// caller observes them without suspending.
func (g *Gate) Request(agentID string, mode Mode, toolName string, input json.RawMessage) <-chan Decision {
	tool := ParseTool(toolName)

	if alwaysAllowed[tool] {
		return decided(Decision{Behavior: Allow})
	}

	if mode == ModePlan && planBlocked[tool] {
		if target := writeTarget(tool, input); target != "" && g.inPlanDir(target) {
			return decided(Decision{Behavior: Allow})
		}
		return decided(Decision{
			Behavior: DenyWithAlternative,
			Message: fmt.Sprintf(
				"%s is blocked in plan mode. Describe the change you would make instead, or write scratch files under %s.",
				toolName, g.planDir),
		})
	}

	if mode == ModeAcceptEdits && tool.IsEdit() {
		return decided(Decision{Behavior: Allow})
	}

	g.mu.Lock()
	if g.configAllowed[toolName] || (tool != ToolUnknown && g.sessionAllowed[agentID][tool]) {
		g.mu.Unlock()
		return decided(Decision{Behavior: Allow})
	}

	req := &Request{
		ID:          id.Generate(),
		AgentID:     agentID,
		Tool:        tool,
		ToolName:    toolName,
		Input:       input,
		RequestedAt: time.Now(),
		resp:        make(chan Decision, 1),
	}
	g.pending[req.ID] = req
	g.queue[agentID] = append(g.queue[agentID], req)
	isHead := len(g.queue[agentID]) == 1
	surfaced := g.onSurfaced
	g.mu.Unlock()

	if isHead && surfaced != nil {
		surfaced(req)
	}
	return req.resp
}

// Resolve delivers a decision to a queued request. AllowSession mutates the
// owning agent's allow-set; AllowAll also resolves every other request
// queued for the same agent.
func (g *Gate) Resolve(requestID string, d Decision) error {
	g.mu.Lock()

	req, ok := g.pending[requestID]
	if !ok {
		g.mu.Unlock()
		return ErrRequestNotFound
	}

	if d.Behavior == AllowSession && req.Tool != ToolUnknown {
		if g.sessionAllowed[req.AgentID] == nil {
			g.sessionAllowed[req.AgentID] = make(map[Tool]bool)
		}
		g.sessionAllowed[req.AgentID][req.Tool] = true
	}

	resolved := []*Request{req}
	g.remove(req)

	if d.Behavior == AllowAll {
		// Rest-of-batch semantics: everything queued for this agent right
		// now is allowed too. Nothing queued later is affected.
		for _, other := range g.queue[req.AgentID] {
			delete(g.pending, other.ID)
			resolved = append(resolved, other)
		}
		delete(g.queue, req.AgentID)
	}

	var next *Request
	if q := g.queue[req.AgentID]; len(q) > 0 {
		next = q[0]
	}
	surfaced := g.onSurfaced
	g.mu.Unlock()

	for i, r := range resolved {
		if i == 0 {
			r.resp <- d
		} else {
			r.resp <- Decision{Behavior: Allow}
		}
	}
	if next != nil && surfaced != nil {
		surfaced(next)
	}
	return nil
}

// Next returns the request currently surfaced for an agent (head of its
// queue), or nil.
func (g *Gate) Next(agentID string) *Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	if q := g.queue[agentID]; len(q) > 0 {
		return q[0]
	}
	return nil
}

// PendingCount returns the number of queued requests for an agent.
func (g *Gate) PendingCount(agentID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.queue[agentID])
}

// SessionAllowed reports whether a tool is in an agent's session allow-set.
func (g *Gate) SessionAllowed(agentID string, tool Tool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sessionAllowed[agentID][tool]
}

// CloseAgent force-resolves every queued request for an agent to Deny and
// discards its session allow-set. Returns the number of requests denied.
// No future is ever leaked unresolved.
func (g *Gate) CloseAgent(agentID string) int {
	g.mu.Lock()
	drained := g.queue[agentID]
	for _, req := range drained {
		delete(g.pending, req.ID)
	}
	delete(g.queue, agentID)
	delete(g.sessionAllowed, agentID)
	g.mu.Unlock()

	for _, req := range drained {
		req.resp <- Decision{Behavior: Deny, Message: "agent closed"}
	}
	return len(drained)
}

// remove deletes a request from pending and its agent queue.
// Must be called with the lock held.
func (g *Gate) remove(req *Request) {
	delete(g.pending, req.ID)
	q := g.queue[req.AgentID]
	for i, r := range q {
		if r.ID == req.ID {
			g.queue[req.AgentID] = append(q[:i], q[i+1:]...)
			break
		}
	}
	if len(g.queue[req.AgentID]) == 0 {
		delete(g.queue, req.AgentID)
	}
}

// decided returns a channel that already carries the decision, so immediate
// resolutions never suspend the caller.
func decided(d Decision) <-chan Decision {
	ch := make(chan Decision, 1)
	ch <- d
	return ch
}

// writeTarget extracts the file path a write-class tool targets, or "" when
// the tool has no single target (e.g. Bash).
func writeTarget(tool Tool, input json.RawMessage) string {
	if tool == ToolBash {
		return ""
	}
	var fields struct {
		FilePath     string `json:"file_path"`
		NotebookPath string `json:"notebook_path"`
	}
	if err := json.Unmarshal(input, &fields); err != nil {
		return ""
	}
	if fields.FilePath != "" {
		return fields.FilePath
	}
	return fields.NotebookPath
}

// inPlanDir reports whether path lies inside the plan scratch directory.
func (g *Gate) inPlanDir(path string) bool {
	if g.planDir == "" {
		return false
	}
	rel, err := filepath.Rel(g.planDir, path)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}
