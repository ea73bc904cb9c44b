package session

import (
	"fmt"
	"strings"

	"github.com/chicdev/chic/internal/chat"
)

// Stats summarizes one compaction pass.
type Stats struct {
	BlocksCompacted int
	BytesSaved      int
	// TokensSaved is a rough estimate (~4 bytes per token).
	TokensSaved int
}

// estimateTokens is a rough token count (~4 chars per token).
func estimateTokens(n int) int {
	return n / 4
}

// Compactor replaces large tool outputs in older assistant turns with short
// synthetic summaries. Block ids and positions are preserved so later
// reasoning that references a tool call by id stays consistent. The most
// recent keepRecentTurns assistant turns are never touched.
type Compactor struct {
	keepRecentTurns int
	minResultBytes  int
}

// NewCompactor creates a compactor. Non-positive arguments fall back to
// keeping 3 turns and compacting results of 1KB or more.
func NewCompactor(keepRecentTurns, minResultBytes int) *Compactor {
	if keepRecentTurns <= 0 {
		keepRecentTurns = 3
	}
	if minResultBytes <= 0 {
		minResultBytes = 1024
	}
	return &Compactor{
		keepRecentTurns: keepRecentTurns,
		minResultBytes:  minResultBytes,
	}
}

// Compact rewrites history, returning the new history and stats. With
// dryRun the input is returned untouched and only stats are computed.
// Compacting an already-compacted history is a no-op: compacted blocks are
// skipped, so a second pass saves zero bytes.
func (c *Compactor) Compact(history []*chat.ChatItem, dryRun bool) ([]*chat.ChatItem, Stats) {
	var stats Stats

	cutoff := c.cutoffIndex(history)

	out := history
	if !dryRun {
		out = make([]*chat.ChatItem, len(history))
		copy(out, history)
	}

	for i, item := range history {
		if i >= cutoff {
			break
		}
		ac := item.Assistant()
		if ac == nil {
			continue
		}

		saved, compacted, rewritten := c.compactItem(ac, dryRun)
		stats.BytesSaved += saved
		stats.BlocksCompacted += compacted
		if !dryRun && rewritten != nil {
			out[i] = &chat.ChatItem{
				ID:        item.ID,
				Role:      item.Role,
				Content:   rewritten,
				CreatedAt: item.CreatedAt,
			}
		}
	}

	stats.TokensSaved = estimateTokens(stats.BytesSaved)
	return out, stats
}

// cutoffIndex returns the history index before which items are eligible:
// everything older than the keepRecentTurns most recent assistant turns.
func (c *Compactor) cutoffIndex(history []*chat.ChatItem) int {
	turns := 0
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == chat.RoleAssistant {
			turns++
			if turns == c.keepRecentTurns {
				return i
			}
		}
	}
	return 0
}

// compactItem computes savings for one assistant item and, unless dryRun,
// builds a rewritten copy. Returns (bytesSaved, blocksCompacted, rewritten);
// rewritten is nil when nothing changed.
func (c *Compactor) compactItem(ac *chat.AssistantContent, dryRun bool) (int, int, *chat.AssistantContent) {
	var saved, count int
	changed := false

	blocks := make([]chat.Block, len(ac.Blocks))
	for i, b := range ac.Blocks {
		tu, ok := b.(*chat.ToolUseBlock)
		if !ok {
			blocks[i] = b
			continue
		}
		replacement, s, n := c.compactBlock(tu, dryRun)
		saved += s
		count += n
		if replacement != tu {
			changed = true
		}
		blocks[i] = replacement
	}

	if dryRun || !changed {
		return saved, count, nil
	}
	return saved, count, &chat.AssistantContent{Blocks: blocks}
}

// compactBlock compacts one tool-use block and its children. Returns the
// (possibly replaced) block, bytes saved, and blocks compacted. The input
// block is never mutated; eligible blocks are cloned.
func (c *Compactor) compactBlock(tu *chat.ToolUseBlock, dryRun bool) (*chat.ToolUseBlock, int, int) {
	var saved, count int

	eligible := tu.HasResult && !tu.Compacted && len(tu.Result) >= c.minResultBytes
	var summary string
	if eligible {
		// A small threshold can make the summary longer than the result
		// it replaces; skip those instead of growing the session.
		summary = c.summary(tu)
		if len(tu.Result) <= len(summary) {
			eligible = false
		}
	}

	children := tu.Children
	childChanged := false
	if len(tu.Children) > 0 {
		children = make([]*chat.ToolUseBlock, len(tu.Children))
		for i, child := range tu.Children {
			replaced, s, n := c.compactBlock(child, dryRun)
			saved += s
			count += n
			if replaced != child {
				childChanged = true
			}
			children[i] = replaced
		}
	}

	if eligible {
		saved += len(tu.Result) - len(summary)
		count++
	}

	if dryRun || (!eligible && !childChanged) {
		return tu, saved, count
	}

	clone := *tu
	clone.Children = children
	if eligible {
		clone.Result = summary
		clone.Compacted = true
	}
	return &clone, saved, count
}

// summary builds the synthetic replacement text for a compacted result.
// It keeps the first line as a hint of what the output was.
func (c *Compactor) summary(tu *chat.ToolUseBlock) string {
	firstLine := tu.Result
	if idx := strings.IndexByte(firstLine, '\n'); idx >= 0 {
		firstLine = firstLine[:idx]
	}
	if len(firstLine) > 80 {
		firstLine = firstLine[:80] + "…"
	}
	return fmt.Sprintf("[compacted: %d bytes of %s output omitted; began: %q]",
		len(tu.Result), tu.Name, firstLine)
}
