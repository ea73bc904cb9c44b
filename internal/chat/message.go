// Package chat defines the conversation data model: chat items, message
// content, and the typed content blocks that make up an assistant turn.
package chat

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/chicdev/chic/internal/id"
)

// Role identifies the sender of a chat item.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatItem is one message in a conversation. Items are append-only: once a
// turn completes the item is never mutated again. The only mutation allowed
// before that is block accumulation on the currently-streaming assistant tail.
type ChatItem struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Content   MessageContent `json:"-"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewUserItem creates a user chat item with optional image attachments.
func NewUserItem(text string, images []ImageAttachment) *ChatItem {
	return &ChatItem{
		ID:        id.Generate(),
		Role:      RoleUser,
		Content:   &UserContent{Text: text, Images: images},
		CreatedAt: time.Now(),
	}
}

// NewAssistantItem creates an empty assistant chat item. Blocks are appended
// as provider events arrive. An assistant turn that produces no content still
// keeps its (empty) item so that every model response maps to exactly one item.
func NewAssistantItem() *ChatItem {
	return &ChatItem{
		ID:        id.Generate(),
		Role:      RoleAssistant,
		Content:   &AssistantContent{},
		CreatedAt: time.Now(),
	}
}

// Assistant returns the item's content as AssistantContent, or nil if the
// item is not an assistant message.
func (c *ChatItem) Assistant() *AssistantContent {
	ac, _ := c.Content.(*AssistantContent)
	return ac
}

// User returns the item's content as UserContent, or nil if the item is not
// a user message.
func (c *ChatItem) User() *UserContent {
	uc, _ := c.Content.(*UserContent)
	return uc
}

// MessageContent is the content payload of a ChatItem. Concrete types are
// UserContent and AssistantContent.
type MessageContent interface {
	isContent()
}

// ImageAttachment is an image included with a user message.
type ImageAttachment struct {
	Path      string `json:"path"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"` // base64-encoded bytes
}

// UserContent is the content of a user message: text plus ordered image
// attachments.
type UserContent struct {
	Text   string            `json:"text"`
	Images []ImageAttachment `json:"images,omitempty"`
}

func (*UserContent) isContent() {}

// AssistantContent is an ordered list of blocks. A single assistant turn may
// interleave text and tool calls; they all share one item.
type AssistantContent struct {
	Blocks []Block `json:"blocks"`
}

func (*AssistantContent) isContent() {}

// Append adds a block to the content.
func (a *AssistantContent) Append(b Block) {
	a.Blocks = append(a.Blocks, b)
}

// Text returns the concatenated text of all text blocks.
func (a *AssistantContent) Text() string {
	var out string
	for _, b := range a.Blocks {
		if tb, ok := b.(*TextBlock); ok {
			if out != "" {
				out += "\n"
			}
			out += tb.Text
		}
	}
	return out
}

// ToolUses returns all tool-use blocks in order.
func (a *AssistantContent) ToolUses() []*ToolUseBlock {
	var uses []*ToolUseBlock
	for _, b := range a.Blocks {
		if tu, ok := b.(*ToolUseBlock); ok {
			uses = append(uses, tu)
		}
	}
	return uses
}

// FindToolUse locates a tool-use block by id, searching nested children as
// well (meta-tools such as Task carry child tool calls under a parent id).
func (a *AssistantContent) FindToolUse(toolID string) *ToolUseBlock {
	for _, b := range a.Blocks {
		tu, ok := b.(*ToolUseBlock)
		if !ok {
			continue
		}
		if tu.ID == toolID {
			return tu
		}
		if child := tu.findChild(toolID); child != nil {
			return child
		}
	}
	return nil
}

// Block is one typed element of an assistant message. Concrete types are
// TextBlock and ToolUseBlock.
type Block interface {
	isBlock()
}

// TextBlock holds a span of assistant text. Complete once created; deltas
// are buffered by the accumulator and flushed as a single block.
type TextBlock struct {
	Text string `json:"text"`
}

func (*TextBlock) isBlock() {}

// ToolUseBlock records one tool invocation. It is created pending (no
// result) and mutated in place exactly once when its result or error
// arrives; after that it is terminal.
type ToolUseBlock struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Input    json.RawMessage `json:"input,omitempty"`
	ParentID string          `json:"parent_id,omitempty"`

	Result    string `json:"result,omitempty"`
	HasResult bool   `json:"has_result"`
	IsError   bool   `json:"is_error,omitempty"`

	// Compacted marks a result that was replaced by a compaction summary.
	Compacted bool `json:"compacted,omitempty"`

	// Children are nested tool calls reported under this block's id.
	Children []*ToolUseBlock `json:"children,omitempty"`
}

func (*ToolUseBlock) isBlock() {}

// SetResult attaches the result text and error flag. No-op if a result has
// already been attached; a tool-use is terminal once assigned.
func (t *ToolUseBlock) SetResult(content string, isError bool) {
	if t.HasResult {
		return
	}
	t.Result = content
	t.IsError = isError
	t.HasResult = true
}

// Complete reports whether this block and all of its children have results.
// A parent meta-tool is not complete until every child is.
func (t *ToolUseBlock) Complete() bool {
	if !t.HasResult {
		return false
	}
	for _, c := range t.Children {
		if !c.Complete() {
			return false
		}
	}
	return true
}

// AddChild appends a nested tool call under this block.
func (t *ToolUseBlock) AddChild(child *ToolUseBlock) {
	child.ParentID = t.ID
	t.Children = append(t.Children, child)
}

func (t *ToolUseBlock) findChild(toolID string) *ToolUseBlock {
	for _, c := range t.Children {
		if c.ID == toolID {
			return c
		}
		if found := c.findChild(toolID); found != nil {
			return found
		}
	}
	return nil
}

// --- JSON persistence ---
//
// Content is polymorphic, so items are serialized with an explicit type tag.
// Blocks inside assistant content are tagged the same way.

type itemJSON struct {
	ID        string          `json:"id"`
	Role      Role            `json:"role"`
	Content   json.RawMessage `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
}

type blockJSON struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type assistantJSON struct {
	Blocks []blockJSON `json:"blocks"`
}

// MarshalJSON implements json.Marshaler.
func (c *ChatItem) MarshalJSON() ([]byte, error) {
	var content []byte
	var err error

	switch v := c.Content.(type) {
	case *UserContent:
		content, err = json.Marshal(v)
	case *AssistantContent:
		aj := assistantJSON{Blocks: make([]blockJSON, 0, len(v.Blocks))}
		for _, b := range v.Blocks {
			bj, berr := marshalBlock(b)
			if berr != nil {
				return nil, berr
			}
			aj.Blocks = append(aj.Blocks, bj)
		}
		content, err = json.Marshal(aj)
	default:
		return nil, fmt.Errorf("unknown content type %T", c.Content)
	}
	if err != nil {
		return nil, err
	}

	return json.Marshal(itemJSON{
		ID:        c.ID,
		Role:      c.Role,
		Content:   content,
		CreatedAt: c.CreatedAt,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *ChatItem) UnmarshalJSON(data []byte) error {
	var ij itemJSON
	if err := json.Unmarshal(data, &ij); err != nil {
		return err
	}

	c.ID = ij.ID
	c.Role = ij.Role
	c.CreatedAt = ij.CreatedAt

	switch ij.Role {
	case RoleUser:
		var uc UserContent
		if err := json.Unmarshal(ij.Content, &uc); err != nil {
			return err
		}
		c.Content = &uc
	case RoleAssistant:
		var aj assistantJSON
		if err := json.Unmarshal(ij.Content, &aj); err != nil {
			return err
		}
		ac := &AssistantContent{Blocks: make([]Block, 0, len(aj.Blocks))}
		for _, bj := range aj.Blocks {
			b, err := unmarshalBlock(bj)
			if err != nil {
				return err
			}
			ac.Append(b)
		}
		c.Content = ac
	default:
		return fmt.Errorf("unknown role %q", ij.Role)
	}
	return nil
}

func marshalBlock(b Block) (blockJSON, error) {
	switch v := b.(type) {
	case *TextBlock:
		data, err := json.Marshal(v)
		return blockJSON{Type: "text", Data: data}, err
	case *ToolUseBlock:
		data, err := json.Marshal(v)
		return blockJSON{Type: "tool_use", Data: data}, err
	default:
		return blockJSON{}, fmt.Errorf("unknown block type %T", b)
	}
}

func unmarshalBlock(bj blockJSON) (Block, error) {
	switch bj.Type {
	case "text":
		var tb TextBlock
		return &tb, json.Unmarshal(bj.Data, &tb)
	case "tool_use":
		var tu ToolUseBlock
		return &tu, json.Unmarshal(bj.Data, &tu)
	default:
		return nil, fmt.Errorf("unknown block type %q", bj.Type)
	}
}
