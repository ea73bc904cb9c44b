package provider

import (
	"encoding/json"
	"strings"
)

// streamMessage is one parsed JSONL line of the claude CLI's stream-json
// output.
type streamMessage struct {
	Type            string          `json:"type"` // "system", "assistant", "user", "result", "control_request"
	Subtype         string          `json:"subtype,omitempty"`
	Message         *nestedMessage  `json:"message,omitempty"`
	ParentToolUseID string          `json:"parent_tool_use_id,omitempty"`
	SessionID       string          `json:"session_id,omitempty"`
	Result          string          `json:"result,omitempty"`
	IsError         bool            `json:"is_error,omitempty"`
	Usage           *Usage          `json:"usage,omitempty"`
	RequestID       string          `json:"request_id,omitempty"`
	Request         *controlRequest `json:"request,omitempty"`
}

// nestedMessage contains the API message content of assistant/user lines.
type nestedMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

// contentBlock is a single content item in a nested message.
type contentBlock struct {
	Type      string          `json:"type"` // "text", "tool_use", "tool_result"
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	Content   flexContent     `json:"content,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

// flexContent handles tool_result "content" arriving either as a string or
// as an array of typed parts.
type flexContent string

func (f *flexContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexContent(s)
		return nil
	}

	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &parts); err == nil {
		var texts []string
		for _, p := range parts {
			if p.Text != "" {
				texts = append(texts, p.Text)
			}
		}
		*f = flexContent(strings.Join(texts, "\n"))
		return nil
	}

	// Keep raw JSON for debugging if the shape is unrecognized.
	*f = flexContent(string(data))
	return nil
}

// controlRequest is an in-stream request from the CLI that expects a
// control_response, e.g. a tool approval.
type controlRequest struct {
	Subtype  string          `json:"subtype"` // "can_use_tool"
	ToolName string          `json:"tool_name,omitempty"`
	Input    json.RawMessage `json:"input,omitempty"`
	ToolUse  *struct {
		ID string `json:"id"`
	} `json:"tool_use,omitempty"`
}

// inputMessage is a user message written to the CLI's stdin as JSONL.
type inputMessage struct {
	Type            string       `json:"type"`
	Message         messageBody  `json:"message"`
	SessionID       string       `json:"session_id,omitempty"`
	ParentToolUseID *string      `json:"parent_tool_use_id"`
}

type messageBody struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// imageContent is a structured content part for image attachments.
type imageContent struct {
	Type   string      `json:"type"` // "image"
	Source imageSource `json:"source"`
}

type imageSource struct {
	Type      string `json:"type"` // "base64"
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type textContent struct {
	Type string `json:"type"` // "text"
	Text string `json:"text"`
}

// controlResponse answers a controlRequest.
type controlResponse struct {
	Type     string              `json:"type"` // "control_response"
	Response controlResponseBody `json:"response"`
}

type controlResponseBody struct {
	Subtype   string          `json:"subtype"` // "success"
	RequestID string          `json:"request_id"`
	Response  json.RawMessage `json:"response,omitempty"`
}

// permissionResponse is the payload of a can_use_tool control response.
type permissionResponse struct {
	Behavior string `json:"behavior"` // "allow" or "deny"
	Message  string `json:"message,omitempty"`
}

// outgoingControlRequest is a control request sent from chic to the CLI
// (e.g. interrupt).
type outgoingControlRequest struct {
	Type      string             `json:"type"` // "control_request"
	RequestID string             `json:"request_id"`
	Request   controlRequestBody `json:"request"`
}

type controlRequestBody struct {
	Subtype string `json:"subtype"` // "interrupt"
}

// parseStreamMessage parses a single JSONL line. Empty lines yield nil.
func parseStreamMessage(line []byte) (*streamMessage, error) {
	if len(line) == 0 {
		return nil, nil
	}
	var msg streamMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// translate converts one parsed stream message into zero or more provider
// events for the current turn. A TurnComplete ends the turn.
func translate(msg *streamMessage) []Event {
	if msg == nil {
		return nil
	}

	switch msg.Type {
	case "assistant":
		if msg.Message == nil {
			return nil
		}
		var events []Event
		for _, block := range msg.Message.Content {
			switch block.Type {
			case "text":
				if block.Text != "" {
					events = append(events, TextDelta{
						Text:            block.Text,
						ParentToolUseID: msg.ParentToolUseID,
					})
				}
			case "tool_use":
				events = append(events, ToolUseBegin{
					ID:              block.ID,
					Name:            block.Name,
					Input:           block.Input,
					ParentToolUseID: msg.ParentToolUseID,
				})
			}
		}
		return events

	case "user":
		if msg.Message == nil {
			return nil
		}
		var events []Event
		for _, block := range msg.Message.Content {
			if block.Type == "tool_result" {
				events = append(events, ToolResult{
					ToolUseID: block.ToolUseID,
					Content:   string(block.Content),
					IsError:   block.IsError,
				})
			}
		}
		return events

	case "result":
		return []Event{TurnComplete{
			SessionID: msg.SessionID,
			IsError:   msg.IsError,
			Result:    msg.Result,
			Usage:     msg.Usage,
		}}
	}

	return nil
}
