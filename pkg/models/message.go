package models

import "strings"

// Role indicates the message author type, following OpenAI chat semantics.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry in a conversation history. The same shape is sent to
// the LLM provider and persisted in the context store.
//
// Shape rules:
//   - user messages carry Content
//   - assistant messages carry Content, ToolCalls, or both
//   - tool messages carry ToolCallID plus the JSON-encoded tool output in Content
type Message struct {
	Role       Role       `json:"role" bson:"role"`
	Content    string     `json:"content,omitempty" bson:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty" bson:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty" bson:"tool_call_id,omitempty"`
}

// ToolCall is an LLM request to execute a tool. Arguments is the raw JSON
// string exactly as the provider returned it.
type ToolCall struct {
	ID        string `json:"id" bson:"id"`
	Name      string `json:"name" bson:"name"`
	Arguments string `json:"arguments" bson:"arguments"`
}

// SystemMessage builds a system message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds a plain-text assistant message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ToolMessage builds a tool result message paired to a tool call by ID.
func ToolMessage(toolCallID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: toolCallID}
}

// HasText reports whether the message carries non-blank content.
func (m Message) HasText() bool {
	return strings.TrimSpace(m.Content) != ""
}

// LastAssistantText returns the content of the last assistant message with
// non-blank text, walking the history from the tail. Returns "" when none
// exists.
func LastAssistantText(history []Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleAssistant && history[i].HasText() {
			return history[i].Content
		}
	}
	return ""
}

// StripSystem returns history without any system messages. The returned slice
// is a copy; the input is not modified.
func StripSystem(history []Message) []Message {
	out := make([]Message, 0, len(history))
	for _, m := range history {
		if m.Role != RoleSystem {
			out = append(out, m)
		}
	}
	return out
}
