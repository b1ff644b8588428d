// Package contract holds the wire-neutral conversation types shared by the
// model providers, the agent loop, and the transports.
package contract

// Roles a turn may carry. The order of turns in a conversation is
// semantically significant; a turn is never mutated once appended.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ValidHistoryRole reports whether a caller-supplied history entry carries a
// role the chat endpoint accepts. Tool and system turns are produced
// server-side only; callers resend just the user/assistant transcript.
func ValidHistoryRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}

type Message struct {
	Role       string      `json:"role"`
	Content    string      `json:"content"`
	ToolCallID string      `json:"tool_call_id,omitempty"`
	ToolCalls  []*ToolCall `json:"tool_calls,omitempty"`
}

type CompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Tools       []ToolDef `json:"tools,omitempty"`
	Temperature float32   `json:"temperature,omitempty"`
}

type ToolDef struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

type CompletionResponse struct {
	Content   string      `json:"content"`
	ToolCalls []*ToolCall `json:"tool_calls,omitempty"`
}

type ToolCall struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Input string `json:"input"`
}
