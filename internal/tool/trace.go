package tool

import (
	"github.com/oklog/ulid/v2"
)

// InvocationRecord captures one tool call end to end. The orchestration loop
// collects these and the API returns them alongside the final answer so a
// caller can see exactly what the agent did.
type InvocationRecord struct {
	ID         string  `json:"id"`
	ToolName   string  `json:"tool_name"`
	Input      string  `json:"input"`
	Output     *string `json:"output"`
	Error      *string `json:"error"`
	Timestamp  string  `json:"timestamp"`
	DurationMS int64   `json:"duration_ms"`
}

func newInvocationID() string {
	return ulid.Make().String()
}
