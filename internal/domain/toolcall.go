package domain

import "encoding/json"

// ToolCallStatus tracks execution of an extracted tool call.
type ToolCallStatus string

const (
	ToolCallPending   ToolCallStatus = "pending"
	ToolCallRunning   ToolCallStatus = "running"
	ToolCallCompleted ToolCallStatus = "completed"
	ToolCallError     ToolCallStatus = "error"
)

// ToolCall is a structured operation request embedded in assistant text.
// Args carries the raw JSON payload; use extract.DecodeArgs for typed access.
// Transitions beyond pending are driven by an external executor.
type ToolCall struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Args   json.RawMessage `json:"args"`
	Status ToolCallStatus  `json:"status"`
	Result string          `json:"result,omitempty"`
}
