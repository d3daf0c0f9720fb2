package domain

import "time"

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Attachment describes a file attached to a message.
type Attachment struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	MIME string `json:"type"`
}

// Message is one transcript entry. Content is mutated only while the
// most recent assistant message is streaming; all other fields are fixed
// at append time.
type Message struct {
	ID          string       `json:"id"`
	Role        Role         `json:"role"`
	Content     string       `json:"content"`
	Timestamp   time.Time    `json:"timestamp"`
	Attachments []Attachment `json:"attachments,omitempty"`
	ToolCalls   []ToolCall   `json:"toolCalls,omitempty"`
}
