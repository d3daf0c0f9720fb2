// Package domain contains core domain types for Mission Control.
package domain

import (
	"strings"
	"time"
)

// Status describes the availability of an agent session.
type Status string

const (
	// StatusOnline means the agent is idle and ready for input.
	StatusOnline Status = "online"
	// StatusBusy means exactly one generation or command is in flight.
	StatusBusy Status = "busy"
	// StatusError means the last generation failed; sticky until the next success.
	StatusError Status = "error"
	// StatusOffline means the agent's backing process has exited.
	StatusOffline Status = "offline"
)

// AgentConfig selects the completion provider for a session.
// Immutable after creation, except for in-place provider override.
type AgentConfig struct {
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	BaseURL     string  `json:"baseUrl,omitempty"`
}

// AgentSession is one logical conversational identity: a transcript,
// extracted tool calls, and the generation config they were produced with.
type AgentSession struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Status           Status      `json:"status"`
	Transcript       []Message   `json:"messages"`
	PendingToolCalls []ToolCall  `json:"toolCalls"`
	Config           AgentConfig `json:"config"`
	CreatedAt        time.Time   `json:"createdAt"`
}

// Rule is a user-authored instruction. Enabled rules are concatenated, in
// list order, into the system preamble of every outbound request.
type Rule struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Enabled bool   `json:"enabled"`
}

// Skill is a named capability toggle. Configuration only.
type Skill struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

// Task is a simple checklist entry.
type Task struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

// SystemPreamble builds the system-context prefix from enabled rules.
// The preamble is prepended to the outbound request only and is never
// stored in the transcript.
func SystemPreamble(rules []Rule) string {
	var b strings.Builder
	for _, r := range rules {
		if !r.Enabled {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("Rule: ")
		b.WriteString(r.Content)
	}
	return b.String()
}
