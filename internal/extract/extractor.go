// Package extract scans assistant text for embedded tool-call blocks.
package extract

import (
	"encoding/json"
	"log/slog"
	"regexp"

	"github.com/akozyrev/mission-control/internal/domain"
	"github.com/google/uuid"
)

// toolCallRe matches one delimited tool-call block. (?s) lets the payload
// span lines; the lazy quantifier keeps matches non-overlapping.
var toolCallRe = regexp.MustCompile(`(?s)<tool_call>(.*?)</tool_call>`)

type toolCallPayload struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

// Extract returns every well-formed tool call embedded in text, in order
// of appearance. Each call gets a fresh id and status pending. Malformed
// payloads are logged and skipped; Extract never fails the caller.
func Extract(text string) []domain.ToolCall {
	matches := toolCallRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	calls := make([]domain.ToolCall, 0, len(matches))
	for _, m := range matches {
		var payload toolCallPayload
		if err := json.Unmarshal([]byte(m[1]), &payload); err != nil {
			slog.Warn("Skipping malformed tool call payload", "error", err)
			continue
		}
		if payload.Name == "" {
			slog.Warn("Skipping tool call without a name")
			continue
		}
		calls = append(calls, domain.ToolCall{
			ID:     uuid.NewString(),
			Name:   payload.Name,
			Args:   payload.Args,
			Status: domain.ToolCallPending,
		})
	}
	return calls
}
