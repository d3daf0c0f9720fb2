package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/akozyrev/mission-control/internal/broadcast"
	"github.com/akozyrev/mission-control/internal/completion"
	"github.com/akozyrev/mission-control/internal/domain"
	"github.com/akozyrev/mission-control/internal/extract"
)

// ErrGenerationInFlight is returned when a send arrives while another
// generation is running for the same session. The busy status is
// enforced here, not merely advisory.
var ErrGenerationInFlight = errors.New("a generation is already in flight for this session")

// RuleSource supplies the current rule list at request time.
type RuleSource interface {
	Rules() []domain.Rule
}

// Chat drives completion-backed sessions: it owns the send flow from user
// message through streamed assistant content to tool-call extraction.
type Chat struct {
	store    *Store
	streamer completion.Streamer
	rules    RuleSource
	hub      *broadcast.Hub

	mu       sync.Mutex
	inFlight map[string]context.CancelFunc
}

// NewChat creates a chat service. rules may be nil when no rule store is
// configured; hub may be nil when streamed updates need no mirroring.
func NewChat(store *Store, streamer completion.Streamer, rules RuleSource, hub *broadcast.Hub) *Chat {
	return &Chat{
		store:    store,
		streamer: streamer,
		rules:    rules,
		hub:      hub,
		inFlight: make(map[string]context.CancelFunc),
	}
}

// Send runs one generation for a session: appends the user message and an
// assistant placeholder, streams the response into the placeholder chunk
// by chunk (each update carries the full accumulated text), then extracts
// tool calls from the final text.
//
// At most one generation runs per session id; a concurrent Send returns
// ErrGenerationInFlight. On upstream failure the session goes to error
// and partial content is retained. On cancellation the session returns to
// online, also retaining partial content.
func (c *Chat) Send(ctx context.Context, sessionID, text string, attachments []domain.Attachment) error {
	sess, err := c.store.Get(sessionID)
	if err != nil {
		return err
	}

	genCtx, cancel, err := c.begin(ctx, sessionID)
	if err != nil {
		return err
	}
	defer c.finish(sessionID, cancel)

	_ = c.store.SetStatus(sessionID, domain.StatusBusy)

	if _, err := c.store.AppendUserMessage(sessionID, text, attachments); err != nil {
		_ = c.store.SetStatus(sessionID, domain.StatusOnline)
		return err
	}
	assistantID, err := c.store.AppendAssistantPlaceholder(sessionID)
	if err != nil {
		_ = c.store.SetStatus(sessionID, domain.StatusOnline)
		return err
	}

	outbound := c.outboundTranscript(sessionID)
	start := time.Now()

	var full string
	var streamErr error
	for accumulated, err := range c.streamer.Stream(genCtx, outbound, sess.Config) {
		if err != nil {
			streamErr = err
			break
		}
		full = accumulated
		if err := c.store.UpdateAssistantContent(sessionID, assistantID, full); err != nil {
			slog.Warn("Failed to update assistant content", "session_id", sessionID, "error", err)
		}
		if c.hub != nil {
			c.hub.Publish(broadcast.UpdateTopic(sessionID), []byte(full))
		}
	}

	switch {
	case streamErr == nil:
		calls := extract.Extract(full)
		if len(calls) > 0 {
			_ = c.store.AppendToolCalls(sessionID, calls)
			slog.Info("Tool calls extracted", "session_id", sessionID, "count", len(calls))
		}
		_ = c.store.SetStatus(sessionID, domain.StatusOnline)
		slog.Info("Generation complete", "session_id", sessionID, "chars", len(full), "duration", time.Since(start))
		return nil

	case errors.Is(streamErr, context.Canceled):
		// Cancellation is not a failure: partial content stays, status
		// returns to online.
		_ = c.store.SetStatus(sessionID, domain.StatusOnline)
		slog.Info("Generation cancelled", "session_id", sessionID, "chars", len(full))
		return streamErr

	default:
		_ = c.store.SetStatus(sessionID, domain.StatusError)
		slog.Error("Generation failed", "session_id", sessionID, "error", streamErr)
		return streamErr
	}
}

// Cancel aborts the in-flight generation for a session, if any.
func (c *Chat) Cancel(sessionID string) bool {
	c.mu.Lock()
	cancel, ok := c.inFlight[sessionID]
	c.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

func (c *Chat) begin(ctx context.Context, sessionID string) (context.Context, context.CancelFunc, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[sessionID]; busy {
		return nil, nil, ErrGenerationInFlight
	}
	genCtx, cancel := context.WithCancel(ctx)
	c.inFlight[sessionID] = cancel
	return genCtx, cancel, nil
}

func (c *Chat) finish(sessionID string, cancel context.CancelFunc) {
	c.mu.Lock()
	delete(c.inFlight, sessionID)
	c.mu.Unlock()
	cancel()
}

// outboundTranscript builds the message sequence for the provider: the
// enabled-rules system preamble (request-only, never stored) followed by
// the stored transcript minus the trailing empty placeholder.
func (c *Chat) outboundTranscript(sessionID string) []domain.Message {
	sess, err := c.store.Get(sessionID)
	if err != nil {
		return nil
	}
	transcript := sess.Transcript
	if n := len(transcript); n > 0 && transcript[n-1].Role == domain.RoleAssistant && transcript[n-1].Content == "" {
		transcript = transcript[:n-1]
	}

	var out []domain.Message
	if c.rules != nil {
		if preamble := domain.SystemPreamble(c.rules.Rules()); preamble != "" {
			out = append(out, domain.Message{
				ID:      "sys-rules",
				Role:    domain.RoleSystem,
				Content: preamble,
			})
		}
	}
	return append(out, transcript...)
}
