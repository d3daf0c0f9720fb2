// Package completion wraps a streaming chat-completion call to an
// OpenAI-compatible provider endpoint.
package completion

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/akozyrev/mission-control/internal/domain"
)

// GenerationError reports an upstream completion failure (network, auth,
// rate limit, malformed config). The caller marks the session error and
// leaves any partial streamed content in place.
type GenerationError struct {
	Status  int
	Message string
}

func (e *GenerationError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("generation failed [%d]: %s", e.Status, e.Message)
	}
	return "generation failed: " + e.Message
}

// Streamer produces a cancellable stream of assistant text for a transcript.
// Each yielded value is the full accumulated text so far, not a delta, so
// a consumer applies it by simple replacement.
type Streamer interface {
	Stream(ctx context.Context, transcript []domain.Message, cfg domain.AgentConfig) iter.Seq2[string, error]
}

// Client is an OpenAI-compatible streaming completion client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a completion client. baseURL is the default provider
// endpoint; a session config's BaseURL overrides it per request.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason,omitempty"`
	} `json:"choices"`
}

type errorResponse struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Stream sends the transcript (system preamble already prepended by the
// caller) and yields the accumulated response text after every chunk, in
// arrival order. Cancelling ctx aborts the stream mid-flight. On failure
// the final yield carries a *GenerationError.
func (c *Client) Stream(ctx context.Context, transcript []domain.Message, cfg domain.AgentConfig) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		resp, err := c.open(ctx, transcript, cfg)
		if err != nil {
			yield("", err)
			return
		}
		defer resp.Body.Close()

		reader := bufio.NewReader(resp.Body)
		var full strings.Builder
		for {
			select {
			case <-ctx.Done():
				yield(full.String(), ctx.Err())
				return
			default:
			}

			line, err := reader.ReadString('\n')
			if err != nil {
				if err == io.EOF {
					return
				}
				// A cancelled request surfaces as a read error on the body;
				// report it as cancellation, not an upstream failure.
				if ctx.Err() != nil {
					yield(full.String(), ctx.Err())
					return
				}
				yield(full.String(), &GenerationError{Message: err.Error()})
				return
			}

			line = strings.TrimSpace(line)
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				return
			}

			var chunk streamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				slog.Warn("Skipping malformed stream chunk", "error", err)
				continue
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			full.WriteString(delta)
			if !yield(full.String(), nil) {
				return
			}
		}
	}
}

func (c *Client) open(ctx context.Context, transcript []domain.Message, cfg domain.AgentConfig) (*http.Response, error) {
	base := c.baseURL
	if cfg.BaseURL != "" {
		base = strings.TrimSuffix(cfg.BaseURL, "/")
	}

	msgs := make([]chatMessage, 0, len(transcript))
	for _, m := range transcript {
		msgs = append(msgs, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	body, err := json.Marshal(chatRequest{
		Model:       cfg.Model,
		Messages:    msgs,
		Temperature: cfg.Temperature,
		Stream:      true,
	})
	if err != nil {
		return nil, &GenerationError{Message: "marshal request: " + err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, &GenerationError{Message: "create request: " + err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// A cancelled context surfaces as a url.Error here; keep the
		// cancellation visible instead of wrapping it as a failure.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &GenerationError{Message: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		var errResp errorResponse
		if jsonErr := json.Unmarshal(respBody, &errResp); jsonErr == nil && errResp.Error != nil {
			return nil, &GenerationError{Status: resp.StatusCode, Message: errResp.Error.Message}
		}
		return nil, &GenerationError{Status: resp.StatusCode, Message: string(respBody)}
	}
	return resp, nil
}
