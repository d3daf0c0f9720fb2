package api

import (
	"bytes"
	"context"
	"encoding/json"
	"iter"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/akozyrev/mission-control/internal/bridge"
	"github.com/akozyrev/mission-control/internal/broadcast"
	"github.com/akozyrev/mission-control/internal/domain"
	"github.com/akozyrev/mission-control/internal/session"
	"github.com/akozyrev/mission-control/internal/store"
	"github.com/go-chi/chi/v5"
)

// echoStreamer yields one accumulated response for every send.
type echoStreamer struct {
	chunks []string
}

func (s echoStreamer) Stream(ctx context.Context, transcript []domain.Message, _ domain.AgentConfig) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, c := range s.chunks {
			if !yield(c, nil) {
				return
			}
		}
	}
}

type testEnv struct {
	router   chi.Router
	sessions *session.Store
}

func newTestEnv(t *testing.T, shell string, chunks []string) *testEnv {
	t.Helper()

	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	hub := broadcast.NewHub()
	mgr, err := bridge.NewManager(hub, bridge.Config{
		BaseDir: t.TempDir(),
		Shell:   shell,
		Cols:    80,
		Rows:    30,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(mgr.Close)

	sessions := session.NewStore()
	chat := session.NewChat(sessions, echoStreamer{chunks: chunks}, nil, hub)

	base := NewHandler(repo, mgr, sessions, chat)
	r := chi.NewRouter()
	NewAgentHandler(base).RegisterRoutes(r)
	NewSessionHandler(base).RegisterRoutes(r)
	NewStateHandler(base).RegisterRoutes(r)

	return &testEnv{router: r, sessions: sessions}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var got map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return got
}

func TestCreateAgent_SpawnFailure(t *testing.T) {
	env := newTestEnv(t, "/nonexistent/shell-binary", nil)

	w := env.do(t, http.MethodPost, "/api/agent", map[string]interface{}{
		"name":   "Builder",
		"config": map[string]interface{}{"provider": "Gemini"},
	})

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", w.Code)
	}
	got := decodeBody(t, w)
	if got["success"] != false {
		t.Errorf("Expected success=false, got %v", got["success"])
	}

	// The failed agent must never appear in the list.
	w = env.do(t, http.MethodGet, "/api/agents", nil)
	got = decodeBody(t, w)
	if agents, ok := got["agents"].([]interface{}); !ok || len(agents) != 0 {
		t.Errorf("Expected no agents, got %v", got["agents"])
	}
}

func TestCreateAgent_MissingName(t *testing.T) {
	env := newTestEnv(t, "bash", nil)

	w := env.do(t, http.MethodPost, "/api/agent", map[string]interface{}{"config": map[string]interface{}{}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestListAgents_Empty(t *testing.T) {
	env := newTestEnv(t, "bash", nil)

	w := env.do(t, http.MethodGet, "/api/agents", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	got := decodeBody(t, w)
	if got["success"] != true {
		t.Errorf("Expected success=true, got %v", got["success"])
	}
}

func TestChat_UnknownAgent(t *testing.T) {
	env := newTestEnv(t, "bash", nil)

	w := env.do(t, http.MethodPost, "/api/chat", map[string]interface{}{
		"agentId": "no-such-agent",
		"message": "ping",
	})

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
	got := decodeBody(t, w)
	if got["success"] != false {
		t.Errorf("Expected success=false, got %v", got["success"])
	}
}

func TestAgentOutput_UnknownAgent(t *testing.T) {
	env := newTestEnv(t, "bash", nil)

	w := env.do(t, http.MethodGet, "/api/agent/no-such-agent/output", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}
