// Package api provides HTTP handlers for the Mission Control API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/akozyrev/mission-control/internal/bridge"
	"github.com/akozyrev/mission-control/internal/session"
	"github.com/akozyrev/mission-control/internal/store"
)

// maxRequestBodySize bounds request bodies (1MB).
const maxRequestBodySize = 1 << 20

// Handler provides common handler dependencies.
type Handler struct {
	repo     store.Repository
	bridge   *bridge.Manager
	sessions *session.Store
	chat     *session.Chat
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, mgr *bridge.Manager, sessions *session.Store, chat *session.Chat) *Handler {
	return &Handler{
		repo:     repo,
		bridge:   mgr,
		sessions: sessions,
		chat:     chat,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"success": false, "error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Fail writes a failure response with an error message.
func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]interface{}{"success": false, "error": message})
}

// decode reads a bounded JSON request body into v.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	return json.NewDecoder(r.Body).Decode(v)
}
