package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/akozyrev/mission-control/internal/domain"
	"github.com/akozyrev/mission-control/internal/session"
	"github.com/go-chi/chi/v5"
)

// SessionHandler serves the completion-backed chat session endpoints.
type SessionHandler struct {
	*Handler
}

// NewSessionHandler creates a handler for chat sessions.
func NewSessionHandler(base *Handler) *SessionHandler {
	return &SessionHandler{Handler: base}
}

// RegisterRoutes registers session routes.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Patch("/{id}", h.Rename)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/activate", h.Activate)
		r.Post("/{id}/messages", h.SendMessage)
		r.Post("/{id}/cancel", h.Cancel)
	})
}

type createSessionRequest struct {
	Name   string             `json:"name"`
	Config domain.AgentConfig `json:"config"`
}

// Create deploys a new chat session and makes it active.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decode(w, r, &req); err != nil {
		Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		Fail(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Config.Model == "" {
		req.Config = session.DefaultConfig()
	}

	id := h.sessions.Create(req.Name, req.Config)
	sess, err := h.sessions.Get(id)
	if err != nil {
		Fail(w, http.StatusInternalServerError, err.Error())
		return
	}
	JSON(w, http.StatusCreated, map[string]interface{}{"success": true, "session": sess})
}

// List returns all sessions and the active session id.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"sessions": h.sessions.List(),
		"activeId": h.sessions.ActiveID(),
	})
}

type renameRequest struct {
	Name string `json:"name"`
}

// Rename updates a session's display label.
func (h *SessionHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := decode(w, r, &req); err != nil {
		Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.sessions.Rename(chi.URLParam(r, "id"), req.Name); err != nil {
		Fail(w, http.StatusNotFound, "session not found")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// Delete removes a session. The last remaining session cannot be deleted.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.sessions.Delete(chi.URLParam(r, "id"))
	switch {
	case err == nil:
		JSON(w, http.StatusOK, map[string]interface{}{"success": true})
	case errors.Is(err, session.ErrLastSession):
		Fail(w, http.StatusConflict, "cannot delete the last session")
	default:
		Fail(w, http.StatusNotFound, "session not found")
	}
}

// Activate switches the active session.
func (h *SessionHandler) Activate(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.SetActive(chi.URLParam(r, "id")); err != nil {
		Fail(w, http.StatusNotFound, "session not found")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

type sendMessageRequest struct {
	Content     string              `json:"content"`
	Attachments []domain.Attachment `json:"attachments,omitempty"`
}

// SendMessage runs one generation for a session and returns the final
// session snapshot. Streamed updates are mirrored to WebSocket clients
// while the generation runs; closing the request aborts it.
func (h *SessionHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req sendMessageRequest
	if err := decode(w, r, &req); err != nil {
		Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Content == "" {
		Fail(w, http.StatusBadRequest, "content is required")
		return
	}

	err := h.chat.Send(r.Context(), id, req.Content, req.Attachments)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrSessionNotFound):
		Fail(w, http.StatusNotFound, "session not found")
		return
	case errors.Is(err, session.ErrGenerationInFlight):
		Fail(w, http.StatusConflict, "generation already in flight")
		return
	case errors.Is(err, context.Canceled):
		// Partial content is retained; report the session as-is.
	default:
		slog.Error("Generation failed", "session_id", id, "error", err)
		Fail(w, http.StatusBadGateway, err.Error())
		return
	}

	sess, getErr := h.sessions.Get(id)
	if getErr != nil {
		Fail(w, http.StatusNotFound, "session not found")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"success": true, "session": sess})
}

// Cancel aborts the in-flight generation for a session.
func (h *SessionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	cancelled := h.chat.Cancel(chi.URLParam(r, "id"))
	JSON(w, http.StatusOK, map[string]interface{}{"success": true, "cancelled": cancelled})
}
