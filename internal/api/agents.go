package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/akozyrev/mission-control/internal/bridge"
	"github.com/akozyrev/mission-control/internal/domain"
	"github.com/go-chi/chi/v5"
)

// AgentHandler serves the process-backed agent endpoints.
type AgentHandler struct {
	*Handler
}

// NewAgentHandler creates a handler for shell-backed agents.
func NewAgentHandler(base *Handler) *AgentHandler {
	return &AgentHandler{Handler: base}
}

// RegisterRoutes registers agent routes.
func (h *AgentHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/agent", h.CreateAgent)
		r.Get("/agents", h.ListAgents)
		r.Post("/chat", h.Chat)
		r.Get("/agent/{id}/output", h.AgentOutput)
	})
}

type createAgentRequest struct {
	Name   string             `json:"name"`
	Config domain.AgentConfig `json:"config"`
}

// CreateAgent spawns a new process-backed agent.
func (h *AgentHandler) CreateAgent(w http.ResponseWriter, r *http.Request) {
	var req createAgentRequest
	if err := decode(w, r, &req); err != nil {
		Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		Fail(w, http.StatusBadRequest, "name is required")
		return
	}

	agentID, err := h.bridge.Create(req.Name, req.Config)
	if err != nil {
		slog.Error("Failed to create agent process", "name", req.Name, "error", err)
		Fail(w, http.StatusInternalServerError, err.Error())
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"success": true, "agentId": agentID})
}

// ListAgents returns a snapshot of registered agent processes.
func (h *AgentHandler) ListAgents(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"agents":  h.bridge.List(),
	})
}

type chatRequest struct {
	AgentID string `json:"agentId"`
	Message string `json:"message"`
}

// Chat forwards a directive to an agent's process stdin.
func (h *AgentHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decode(w, r, &req); err != nil {
		Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.bridge.SendInput(req.AgentID, req.Message); err != nil {
		switch {
		case errors.Is(err, bridge.ErrAgentNotFound):
			Fail(w, http.StatusNotFound, "agent not found")
		case errors.Is(err, bridge.ErrProcessExited):
			Fail(w, http.StatusConflict, "agent process has exited")
		default:
			slog.Error("Failed to send input", "agent_id", req.AgentID, "error", err)
			Fail(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// AgentOutput returns the recent output tail for one agent process.
func (h *AgentHandler) AgentOutput(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	out, err := h.bridge.Output(id)
	if err != nil {
		Fail(w, http.StatusNotFound, "agent not found")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out); err != nil {
		slog.Debug("Failed to write agent output", "agent_id", id, "error", err)
	}
}
