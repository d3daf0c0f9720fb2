package api

import (
	"log/slog"
	"net/http"

	"github.com/akozyrev/mission-control/internal/domain"
	"github.com/go-chi/chi/v5"
)

// StateHandler serves the persisted configuration lists. Each list is
// replaced wholesale on PUT, matching the one-blob storage contract.
type StateHandler struct {
	*Handler
}

// NewStateHandler creates a handler for rules, skills and tasks.
func NewStateHandler(base *Handler) *StateHandler {
	return &StateHandler{Handler: base}
}

// RegisterRoutes registers state routes.
func (h *StateHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/rules", h.GetRules)
	r.Put("/api/rules", h.PutRules)
	r.Get("/api/skills", h.GetSkills)
	r.Put("/api/skills", h.PutSkills)
	r.Get("/api/tasks", h.GetTasks)
	r.Put("/api/tasks", h.PutTasks)
}

// GetRules returns the rule list.
func (h *StateHandler) GetRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.repo.LoadRules(r.Context())
	if err != nil {
		slog.Error("Failed to load rules", "error", err)
		Fail(w, http.StatusInternalServerError, "failed to load rules")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"success": true, "rules": rules})
}

// PutRules replaces the rule list.
func (h *StateHandler) PutRules(w http.ResponseWriter, r *http.Request) {
	var rules []domain.Rule
	if err := decode(w, r, &rules); err != nil {
		Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.repo.SaveRules(r.Context(), rules); err != nil {
		slog.Error("Failed to save rules", "error", err)
		Fail(w, http.StatusInternalServerError, "failed to save rules")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// GetSkills returns the skill list.
func (h *StateHandler) GetSkills(w http.ResponseWriter, r *http.Request) {
	skills, err := h.repo.LoadSkills(r.Context())
	if err != nil {
		slog.Error("Failed to load skills", "error", err)
		Fail(w, http.StatusInternalServerError, "failed to load skills")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"success": true, "skills": skills})
}

// PutSkills replaces the skill list.
func (h *StateHandler) PutSkills(w http.ResponseWriter, r *http.Request) {
	var skills []domain.Skill
	if err := decode(w, r, &skills); err != nil {
		Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.repo.SaveSkills(r.Context(), skills); err != nil {
		slog.Error("Failed to save skills", "error", err)
		Fail(w, http.StatusInternalServerError, "failed to save skills")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// GetTasks returns the task list.
func (h *StateHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.repo.LoadTasks(r.Context())
	if err != nil {
		slog.Error("Failed to load tasks", "error", err)
		Fail(w, http.StatusInternalServerError, "failed to load tasks")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"success": true, "tasks": tasks})
}

// PutTasks replaces the task list.
func (h *StateHandler) PutTasks(w http.ResponseWriter, r *http.Request) {
	var tasks []domain.Task
	if err := decode(w, r, &tasks); err != nil {
		Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.repo.SaveTasks(r.Context(), tasks); err != nil {
		slog.Error("Failed to save tasks", "error", err)
		Fail(w, http.StatusInternalServerError, "failed to save tasks")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
