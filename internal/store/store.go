// Package store provides persistence for Mission Control state.
package store

import (
	"context"

	"github.com/akozyrev/mission-control/internal/domain"
)

// Repository persists app state between restarts. Each collection is one
// JSON blob under a fixed key, mirroring the client storage contract.
// Persistence is best effort: session status is volatile and is reset to
// online by the caller on load.
type Repository interface {
	// LoadSessions returns persisted sessions and the active session id.
	// Returns nil and "" when nothing was saved yet.
	LoadSessions(ctx context.Context) ([]domain.AgentSession, string, error)

	// SaveSessions persists the session list and active id.
	SaveSessions(ctx context.Context, sessions []domain.AgentSession, activeID string) error

	// LoadRules returns the rule list, seeding defaults on first use.
	LoadRules(ctx context.Context) ([]domain.Rule, error)

	// SaveRules replaces the rule list.
	SaveRules(ctx context.Context, rules []domain.Rule) error

	// LoadSkills returns the skill list, seeding defaults on first use.
	LoadSkills(ctx context.Context) ([]domain.Skill, error)

	// SaveSkills replaces the skill list.
	SaveSkills(ctx context.Context, skills []domain.Skill) error

	// LoadTasks returns the task list.
	LoadTasks(ctx context.Context) ([]domain.Task, error)

	// SaveTasks replaces the task list.
	SaveTasks(ctx context.Context, tasks []domain.Task) error

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
