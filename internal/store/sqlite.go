package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/akozyrev/mission-control/internal/domain"
	_ "modernc.org/sqlite"
)

// Fixed storage keys, one JSON blob each.
const (
	keyAgents        = "cline_agents"
	keyActiveAgentID = "cline_active_agent_id"
	keyTasks         = "cline_tasks"
	keyRules         = "cline_rules"
	keySkills        = "cline_skills"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS app_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// getBlob unmarshals the blob stored under key into v. Returns false when
// the key has never been written.
func (s *SQLiteStore) getBlob(ctx context.Context, key string, v any) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM app_state WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *SQLiteStore) setBlob(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO app_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(raw), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// LoadSessions returns persisted sessions and the active session id.
func (s *SQLiteStore) LoadSessions(ctx context.Context) ([]domain.AgentSession, string, error) {
	var sessions []domain.AgentSession
	ok, err := s.getBlob(ctx, keyAgents, &sessions)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", nil
	}
	var activeID string
	if _, err := s.getBlob(ctx, keyActiveAgentID, &activeID); err != nil {
		return nil, "", err
	}
	return sessions, activeID, nil
}

// SaveSessions persists the session list and active id.
func (s *SQLiteStore) SaveSessions(ctx context.Context, sessions []domain.AgentSession, activeID string) error {
	if err := s.setBlob(ctx, keyAgents, sessions); err != nil {
		return err
	}
	return s.setBlob(ctx, keyActiveAgentID, activeID)
}

// LoadRules returns the rule list, seeding defaults on first use.
func (s *SQLiteStore) LoadRules(ctx context.Context) ([]domain.Rule, error) {
	var rules []domain.Rule
	ok, err := s.getBlob(ctx, keyRules, &rules)
	if err != nil {
		return nil, err
	}
	if !ok {
		return defaultRules(), nil
	}
	return rules, nil
}

// SaveRules replaces the rule list.
func (s *SQLiteStore) SaveRules(ctx context.Context, rules []domain.Rule) error {
	return s.setBlob(ctx, keyRules, rules)
}

// LoadSkills returns the skill list, seeding defaults on first use.
func (s *SQLiteStore) LoadSkills(ctx context.Context) ([]domain.Skill, error) {
	var skills []domain.Skill
	ok, err := s.getBlob(ctx, keySkills, &skills)
	if err != nil {
		return nil, err
	}
	if !ok {
		return defaultSkills(), nil
	}
	return skills, nil
}

// SaveSkills replaces the skill list.
func (s *SQLiteStore) SaveSkills(ctx context.Context, skills []domain.Skill) error {
	return s.setBlob(ctx, keySkills, skills)
}

// LoadTasks returns the task list.
func (s *SQLiteStore) LoadTasks(ctx context.Context) ([]domain.Task, error) {
	var tasks []domain.Task
	if _, err := s.getBlob(ctx, keyTasks, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// SaveTasks replaces the task list.
func (s *SQLiteStore) SaveTasks(ctx context.Context, tasks []domain.Task) error {
	return s.setBlob(ctx, keyTasks, tasks)
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func defaultRules() []domain.Rule {
	return []domain.Rule{
		{ID: "r1", Content: "Always use TypeScript for new files.", Enabled: true},
		{ID: "r2", Content: "Prefix git commits with chore:, feat: or fix:.", Enabled: false},
		{ID: "r3", Content: "Explain code changes before writing them.", Enabled: true},
	}
}

func defaultSkills() []domain.Skill {
	return []domain.Skill{
		{ID: "s1", Name: "Web Scraping", Description: "Advanced DOM extraction.", Enabled: true},
		{ID: "s2", Name: "Docker Orchestrator", Description: "Manage local containers.", Enabled: false},
		{ID: "s3", Name: "Unit Test Suite", Description: "Auto-generate Vitest suites.", Enabled: true},
	}
}
