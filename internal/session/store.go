// Package session provides the in-memory registry of agent sessions.
// The store is the single source of truth for transcripts and statuses;
// every mutation goes through it.
package session

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/akozyrev/mission-control/internal/domain"
	"github.com/google/uuid"
)

var (
	// ErrSessionNotFound is returned when a session id is not registered.
	ErrSessionNotFound = errors.New("session not found")
	// ErrLastSession is returned when deleting the sole remaining session.
	ErrLastSession = errors.New("cannot delete the last remaining session")
	// ErrMessageNotFound is returned when a message id is not in the transcript.
	ErrMessageNotFound = errors.New("message not found")
)

// DefaultConfig is the generation config seeded into the initial session.
func DefaultConfig() domain.AgentConfig {
	return domain.AgentConfig{
		Provider:    "Gemini",
		Model:       "gemini-2.5-flash-lite-latest",
		Temperature: 0.1,
	}
}

// Store is a mutex-guarded registry of agent sessions keyed by id, plus
// the id of the currently active session. A store always holds at least
// one session.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*domain.AgentSession
	order    []string // creation order, also deletion fallback order
	active   string
	notify   func()
}

// NewStore creates a store seeded with one default session.
func NewStore() *Store {
	s := &Store{sessions: make(map[string]*domain.AgentSession)}
	id := s.create("Architect 1", DefaultConfig())
	s.active = id
	return s
}

// SetNotify registers a hook invoked after every mutation, outside the
// store lock. Used for best-effort persistence.
func (s *Store) SetNotify(fn func()) {
	s.mu.Lock()
	s.notify = fn
	s.mu.Unlock()
}

func (s *Store) notifyChanged() {
	s.mu.Lock()
	fn := s.notify
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// create allocates a session under the lock-free internal path.
// Caller must hold s.mu or be the constructor.
func (s *Store) create(name string, cfg domain.AgentConfig) string {
	id := uuid.NewString()
	s.sessions[id] = &domain.AgentSession{
		ID:        id,
		Name:      name,
		Status:    domain.StatusOnline,
		Config:    cfg,
		CreatedAt: time.Now(),
	}
	s.order = append(s.order, id)
	return id
}

// Create allocates a fresh session with status online and an empty
// transcript, and makes it the active session.
func (s *Store) Create(name string, cfg domain.AgentConfig) string {
	s.mu.Lock()
	id := s.create(name, cfg)
	s.active = id
	s.mu.Unlock()
	slog.Info("Session created", "session_id", id, "name", name, "provider", cfg.Provider)
	s.notifyChanged()
	return id
}

// Rename updates a session's display label. Empty names (after trimming)
// are ignored.
func (s *Store) Rename(id, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil
	}
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	sess.Name = newName
	s.mu.Unlock()
	s.notifyChanged()
	return nil
}

// Delete removes a session. Deleting the sole remaining session fails
// with ErrLastSession. If the deleted session was active, activation
// falls to the first remaining session in creation order.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	if _, ok := s.sessions[id]; !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	if len(s.sessions) <= 1 {
		s.mu.Unlock()
		return ErrLastSession
	}
	delete(s.sessions, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.active == id {
		s.active = s.order[0]
	}
	s.mu.Unlock()
	slog.Info("Session deleted", "session_id", id)
	s.notifyChanged()
	return nil
}

// AppendUserMessage appends a user message and returns its id.
func (s *Store) AppendUserMessage(id, text string, attachments []domain.Attachment) (string, error) {
	msg := domain.Message{
		ID:          uuid.NewString(),
		Role:        domain.RoleUser,
		Content:     text,
		Timestamp:   time.Now(),
		Attachments: attachments,
	}
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return "", ErrSessionNotFound
	}
	sess.Transcript = append(sess.Transcript, msg)
	s.mu.Unlock()
	s.notifyChanged()
	return msg.ID, nil
}

// AppendAssistantPlaceholder appends an empty assistant message that the
// in-flight generation will fill in, and returns its id.
func (s *Store) AppendAssistantPlaceholder(id string) (string, error) {
	msg := domain.Message{
		ID:        uuid.NewString(),
		Role:      domain.RoleAssistant,
		Timestamp: time.Now(),
	}
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return "", ErrSessionNotFound
	}
	sess.Transcript = append(sess.Transcript, msg)
	s.mu.Unlock()
	s.notifyChanged()
	return msg.ID, nil
}

// UpdateAssistantContent replaces the content of a streaming assistant
// message with the full accumulated text. Replace, never append: each
// update carries the entire text so far, so transcript length never
// changes here.
func (s *Store) UpdateAssistantContent(id, messageID, fullText string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	for i := range sess.Transcript {
		if sess.Transcript[i].ID == messageID {
			sess.Transcript[i].Content = fullText
			s.mu.Unlock()
			s.notifyChanged()
			return nil
		}
	}
	s.mu.Unlock()
	return ErrMessageNotFound
}

// AppendToolCalls appends extracted calls to the session's pending list.
func (s *Store) AppendToolCalls(id string, calls []domain.ToolCall) error {
	if len(calls) == 0 {
		return nil
	}
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	sess.PendingToolCalls = append(sess.PendingToolCalls, calls...)
	s.mu.Unlock()
	s.notifyChanged()
	return nil
}

// SetStatus sets a session's status.
func (s *Store) SetStatus(id string, status domain.Status) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	sess.Status = status
	s.mu.Unlock()
	s.notifyChanged()
	return nil
}

// Get returns a deep copy of a session.
func (s *Store) Get(id string) (domain.AgentSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return domain.AgentSession{}, ErrSessionNotFound
	}
	return cloneSession(sess), nil
}

// List returns deep copies of all sessions in creation order.
func (s *Store) List() []domain.AgentSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AgentSession, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, cloneSession(s.sessions[id]))
	}
	return out
}

// ActiveID returns the id of the active session.
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// SetActive switches the active session.
func (s *Store) SetActive(id string) error {
	s.mu.Lock()
	if _, ok := s.sessions[id]; !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	s.active = id
	s.mu.Unlock()
	s.notifyChanged()
	return nil
}

// Load replaces the store contents with persisted sessions. Statuses are
// volatile and not trusted across restarts, so every loaded session is
// reset to online. An empty input leaves the store untouched.
func (s *Store) Load(sessions []domain.AgentSession, activeID string) {
	if len(sessions) == 0 {
		return
	}
	s.mu.Lock()
	s.sessions = make(map[string]*domain.AgentSession, len(sessions))
	s.order = s.order[:0]
	for i := range sessions {
		sess := sessions[i]
		sess.Status = domain.StatusOnline
		s.sessions[sess.ID] = &sess
		s.order = append(s.order, sess.ID)
	}
	if _, ok := s.sessions[activeID]; ok {
		s.active = activeID
	} else {
		s.active = s.order[0]
	}
	s.mu.Unlock()
	slog.Info("Sessions loaded", "count", len(sessions), "active", s.ActiveID())
}

// Snapshot returns all sessions and the active id for persistence.
func (s *Store) Snapshot() ([]domain.AgentSession, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AgentSession, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, cloneSession(s.sessions[id]))
	}
	return out, s.active
}

func cloneSession(sess *domain.AgentSession) domain.AgentSession {
	out := *sess
	out.Transcript = make([]domain.Message, len(sess.Transcript))
	for i, m := range sess.Transcript {
		if len(m.Attachments) > 0 {
			m.Attachments = append([]domain.Attachment(nil), m.Attachments...)
		}
		if len(m.ToolCalls) > 0 {
			m.ToolCalls = append([]domain.ToolCall(nil), m.ToolCalls...)
		}
		out.Transcript[i] = m
	}
	out.PendingToolCalls = make([]domain.ToolCall, len(sess.PendingToolCalls))
	copy(out.PendingToolCalls, sess.PendingToolCalls)
	return out
}
