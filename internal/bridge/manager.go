// Package bridge spawns and owns one real OS process per shell-backed
// agent, piping its output to the broadcast channel and forwarding user
// input to its stdin.
package bridge

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/akozyrev/mission-control/internal/broadcast"
	"github.com/akozyrev/mission-control/internal/domain"
	"github.com/creack/pty"
	"github.com/google/uuid"
)

var (
	// ErrAgentNotFound is returned when an agent id is not registered.
	ErrAgentNotFound = errors.New("agent not found")
	// ErrProcessExited is returned when input is sent to an exited process.
	ErrProcessExited = errors.New("agent process has exited")
)

// SpawnError reports a process that failed to start. No agent is
// registered when creation fails this way.
type SpawnError struct {
	Name string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn agent %q: %v", e.Name, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// Config controls process spawning.
type Config struct {
	// BaseDir is the parent of per-agent working directories.
	BaseDir string
	// Shell is the interactive shell binary to spawn.
	Shell string
	// StartupCommand is written to the process's stdin right after spawn.
	StartupCommand string
	// Cols and Rows fix the terminal geometry.
	Cols uint16
	Rows uint16
	// RingSize bounds the per-process recent-output buffer.
	RingSize int
}

// ProcessInfo is a snapshot of one registered process.
type ProcessInfo struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Status domain.Status `json:"status"`
}

type processSession struct {
	id        string
	name      string
	dir       string
	cmd       *exec.Cmd
	pty       *os.File
	ring      *Ring
	status    domain.Status
	createdAt time.Time
}

// Manager owns the lifecycle of per-agent processes. Process handles are
// exclusively owned here; other components reference processes by id only.
type Manager struct {
	mu    sync.RWMutex
	procs map[string]*processSession
	order []string
	hub   *broadcast.Hub
	cfg   Config
}

// NewManager creates a process manager, creating the base data directory
// if absent.
func NewManager(hub *broadcast.Hub, cfg Config) (*Manager, error) {
	if err := os.MkdirAll(cfg.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create agent data directory: %w", err)
	}
	return &Manager{
		procs: make(map[string]*processSession),
		hub:   hub,
		cfg:   cfg,
	}, nil
}

// Create allocates an isolated working directory, spawns an interactive
// shell in it with fixed geometry, registers it under a fresh id, and
// writes the startup command to its stdin. The id is returned as soon as
// the process has spawned, not when it is ready.
func (m *Manager) Create(name string, _ domain.AgentConfig) (string, error) {
	id := uuid.NewString()
	dir := filepath.Join(m.cfg.BaseDir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &SpawnError{Name: name, Err: err}
	}

	cmd := exec.Command(m.cfg.Shell)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "TERM=xterm-color")

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: m.cfg.Rows, Cols: m.cfg.Cols})
	if err != nil {
		return "", &SpawnError{Name: name, Err: err}
	}

	ps := &processSession{
		id:        id,
		name:      name,
		dir:       dir,
		cmd:       cmd,
		pty:       ptmx,
		ring:      NewRing(m.cfg.RingSize),
		status:    domain.StatusOnline,
		createdAt: time.Now(),
	}

	m.mu.Lock()
	m.procs[id] = ps
	m.order = append(m.order, id)
	m.mu.Unlock()

	go m.pump(ps)
	go m.watch(ps)

	if m.cfg.StartupCommand != "" {
		if _, err := ptmx.WriteString(m.cfg.StartupCommand + "\r"); err != nil {
			slog.Warn("Failed to write startup command", "agent_id", id, "error", err)
		}
	}

	slog.Info("Agent process created", "agent_id", id, "name", name, "dir", dir, "pid", cmd.Process.Pid)
	return id, nil
}

// pump streams PTY output to the broadcast channel and the recent-output
// ring. Byte order is preserved within one process's stream; streams of
// different agents are unordered relative to each other.
func (m *Manager) pump(ps *processSession) {
	topic := broadcast.OutputTopic(ps.id)
	buf := make([]byte, 4096)
	for {
		n, err := ps.pty.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			_, _ = ps.ring.Write(chunk)
			m.hub.Publish(topic, chunk)
		}
		if err != nil {
			// EIO is the normal read error once the child exits.
			slog.Debug("PTY read loop ended", "agent_id", ps.id, "error", err)
			return
		}
	}
}

// watch waits for process exit, marks the agent offline, and emits a
// terminal notice so subscribers see the stream end.
func (m *Manager) watch(ps *processSession) {
	err := ps.cmd.Wait()

	m.mu.Lock()
	ps.status = domain.StatusOffline
	m.mu.Unlock()

	if closeErr := ps.pty.Close(); closeErr != nil {
		slog.Debug("Failed to close pty", "agent_id", ps.id, "error", closeErr)
	}

	slog.Info("Agent process exited", "agent_id", ps.id, "name", ps.name, "error", err)
	notice := []byte("\r\n[process exited]\r\n")
	_, _ = ps.ring.Write(notice)
	m.hub.Publish(broadcast.OutputTopic(ps.id), notice)
}

// List returns a snapshot of registered processes in creation order.
func (m *Manager) List() []ProcessInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ProcessInfo, 0, len(m.order))
	for _, id := range m.order {
		ps := m.procs[id]
		out = append(out, ProcessInfo{ID: ps.id, Name: ps.name, Status: ps.status})
	}
	return out
}

// SendInput writes text plus a carriage return to the process's stdin.
func (m *Manager) SendInput(id, text string) error {
	m.mu.RLock()
	ps, ok := m.procs[id]
	var status domain.Status
	if ok {
		status = ps.status
	}
	m.mu.RUnlock()

	if !ok {
		return ErrAgentNotFound
	}
	if status == domain.StatusOffline {
		return ErrProcessExited
	}
	if _, err := ps.pty.WriteString(text + "\r"); err != nil {
		return fmt.Errorf("write to agent %s: %w", id, err)
	}
	return nil
}

// Output returns the recent output tail for one process.
func (m *Manager) Output(id string) ([]byte, error) {
	m.mu.RLock()
	ps, ok := m.procs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrAgentNotFound
	}
	return ps.ring.Bytes(), nil
}

// Remove kills a process (if still running) and unregisters it. Used when
// an agent is deleted.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	ps, ok := m.procs[id]
	if ok {
		delete(m.procs, id)
		for i, oid := range m.order {
			if oid == id {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
	m.mu.Unlock()

	if !ok {
		return ErrAgentNotFound
	}
	if ps.cmd.Process != nil {
		if err := ps.cmd.Process.Kill(); err != nil {
			slog.Debug("Failed to kill agent process", "agent_id", id, "error", err)
		}
	}
	slog.Info("Agent process removed", "agent_id", id)
	return nil
}

// Close kills every registered process. Called on shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	ids := make([]string, len(m.order))
	copy(ids, m.order)
	m.mu.Unlock()

	for _, id := range ids {
		if err := m.Remove(id); err != nil && !errors.Is(err, ErrAgentNotFound) {
			slog.Warn("Failed to remove agent process", "agent_id", id, "error", err)
		}
	}
}
