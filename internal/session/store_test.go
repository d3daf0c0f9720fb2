package session

import (
	"testing"

	"github.com/akozyrev/mission-control/internal/domain"
)

func TestStore_SeedsDefaultSession(t *testing.T) {
	s := NewStore()

	list := s.List()
	if len(list) != 1 {
		t.Fatalf("Expected 1 seeded session, got %d", len(list))
	}
	if list[0].Status != domain.StatusOnline {
		t.Errorf("Expected online status, got %s", list[0].Status)
	}
	if s.ActiveID() != list[0].ID {
		t.Errorf("Expected seeded session to be active")
	}
}

func TestStore_CreateBecomesActive(t *testing.T) {
	s := NewStore()
	id := s.Create("Builder", DefaultConfig())

	if s.ActiveID() != id {
		t.Errorf("Expected new session %s to be active, got %s", id, s.ActiveID())
	}
	sess, err := s.Get(id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(sess.Transcript) != 0 || len(sess.PendingToolCalls) != 0 {
		t.Errorf("Expected empty transcript and tool calls")
	}
}

func TestStore_TranscriptGrowth(t *testing.T) {
	s := NewStore()
	id := s.ActiveID()

	if _, err := s.AppendUserMessage(id, "hello", nil); err != nil {
		t.Fatalf("AppendUserMessage failed: %v", err)
	}
	msgID, err := s.AppendAssistantPlaceholder(id)
	if err != nil {
		t.Fatalf("AppendAssistantPlaceholder failed: %v", err)
	}

	sess, _ := s.Get(id)
	if len(sess.Transcript) != 2 {
		t.Fatalf("Expected transcript length 2, got %d", len(sess.Transcript))
	}

	// Content updates must never change transcript length.
	for _, text := range []string{"Hel", "Hello"} {
		if err := s.UpdateAssistantContent(id, msgID, text); err != nil {
			t.Fatalf("UpdateAssistantContent failed: %v", err)
		}
	}
	sess, _ = s.Get(id)
	if len(sess.Transcript) != 2 {
		t.Errorf("Expected transcript length 2 after updates, got %d", len(sess.Transcript))
	}
	if got := sess.Transcript[1].Content; got != "Hello" {
		t.Errorf("Expected full-replace semantics, got %q", got)
	}
}

func TestStore_DeleteLastSessionIsRejected(t *testing.T) {
	s := NewStore()
	id := s.ActiveID()

	if err := s.Delete(id); err != ErrLastSession {
		t.Errorf("Expected ErrLastSession, got %v", err)
	}
	if len(s.List()) != 1 {
		t.Errorf("Expected session count to stay at 1")
	}
}

func TestStore_DeleteActiveFallsToFirstRemaining(t *testing.T) {
	s := NewStore()
	first := s.ActiveID()
	second := s.Create("Builder", DefaultConfig())

	if err := s.Delete(second); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if s.ActiveID() != first {
		t.Errorf("Expected activation to fall to %s, got %s", first, s.ActiveID())
	}
}

func TestStore_RenameTrimsAndIgnoresEmpty(t *testing.T) {
	s := NewStore()
	id := s.ActiveID()
	original, _ := s.Get(id)

	if err := s.Rename(id, "   "); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	sess, _ := s.Get(id)
	if sess.Name != original.Name {
		t.Errorf("Expected empty rename to be a no-op, got %q", sess.Name)
	}

	if err := s.Rename(id, "  Navigator  "); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	sess, _ = s.Get(id)
	if sess.Name != "Navigator" {
		t.Errorf("Expected trimmed name Navigator, got %q", sess.Name)
	}
}

func TestStore_AppendToolCalls(t *testing.T) {
	s := NewStore()
	id := s.ActiveID()

	calls := []domain.ToolCall{
		{ID: "t1", Name: "read_file", Status: domain.ToolCallPending},
		{ID: "t2", Name: "write_file", Status: domain.ToolCallPending},
	}
	if err := s.AppendToolCalls(id, calls); err != nil {
		t.Fatalf("AppendToolCalls failed: %v", err)
	}
	sess, _ := s.Get(id)
	if len(sess.PendingToolCalls) != 2 {
		t.Fatalf("Expected 2 pending calls, got %d", len(sess.PendingToolCalls))
	}
	if sess.PendingToolCalls[0].ID != "t1" || sess.PendingToolCalls[1].ID != "t2" {
		t.Errorf("Expected calls in append order")
	}
}

func TestStore_LoadResetsStatusToOnline(t *testing.T) {
	s := NewStore()
	saved := []domain.AgentSession{
		{ID: "a", Name: "Architect 1", Status: domain.StatusBusy},
		{ID: "b", Name: "Builder", Status: domain.StatusError},
	}

	s.Load(saved, "b")

	for _, sess := range s.List() {
		if sess.Status != domain.StatusOnline {
			t.Errorf("Expected session %s reset to online, got %s", sess.ID, sess.Status)
		}
	}
	if s.ActiveID() != "b" {
		t.Errorf("Expected active id b, got %s", s.ActiveID())
	}
}

func TestStore_LoadWithUnknownActiveFallsToFirst(t *testing.T) {
	s := NewStore()
	s.Load([]domain.AgentSession{{ID: "a", Name: "Architect 1"}}, "missing")

	if s.ActiveID() != "a" {
		t.Errorf("Expected active id a, got %s", s.ActiveID())
	}
}

func TestStore_GetCopiesNestedSlices(t *testing.T) {
	s := NewStore()
	id := s.ActiveID()
	if _, err := s.AppendUserMessage(id, "hello", []domain.Attachment{
		{Name: "a.txt", Size: 3, MIME: "text/plain"},
	}); err != nil {
		t.Fatalf("AppendUserMessage failed: %v", err)
	}
	if err := s.AppendToolCalls(id, []domain.ToolCall{
		{ID: "t1", Name: "read_file", Status: domain.ToolCallPending},
	}); err != nil {
		t.Fatalf("AppendToolCalls failed: %v", err)
	}

	sess, _ := s.Get(id)
	sess.Transcript[0].Attachments[0].Name = "mutated"
	sess.PendingToolCalls[0].Status = domain.ToolCallError

	again, _ := s.Get(id)
	if again.Transcript[0].Attachments[0].Name != "a.txt" {
		t.Errorf("Attachment mutation leaked into the store")
	}
	if again.PendingToolCalls[0].Status != domain.ToolCallPending {
		t.Errorf("Tool call mutation leaked into the store")
	}
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s := NewStore()
	id := s.ActiveID()
	if _, err := s.AppendUserMessage(id, "hello", nil); err != nil {
		t.Fatalf("AppendUserMessage failed: %v", err)
	}

	snapshot, _ := s.Snapshot()
	snapshot[0].Transcript[0].Content = "mutated"

	sess, _ := s.Get(id)
	if sess.Transcript[0].Content != "hello" {
		t.Errorf("Snapshot mutation leaked into the store")
	}
}
