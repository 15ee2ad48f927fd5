package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"placementhelper/internal/models"
)

func TestChatSendMessage(t *testing.T) {
	state := newFakeState("user@test.com")
	completer := &fakeCompleter{reply: "Hello! How can I help with your placement prep?"}
	svc := NewChatService(state, completer)

	reply, session, err := svc.SendMessage(context.Background(), "user@test.com", "", "Hi there")
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if reply != completer.reply {
		t.Errorf("Expected reply %q, got %q", completer.reply, reply)
	}
	if !strings.HasPrefix(session, "Session ") {
		t.Errorf("Expected generated session name, got %q", session)
	}

	turns := state.state.ChatHistory[session]
	if len(turns) != 2 {
		t.Fatalf("Expected 2 turns stored, got %d", len(turns))
	}
	if turns[0].Role != models.RoleUser || turns[0].Content != "Hi there" {
		t.Errorf("Unexpected first turn: %+v", turns[0])
	}
	if turns[1].Role != models.RoleModel {
		t.Errorf("Expected stored role %q, got %q", models.RoleModel, turns[1].Role)
	}

	if saved, ok := state.savedSessions[session]; !ok || len(saved) != 2 {
		t.Errorf("Expected session persisted with 2 turns, got %v", saved)
	}
}

func TestChatSendMessageContinuesSession(t *testing.T) {
	state := newFakeState("user@test.com")
	completer := &fakeCompleter{reply: "Sure."}
	svc := NewChatService(state, completer)
	ctx := context.Background()

	if _, _, err := svc.SendMessage(ctx, "user@test.com", "Session A", "First"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if _, _, err := svc.SendMessage(ctx, "user@test.com", "Session A", "Second"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	turns := state.state.ChatHistory["Session A"]
	if len(turns) != 4 {
		t.Fatalf("Expected 4 turns after two exchanges, got %d", len(turns))
	}

	// The second completion call must have carried the full conversation
	last := completer.prompts[len(completer.prompts)-1]
	if len(last) != 3 {
		t.Fatalf("Expected 3 turns in second prompt, got %d", len(last))
	}
	if last[2].Content != "Second" {
		t.Errorf("Expected new message last in prompt, got %q", last[2].Content)
	}
}

func TestChatSendMessageRejectsMongoKeyChars(t *testing.T) {
	state := newFakeState("user@test.com")
	completer := &fakeCompleter{reply: "x"}
	svc := NewChatService(state, completer)
	ctx := context.Background()

	// A dot would nest the session as an embedded document in Mongo and a
	// '$' would be read as an operator; both corrupt the stored document.
	for _, name := range []string{"notes.v2", "$set", "a.b.c", "pre$fix"} {
		_, _, err := svc.SendMessage(ctx, "user@test.com", name, "Hi")
		if !errors.Is(err, ErrBadSessionName) {
			t.Errorf("Expected ErrBadSessionName for %q, got %v", name, err)
		}
	}
	if len(completer.prompts) != 0 {
		t.Error("Rejected session names must not call the provider")
	}
	if len(state.state.ChatHistory) != 0 || len(state.savedSessions) != 0 {
		t.Error("Rejected session names must not touch state")
	}
}

// lockingCompleter reads the user's state mid-completion, the way a
// concurrent request would. It hangs if SendMessage still holds the
// per-user lock while completing.
type lockingCompleter struct {
	state *fakeState
	reply string
}

func (l *lockingCompleter) Complete(ctx context.Context, turns []models.ChatTurn) (string, error) {
	err := l.state.WithState(ctx, "user@test.com", func(*models.UserState) error { return nil })
	if err != nil {
		return "", err
	}
	return l.reply, nil
}

func TestChatCompletionRunsOutsideStateLock(t *testing.T) {
	state := newFakeState("user@test.com")
	svc := NewChatService(state, &lockingCompleter{state: state, reply: "ok"})

	done := make(chan error, 1)
	go func() {
		_, _, err := svc.SendMessage(context.Background(), "user@test.com", "Session A", "Hi")
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("SendMessage failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("SendMessage held the per-user lock across the completion call")
	}

	if turns := state.state.ChatHistory["Session A"]; len(turns) != 2 {
		t.Errorf("Expected 2 turns stored, got %d", len(turns))
	}
}

func TestChatSendMessageBlank(t *testing.T) {
	svc := NewChatService(newFakeState("user@test.com"), &fakeCompleter{reply: "x"})

	if _, _, err := svc.SendMessage(context.Background(), "user@test.com", "", "   "); err == nil {
		t.Error("Expected error for blank message")
	}
}

func TestChatCompletionErrorLeavesStateUnchanged(t *testing.T) {
	state := newFakeState("user@test.com")
	completer := &fakeCompleter{err: ErrQuotaExhausted}
	svc := NewChatService(state, completer)

	_, _, err := svc.SendMessage(context.Background(), "user@test.com", "Session A", "Hi")
	if !errors.Is(err, ErrQuotaExhausted) {
		t.Fatalf("Expected ErrQuotaExhausted, got %v", err)
	}

	if len(state.state.ChatHistory) != 0 {
		t.Errorf("Conversation must be unchanged on error, got %v", state.state.ChatHistory)
	}
	if len(state.savedSessions) != 0 {
		t.Errorf("Nothing must be persisted on error, got %v", state.savedSessions)
	}
}

func TestChatListSessionsChronological(t *testing.T) {
	state := newFakeState("user@test.com")
	state.state.ChatHistory["Session 2026-01-02 10:00:00"] = []models.ChatTurn{{Role: models.RoleUser, Content: "b"}}
	state.state.ChatHistory["Session 2026-01-01 09:00:00"] = []models.ChatTurn{
		{Role: models.RoleUser, Content: "a"},
		{Role: models.RoleModel, Content: "a!"},
	}
	svc := NewChatService(state, &fakeCompleter{})

	sessions, err := svc.ListSessions(context.Background(), "user@test.com")
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("Expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].Name != "Session 2026-01-01 09:00:00" {
		t.Errorf("Expected oldest session first, got %q", sessions[0].Name)
	}
	if sessions[0].TurnCount != 2 {
		t.Errorf("Expected turn count 2, got %d", sessions[0].TurnCount)
	}
}

func TestChatGetSession(t *testing.T) {
	state := newFakeState("user@test.com")
	state.state.ChatHistory["Session A"] = []models.ChatTurn{
		{Role: models.RoleUser, Content: "q"},
		{Role: models.RoleModel, Content: "a"},
	}
	svc := NewChatService(state, &fakeCompleter{})

	turns, err := svc.GetSession(context.Background(), "user@test.com", "Session A")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if len(turns) != 2 || turns[1].Content != "a" {
		t.Errorf("Unexpected turns: %v", turns)
	}

	if _, err := svc.GetSession(context.Background(), "user@test.com", "nope"); err == nil {
		t.Error("Expected error for unknown session")
	}
}
