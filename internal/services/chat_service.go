package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"placementhelper/internal/models"
)

// sessionNameLayout produces the default name of a fresh chat session,
// e.g. "Session 2024-01-01 10:00:00".
const sessionNameLayout = "Session 2006-01-02 15:04:05"

// ErrBadSessionName rejects session names that MongoDB would treat as a key
// path ('.') or operator ('$') inside the chat_history document.
var ErrBadSessionName = errors.New("session name must not contain '.' or '$'")

// ChatService runs the conversational tool: it keeps named chat sessions in
// the user's state, feeds the full conversation to the completion service,
// and merge-writes the session back after every exchange.
type ChatService struct {
	state     StateManager
	completer Completer
}

// NewChatService creates a new chat service
func NewChatService(state StateManager, completer Completer) *ChatService {
	return &ChatService{state: state, completer: completer}
}

// NewSessionName returns a timestamp-derived session name
func (s *ChatService) NewSessionName() string {
	return time.Now().Format(sessionNameLayout)
}

// SendMessage appends the user's message to the session (starting a new one
// if sessionName is empty), requests a completion over the whole
// conversation, appends the reply, and persists the session under its name.
// On any completion error the conversation is left exactly as it was.
func (s *ChatService) SendMessage(ctx context.Context, userID, sessionName, message string) (reply, session string, err error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", "", fmt.Errorf("message is required")
	}

	if strings.ContainsAny(sessionName, ".$") {
		return "", "", ErrBadSessionName
	}
	if sessionName == "" {
		sessionName = s.NewSessionName()
	}

	var turns []models.ChatTurn
	err = s.state.WithState(ctx, userID, func(st *models.UserState) error {
		prior := st.ChatHistory[sessionName]
		turns = make([]models.ChatTurn, 0, len(prior)+2)
		turns = append(turns, prior...)
		turns = append(turns, models.ChatTurn{Role: models.RoleUser, Content: message})
		return nil
	})
	if err != nil {
		return "", "", err
	}

	// The completion can take minutes; it must not run under the per-user
	// lock. Quota and generic errors alike: no state change, no retry.
	text, err := s.completer.Complete(ctx, turns)
	if err != nil {
		return "", "", err
	}

	turns = append(turns, models.ChatTurn{Role: models.RoleModel, Content: text})
	err = s.state.WithState(ctx, userID, func(st *models.UserState) error {
		st.ChatHistory[sessionName] = turns
		return nil
	})
	if err != nil {
		return "", "", err
	}

	if err := s.state.SaveChatSession(ctx, userID, sessionName, turns); err != nil {
		return "", "", fmt.Errorf("failed to persist chat session: %w", err)
	}

	return text, sessionName, nil
}

// ListSessions returns the user's chat history sidebar: session names with
// turn counts, in chronological name order.
func (s *ChatService) ListSessions(ctx context.Context, userID string) ([]models.ChatSessionSummary, error) {
	var summaries []models.ChatSessionSummary
	err := s.state.WithState(ctx, userID, func(st *models.UserState) error {
		for name, turns := range st.ChatHistory {
			summaries = append(summaries, models.ChatSessionSummary{Name: name, TurnCount: len(turns)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Timestamp-derived names sort chronologically.
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })
	return summaries, nil
}

// GetSession returns a copy of the stored turns for one session, in
// conversation order, for restoring the chat context.
func (s *ChatService) GetSession(ctx context.Context, userID, name string) ([]models.ChatTurn, error) {
	var turns []models.ChatTurn
	err := s.state.WithState(ctx, userID, func(st *models.UserState) error {
		stored, ok := st.ChatHistory[name]
		if !ok {
			return fmt.Errorf("chat session %q not found", name)
		}
		turns = append([]models.ChatTurn{}, stored...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return turns, nil
}
