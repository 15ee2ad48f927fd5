package services

import (
	"context"
	"sync"

	"placementhelper/internal/models"
)

// fakeState is an in-memory StateManager for tests. It records every
// persisted write so tests can assert what would hit the document store.
type fakeState struct {
	mu    sync.Mutex
	state *models.UserState

	savedSessions   map[string][]models.ChatTurn
	savedCalendars  int
	savedLastFields map[string]string
}

func newFakeState(userID string) *fakeState {
	return &fakeState{
		state:           models.NewUserState(userID),
		savedSessions:   make(map[string][]models.ChatTurn),
		savedLastFields: make(map[string]string),
	}
}

func (f *fakeState) WithState(ctx context.Context, userID string, fn func(*models.UserState) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(f.state)
}

func (f *fakeState) SaveChatSession(ctx context.Context, userID, name string, turns []models.ChatTurn) error {
	f.savedSessions[name] = append([]models.ChatTurn{}, turns...)
	return nil
}

func (f *fakeState) SaveCalendar(ctx context.Context, userID string, pending, completed map[string][]string) error {
	f.savedCalendars++
	return nil
}

func (f *fakeState) SaveLastResult(ctx context.Context, userID, field, value string) error {
	f.savedLastFields[field] = value
	return nil
}

// fakeCompleter returns a canned reply (or error) and records prompts
type fakeCompleter struct {
	reply   string
	err     error
	prompts [][]models.ChatTurn
}

func (f *fakeCompleter) Complete(ctx context.Context, turns []models.ChatTurn) (string, error) {
	f.prompts = append(f.prompts, append([]models.ChatTurn{}, turns...))
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}
