package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"placementhelper/internal/database"
	"placementhelper/internal/models"
)

// StateManager is the view of the session state manager that the tool
// services need. Satisfied by *StateService.
type StateManager interface {
	// WithState runs fn against the user's working state under the per-user
	// lock, hydrating from the document store on first access.
	WithState(ctx context.Context, userID string, fn func(*models.UserState) error) error

	// SaveChatSession merge-writes one chat session under its name.
	SaveChatSession(ctx context.Context, userID, name string, turns []models.ChatTurn) error

	// SaveCalendar merge-writes both calendar maps together, in one write.
	SaveCalendar(ctx context.Context, userID string, pending, completed map[string][]string) error

	// SaveLastResult overwrites a single last-result field.
	SaveLastResult(ctx context.Context, userID, field, value string) error
}

// stateCollection is the subset of *mongo.Collection the state service
// uses. Tests substitute an in-memory implementation.
type stateCollection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

// StateService is the session state manager: it hydrates the per-user
// document into memory, hands out the state under a per-user lock, and
// merge-writes mutations back. The in-memory state is authoritative for the
// duration of one running session; across processes, last write wins per
// touched field.
type StateService struct {
	collection stateCollection
	sessions   *gocache.Cache // userID -> *sessionEntry
	mu         sync.Mutex     // serialises entry creation
}

type sessionEntry struct {
	mu    sync.Mutex
	state *models.UserState
}

// NewStateService creates a new state service. Idle sessions expire after
// sessionTTL and are re-hydrated on next access.
func NewStateService(db *database.MongoDB, sessionTTL time.Duration) *StateService {
	return &StateService{
		collection: db.Collection(database.CollectionUserStates),
		sessions:   gocache.New(sessionTTL, 2*sessionTTL),
	}
}

// Hydrate loads the user's document into the session cache, treating a
// missing document as a new user. It never fails on absence.
func (s *StateService) Hydrate(ctx context.Context, userID string) (*models.UserState, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	state := models.NewUserState(userID)
	err := s.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(state)
	if err != nil && err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("failed to hydrate state for %s: %w", userID, err)
	}
	state.UserID = userID
	state.EnsureContainers()

	s.mu.Lock()
	s.sessions.SetDefault(userID, &sessionEntry{state: state})
	s.mu.Unlock()

	log.Printf("✅ Hydrated state for %s (%d chat sessions, %d pending dates)",
		userID, len(state.ChatHistory), len(state.PlacementCalendar))
	return state, nil
}

// entry returns the cached session for userID, hydrating on a miss.
func (s *StateService) entry(ctx context.Context, userID string) (*sessionEntry, error) {
	if v, ok := s.sessions.Get(userID); ok {
		return v.(*sessionEntry), nil
	}

	if _, err := s.Hydrate(ctx, userID); err != nil {
		return nil, err
	}
	v, ok := s.sessions.Get(userID)
	if !ok {
		return nil, fmt.Errorf("session for %s evicted during hydration", userID)
	}
	return v.(*sessionEntry), nil
}

// WithState implements StateManager
func (s *StateService) WithState(ctx context.Context, userID string, fn func(*models.UserState) error) error {
	entry, err := s.entry(ctx, userID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return fn(entry.state)
}

// mergeWrite performs a non-destructive partial update: only the given
// fields are $set, all other top-level fields remain untouched.
func (s *StateService) mergeWrite(ctx context.Context, userID string, fields bson.M) error {
	update := bson.M{
		"$set":         fields,
		"$setOnInsert": bson.M{"userId": userID},
	}
	_, err := s.collection.UpdateOne(ctx, bson.M{"userId": userID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("merge-write failed for %s: %w", userID, err)
	}
	return nil
}

// SaveChatSession implements StateManager. The name becomes part of the
// update key path, so '.' and '$' must never reach this point: a dot would
// nest the session under chat_history as an embedded document the decoder
// cannot read back, locking the user out of their own state.
func (s *StateService) SaveChatSession(ctx context.Context, userID, name string, turns []models.ChatTurn) error {
	if strings.ContainsAny(name, ".$") {
		return fmt.Errorf("session name %q is not usable as a document key", name)
	}
	return s.mergeWrite(ctx, userID, bson.M{
		models.FieldChatHistory + "." + name: turns,
	})
}

// SaveCalendar implements StateManager
func (s *StateService) SaveCalendar(ctx context.Context, userID string, pending, completed map[string][]string) error {
	return s.mergeWrite(ctx, userID, bson.M{
		models.FieldPlacementCalendar:  pending,
		models.FieldCompletedCompanies: completed,
	})
}

// SaveLastResult implements StateManager
func (s *StateService) SaveLastResult(ctx context.Context, userID, field, value string) error {
	switch field {
	case models.FieldComparatorResult, models.FieldATSResult,
		models.FieldCoverLetter, models.FieldAptitudeResult:
	default:
		return fmt.Errorf("unknown last-result field: %s", field)
	}
	return s.mergeWrite(ctx, userID, bson.M{field: value})
}

// Flush merge-writes the user's full working state back in one consolidated
// write. Used on logout and shutdown; per-action writes already cover the
// normal path.
func (s *StateService) Flush(ctx context.Context, userID string) error {
	v, ok := s.sessions.Get(userID)
	if !ok {
		return nil
	}
	entry := v.(*sessionEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	st := entry.state
	return s.mergeWrite(ctx, userID, bson.M{
		models.FieldChatHistory:        st.ChatHistory,
		models.FieldPlacementCalendar:  st.PlacementCalendar,
		models.FieldCompletedCompanies: st.CompletedCompanies,
		models.FieldComparatorResult:   st.ComparatorResult,
		models.FieldATSResult:          st.ATSResult,
		models.FieldCoverLetter:        st.CoverLetter,
		models.FieldAptitudeResult:     st.AptitudeResult,
	})
}

// FlushAll flushes every live session. Called on graceful shutdown.
func (s *StateService) FlushAll(ctx context.Context) {
	for userID := range s.sessions.Items() {
		if err := s.Flush(ctx, userID); err != nil {
			log.Printf("⚠️ Failed to flush state for %s: %v", userID, err)
		}
	}
}

// Drop flushes and forgets a user's session (logout)
func (s *StateService) Drop(ctx context.Context, userID string) error {
	err := s.Flush(ctx, userID)
	s.sessions.Delete(userID)
	return err
}
