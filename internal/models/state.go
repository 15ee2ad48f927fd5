package models

// Roles used in stored chat turns. "model" (not "assistant") is the stored
// role for replies — it is the wire format the frontend already persists.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Field names of the per-user state document. Merge-writes $set only these.
const (
	FieldChatHistory        = "chat_history"
	FieldPlacementCalendar  = "placement_calendar"
	FieldCompletedCompanies = "completed_companies"
	FieldComparatorResult   = "last_comparator_result"
	FieldATSResult          = "last_ats_result"
	FieldCoverLetter        = "last_cover_letter"
	FieldAptitudeResult     = "last_aptitude_result"
)

// ChatTurn is a single message in a chat session. Turns are immutable once
// appended; slice order is conversation order.
type ChatTurn struct {
	Role    string `bson:"role" json:"role"`
	Content string `bson:"content" json:"content"`
}

// UserState is the working state of one authenticated user: everything the
// document store holds for them, hydrated on login and mutated in memory.
// Handlers reach it only through StateService.WithState, never via globals.
type UserState struct {
	UserID string `bson:"userId" json:"-"`

	// Session name -> ordered turns.
	ChatHistory map[string][]ChatTurn `bson:"chat_history" json:"chat_history"`

	// ISO date (2006-01-02) -> company names awaiting action.
	PlacementCalendar map[string][]string `bson:"placement_calendar" json:"placement_calendar"`

	// ISO date -> company names already marked done.
	CompletedCompanies map[string][]string `bson:"completed_companies" json:"completed_companies"`

	// Last tool outputs, one overwritten slot each, no history.
	ComparatorResult string `bson:"last_comparator_result" json:"last_comparator_result"`
	ATSResult        string `bson:"last_ats_result" json:"last_ats_result"`
	CoverLetter      string `bson:"last_cover_letter" json:"last_cover_letter"`
	AptitudeResult   string `bson:"last_aptitude_result" json:"last_aptitude_result"`
}

// NewUserState returns an empty state with every container allocated, so a
// missing document behaves exactly like a new user.
func NewUserState(userID string) *UserState {
	return &UserState{
		UserID:             userID,
		ChatHistory:        map[string][]ChatTurn{},
		PlacementCalendar:  map[string][]string{},
		CompletedCompanies: map[string][]string{},
	}
}

// EnsureContainers backfills nil maps after BSON decoding. Missing keys in
// the stored document must read as defined empty containers, never nil.
func (s *UserState) EnsureContainers() {
	if s.ChatHistory == nil {
		s.ChatHistory = map[string][]ChatTurn{}
	}
	if s.PlacementCalendar == nil {
		s.PlacementCalendar = map[string][]string{}
	}
	if s.CompletedCompanies == nil {
		s.CompletedCompanies = map[string][]string{}
	}
}

// Clone returns a deep copy. Snapshots handed outside the per-user lock
// must not alias the live maps or turn slices.
func (s *UserState) Clone() *UserState {
	c := &UserState{
		UserID:             s.UserID,
		ChatHistory:        make(map[string][]ChatTurn, len(s.ChatHistory)),
		PlacementCalendar:  make(map[string][]string, len(s.PlacementCalendar)),
		CompletedCompanies: make(map[string][]string, len(s.CompletedCompanies)),
		ComparatorResult:   s.ComparatorResult,
		ATSResult:          s.ATSResult,
		CoverLetter:        s.CoverLetter,
		AptitudeResult:     s.AptitudeResult,
	}
	for name, turns := range s.ChatHistory {
		c.ChatHistory[name] = append([]ChatTurn{}, turns...)
	}
	for date, companies := range s.PlacementCalendar {
		c.PlacementCalendar[date] = append([]string{}, companies...)
	}
	for date, companies := range s.CompletedCompanies {
		c.CompletedCompanies[date] = append([]string{}, companies...)
	}
	return c
}

// CalendarDay is one date's worth of companies for listing, already in the
// order they were added.
type CalendarDay struct {
	Date      string   `json:"date"`
	Companies []string `json:"companies"`
}

// ChatSessionSummary is a history-sidebar entry.
type ChatSessionSummary struct {
	Name      string `json:"name"`
	TurnCount int    `json:"turn_count"`
}
