package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"placementhelper/internal/models"
)

// ErrAlreadyScheduled signals that a company is already pending for a date.
// Surfaced as a non-fatal warning; the entry is left unchanged.
var ErrAlreadyScheduled = errors.New("company already added for this date")

const dateLayout = "2006-01-02"

// CalendarService manages the placement calendar: per-date company lists
// with a one-way pending -> completed transition. A company appears under a
// date in at most one of the two maps at any time.
type CalendarService struct {
	state StateManager
}

// NewCalendarService creates a new calendar service
func NewCalendarService(state StateManager) *CalendarService {
	return &CalendarService{state: state}
}

// AddEntry appends a company to the pending list for a date. Blank company
// names are rejected; a duplicate under the same date signals
// ErrAlreadyScheduled without touching the entry.
func (s *CalendarService) AddEntry(ctx context.Context, userID, date, company string) error {
	company = strings.TrimSpace(company)
	if company == "" {
		return fmt.Errorf("company name is required")
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", date)
	}

	return s.state.WithState(ctx, userID, func(st *models.UserState) error {
		if slices.Contains(st.PlacementCalendar[date], company) {
			return ErrAlreadyScheduled
		}

		st.PlacementCalendar[date] = append(st.PlacementCalendar[date], company)
		return s.state.SaveCalendar(ctx, userID, st.PlacementCalendar, st.CompletedCompanies)
	})
}

// MarkDone moves a company from pending to completed for a date, as one
// atomic transition from the caller's point of view: it is removed from
// pending and appended to completed, and both maps are persisted together.
// When the date's pending list empties, the date key is removed — no
// dangling empty lists. Marking a company that is not pending is a no-op.
func (s *CalendarService) MarkDone(ctx context.Context, userID, date, company string) error {
	return s.state.WithState(ctx, userID, func(st *models.UserState) error {
		pending := st.PlacementCalendar[date]
		idx := slices.Index(pending, company)
		if idx < 0 {
			return nil
		}

		pending = slices.Delete(pending, idx, idx+1)
		if len(pending) == 0 {
			delete(st.PlacementCalendar, date)
		} else {
			st.PlacementCalendar[date] = pending
		}
		st.CompletedCompanies[date] = append(st.CompletedCompanies[date], company)

		return s.state.SaveCalendar(ctx, userID, st.PlacementCalendar, st.CompletedCompanies)
	})
}

// Listing returns pending and completed entries grouped by date in
// ascending date order, companies in the order they were added.
func (s *CalendarService) Listing(ctx context.Context, userID string) (pending, completed []models.CalendarDay, err error) {
	err = s.state.WithState(ctx, userID, func(st *models.UserState) error {
		pending = sortedDays(st.PlacementCalendar)
		completed = sortedDays(st.CompletedCompanies)
		return nil
	})
	return pending, completed, err
}

func sortedDays(m map[string][]string) []models.CalendarDay {
	days := make([]models.CalendarDay, 0, len(m))
	for date, companies := range m {
		days = append(days, models.CalendarDay{
			Date:      date,
			Companies: append([]string{}, companies...),
		})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days
}
