package services

import (
	"context"
	"fmt"
	"strings"

	"placementhelper/internal/models"
)

// Prompt templates for the three resume tools. The wording is part of the
// product contract; do not reflow.
const (
	comparatorPrompt = "Compare the following resume and job description. Highlight strengths, gaps, and suggestions.\n\nResume:\n%s\n\nJob Description:\n%s"
	atsPrompt        = "Give an ATS compatibility score out of 100 for the resume below when matched with the job description. Explain the score and provide improvements.\n\nResume:\n%s\n\nJob Description:\n%s"
	coverPrompt      = "Write a professional cover letter based on the resume and job description below.\n\nResume:\n%s\n\nJob Description:\n%s"
)

// ReviewService runs the three resume/job-description tools: comparator,
// ATS scorer, and cover-letter generator. Each is a single synchronous
// completion with no retained conversation; the raw text overwrites exactly
// that tool's last-result field, and only after a successful call.
type ReviewService struct {
	state     StateManager
	completer Completer
}

// NewReviewService creates a new review service
func NewReviewService(state StateManager, completer Completer) *ReviewService {
	return &ReviewService{state: state, completer: completer}
}

// Compare runs the resume-vs-JD comparator
func (s *ReviewService) Compare(ctx context.Context, userID, resume, jd string) (string, error) {
	return s.run(ctx, userID, comparatorPrompt, models.FieldComparatorResult, resume, jd)
}

// ScoreATS runs the ATS compatibility scorer
func (s *ReviewService) ScoreATS(ctx context.Context, userID, resume, jd string) (string, error) {
	return s.run(ctx, userID, atsPrompt, models.FieldATSResult, resume, jd)
}

// CoverLetter generates a cover letter
func (s *ReviewService) CoverLetter(ctx context.Context, userID, resume, jd string) (string, error) {
	return s.run(ctx, userID, coverPrompt, models.FieldCoverLetter, resume, jd)
}

func (s *ReviewService) run(ctx context.Context, userID, template, field, resume, jd string) (string, error) {
	if strings.TrimSpace(resume) == "" || strings.TrimSpace(jd) == "" {
		return "", fmt.Errorf("both resume and job description are required")
	}

	prompt := fmt.Sprintf(template, resume, jd)
	result, err := s.completer.Complete(ctx, []models.ChatTurn{{Role: models.RoleUser, Content: prompt}})
	if err != nil {
		return "", err
	}

	err = s.state.WithState(ctx, userID, func(st *models.UserState) error {
		switch field {
		case models.FieldComparatorResult:
			st.ComparatorResult = result
		case models.FieldATSResult:
			st.ATSResult = result
		case models.FieldCoverLetter:
			st.CoverLetter = result
		}
		return s.state.SaveLastResult(ctx, userID, field, result)
	})
	if err != nil {
		return "", err
	}

	return result, nil
}
