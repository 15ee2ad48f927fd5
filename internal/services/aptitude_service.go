package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"placementhelper/internal/models"
)

// Question-count bounds for one generated practice set
const (
	MinQuestions = 5
	MaxQuestions = 60
)

// defaultTopics is the built-in topic catalogue
var defaultTopics = []string{
	"Quant - Profit & Loss", "Quant - Time & Work", "Quant - SI & CI", "Quant - Percentages",
	"Quant - Averages", "Quant - Number System", "Quant - Time Speed Distance",
	"Logical - Blood Relations", "Logical - Direction Sense", "Logical - Puzzles", "Logical - Syllogism",
	"Verbal - Synonyms", "Verbal - RC", "Verbal - Sentence Correction", "Verbal - Para Jumbles",
}

const aptitudePrompt = "Generate %d aptitude questions from the topic: %s with options and detailed solutions."

// ErrUnknownTopic signals a topic outside the catalogue
var ErrUnknownTopic = errors.New("unknown aptitude topic")

// AptitudeService generates practice question sets from a fixed topic
// catalogue. The generated text is opaque display content; no parsing.
type AptitudeService struct {
	state     StateManager
	completer Completer
	topics    []string
}

// NewAptitudeService creates a new aptitude service. topicsFile optionally
// points to a YAML list overriding the built-in catalogue.
func NewAptitudeService(state StateManager, completer Completer, topicsFile string) *AptitudeService {
	return &AptitudeService{
		state:     state,
		completer: completer,
		topics:    loadTopics(topicsFile),
	}
}

func loadTopics(path string) []string {
	if path == "" {
		return defaultTopics
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("⚠️ Failed to read topics file %s: %v (using built-in list)", path, err)
		return defaultTopics
	}

	var topics []string
	if err := yaml.Unmarshal(data, &topics); err != nil || len(topics) == 0 {
		log.Printf("⚠️ Invalid topics file %s: %v (using built-in list)", path, err)
		return defaultTopics
	}

	log.Printf("✅ Loaded %d aptitude topics from %s", len(topics), path)
	return topics
}

// Topics returns the topic catalogue
func (s *AptitudeService) Topics() []string {
	return slices.Clone(s.topics)
}

// BuildPrompt clamps count to [MinQuestions, MaxQuestions] and renders the
// generation prompt.
func BuildPrompt(topic string, count int) string {
	if count < MinQuestions {
		count = MinQuestions
	}
	if count > MaxQuestions {
		count = MaxQuestions
	}
	return fmt.Sprintf(aptitudePrompt, count, topic)
}

// Generate requests one practice set and overwrites the aptitude
// last-result field. Unknown topics are rejected.
func (s *AptitudeService) Generate(ctx context.Context, userID, topic string, count int) (string, error) {
	if !slices.Contains(s.topics, topic) {
		return "", fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}

	prompt := BuildPrompt(topic, count)
	result, err := s.completer.Complete(ctx, []models.ChatTurn{{Role: models.RoleUser, Content: prompt}})
	if err != nil {
		return "", err
	}

	err = s.state.WithState(ctx, userID, func(st *models.UserState) error {
		st.AptitudeResult = result
		return s.state.SaveLastResult(ctx, userID, models.FieldAptitudeResult, result)
	})
	if err != nil {
		return "", err
	}

	return result, nil
}
