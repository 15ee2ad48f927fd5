package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"placementhelper/internal/models"
)

// ErrQuotaExhausted signals a rate-limit/quota rejection from the completion
// provider. Callers surface it as a non-fatal warning; conversation state is
// never changed and there is no automatic retry.
var ErrQuotaExhausted = errors.New("completion quota exhausted")

// Completer is the completion-service dependency of the tool services.
// Satisfied by *CompletionService.
type Completer interface {
	Complete(ctx context.Context, turns []models.ChatTurn) (string, error)
}

// CompletionConfig configures the OpenAI-compatible completion client
type CompletionConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	RatePerSec  float64
}

// CompletionService calls an OpenAI-compatible chat completions endpoint.
// Calls are synchronous and non-streaming; a client-side rate limiter keeps
// us under the provider's request ceiling.
type CompletionService struct {
	cfg        CompletionConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *Metrics

	mu        sync.RWMutex
	healthy   bool
	lastError string
	lastCheck time.Time
}

// NewCompletionService creates a new completion service
func NewCompletionService(cfg CompletionConfig, metrics *Metrics) *CompletionService {
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 2
	}
	return &CompletionService{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSec), int(cfg.RatePerSec*2)+1),
		metrics:    metrics,
		healthy:    true,
	}
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Complete sends the conversation to the provider and returns the reply
// text. Stored turns use role "model"; the wire role is "assistant".
func (s *CompletionService) Complete(ctx context.Context, turns []models.ChatTurn) (string, error) {
	if len(turns) == 0 {
		return "", fmt.Errorf("no prompt to complete")
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	messages := make([]completionMessage, 0, len(turns))
	for _, t := range turns {
		role := t.Role
		if role == models.RoleModel {
			role = "assistant"
		}
		messages = append(messages, completionMessage{Role: role, Content: t.Content})
	}

	requestBody := map[string]interface{}{
		"model":       s.cfg.Model,
		"messages":    messages,
		"temperature": s.cfg.Temperature,
		"stream":      false,
	}

	bodyBytes, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := strings.TrimSuffix(s.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	if s.metrics != nil {
		s.metrics.CompletionRequests.Inc()
	}
	start := time.Now()

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.recordError("generic", err.Error())
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if s.metrics != nil {
		s.metrics.CompletionLatency.Observe(time.Since(start).Seconds())
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		bodyStr := string(body)

		if isQuotaError(resp.StatusCode, bodyStr) {
			s.recordError("quota", bodyStr)
			log.Printf("⚠️ Completion quota exhausted (status %d)", resp.StatusCode)
			return "", ErrQuotaExhausted
		}

		s.recordError("generic", bodyStr)
		return "", fmt.Errorf("completion request failed with status %d: %s", resp.StatusCode, bodyStr)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		s.recordError("generic", err.Error())
		return "", fmt.Errorf("failed to parse completion response: %w", err)
	}

	if len(result.Choices) == 0 {
		s.recordError("generic", "empty choices")
		return "", fmt.Errorf("completion response contained no choices")
	}

	s.recordSuccess()
	return result.Choices[0].Message.Content, nil
}

// CheckHealth sends a one-token probe to the provider. Used by the periodic
// health job; failures only mark status, they never block tool calls.
func (s *CompletionService) CheckHealth(ctx context.Context) error {
	_, err := s.Complete(ctx, []models.ChatTurn{{Role: models.RoleUser, Content: "ping"}})
	if err != nil && !errors.Is(err, ErrQuotaExhausted) {
		return err
	}
	// A quota rejection still proves the endpoint is reachable.
	return nil
}

// Status reports the provider state as observed by the last call or probe
func (s *CompletionService) Status() (healthy bool, lastError string, lastCheck time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.healthy, s.lastError, s.lastCheck
}

func (s *CompletionService) recordSuccess() {
	s.mu.Lock()
	s.healthy = true
	s.lastError = ""
	s.lastCheck = time.Now()
	s.mu.Unlock()
}

func (s *CompletionService) recordError(errType, msg string) {
	if s.metrics != nil {
		s.metrics.CompletionErrors.WithLabelValues(errType).Inc()
	}
	s.mu.Lock()
	s.healthy = false
	if len(msg) > 500 {
		msg = msg[:500]
	}
	s.lastError = msg
	s.lastCheck = time.Now()
	s.mu.Unlock()
}

// isQuotaError detects if a provider rejection is quota/rate-limit related
func isQuotaError(statusCode int, responseBody string) bool {
	if statusCode == http.StatusTooManyRequests {
		return true
	}

	lowerBody := strings.ToLower(responseBody)
	quotaPatterns := []string{
		"quota exceeded",
		"rate limit",
		"too many requests",
		"request limit",
		"tokens per minute",
		"requests per minute",
		"daily limit",
		"insufficient_quota",
		"resource_exhausted",
		"rate_limit_exceeded",
		"quota_exceeded",
	}

	for _, pattern := range quotaPatterns {
		if strings.Contains(lowerBody, pattern) {
			return true
		}
	}

	return false
}
