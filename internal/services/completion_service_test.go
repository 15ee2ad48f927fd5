package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"placementhelper/internal/models"
)

func newTestCompletionService(baseURL string) *CompletionService {
	return NewCompletionService(CompletionConfig{
		BaseURL:    baseURL,
		APIKey:     "test-key",
		Model:      "test-model",
		RatePerSec: 1000, // don't throttle tests
	}, nil)
}

func TestCompleteSuccess(t *testing.T) {
	var gotReq struct {
		Model    string `json:"model"`
		Stream   bool   `json:"stream"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Unexpected Authorization header: %s", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "Here you go."}},
			},
		})
	}))
	defer server.Close()

	svc := newTestCompletionService(server.URL)
	reply, err := svc.Complete(context.Background(), []models.ChatTurn{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleModel, Content: "hello"},
		{Role: models.RoleUser, Content: "more"},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if reply != "Here you go." {
		t.Errorf("Expected reply %q, got %q", "Here you go.", reply)
	}

	if gotReq.Model != "test-model" || gotReq.Stream {
		t.Errorf("Unexpected request body: %+v", gotReq)
	}
	if len(gotReq.Messages) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(gotReq.Messages))
	}
	// Stored role "model" must be sent as "assistant" on the wire
	if gotReq.Messages[1].Role != "assistant" {
		t.Errorf("Expected wire role assistant, got %q", gotReq.Messages[1].Role)
	}

	healthy, lastError, _ := svc.Status()
	if !healthy || lastError != "" {
		t.Errorf("Expected healthy status after success, got healthy=%v lastError=%q", healthy, lastError)
	}
}

func TestCompleteQuotaExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "quota exceeded"}}`))
	}))
	defer server.Close()

	svc := newTestCompletionService(server.URL)
	_, err := svc.Complete(context.Background(), []models.ChatTurn{{Role: models.RoleUser, Content: "hi"}})
	if !errors.Is(err, ErrQuotaExhausted) {
		t.Fatalf("Expected ErrQuotaExhausted, got %v", err)
	}
}

func TestCompleteQuotaPhraseIn500(t *testing.T) {
	// Gemini surfaces quota errors as RESOURCE_EXHAUSTED, not always 429
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": {"status": "RESOURCE_EXHAUSTED"}}`))
	}))
	defer server.Close()

	svc := newTestCompletionService(server.URL)
	_, err := svc.Complete(context.Background(), []models.ChatTurn{{Role: models.RoleUser, Content: "hi"}})
	if !errors.Is(err, ErrQuotaExhausted) {
		t.Fatalf("Expected ErrQuotaExhausted for RESOURCE_EXHAUSTED body, got %v", err)
	}
}

func TestCompleteGenericError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer server.Close()

	svc := newTestCompletionService(server.URL)
	_, err := svc.Complete(context.Background(), []models.ChatTurn{{Role: models.RoleUser, Content: "hi"}})
	if err == nil || errors.Is(err, ErrQuotaExhausted) {
		t.Fatalf("Expected generic error, got %v", err)
	}

	healthy, lastError, _ := svc.Status()
	if healthy {
		t.Error("Expected unhealthy status after failure")
	}
	if lastError == "" {
		t.Error("Expected lastError recorded")
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	svc := newTestCompletionService(server.URL)
	if _, err := svc.Complete(context.Background(), []models.ChatTurn{{Role: models.RoleUser, Content: "hi"}}); err == nil {
		t.Fatal("Expected error for empty choices")
	}
}

func TestCompleteEmptyPrompt(t *testing.T) {
	svc := newTestCompletionService("http://localhost:0")
	if _, err := svc.Complete(context.Background(), nil); err == nil {
		t.Fatal("Expected error for empty prompt")
	}
}

func TestCheckHealthTreatsQuotaAsReachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("rate limit"))
	}))
	defer server.Close()

	svc := newTestCompletionService(server.URL)
	if err := svc.CheckHealth(context.Background()); err != nil {
		t.Errorf("Quota rejection still proves reachability, got %v", err)
	}
}

func TestIsQuotaError(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   bool
	}{
		{429, "", true},
		{500, "RATE_LIMIT_EXCEEDED", true},
		{400, "insufficient_quota", true},
		{500, "internal error", false},
		{400, "bad request", false},
	}
	for _, c := range cases {
		if got := isQuotaError(c.status, c.body); got != c.want {
			t.Errorf("isQuotaError(%d, %q) = %v, want %v", c.status, c.body, got, c.want)
		}
	}
}
