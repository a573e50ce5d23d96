package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		provider string
		wantURL  string
	}{
		{"ollama", "http://localhost:11434"},
		{"lmstudio", "http://localhost:1234"},
		{"openai", "https://api.openai.com"},
		{"groq", "https://api.groq.com/openai"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			p, err := NewProvider(Config{Provider: tt.provider, Model: "test-model"})
			if err != nil {
				t.Fatalf("NewProvider(%q) returned error: %v", tt.provider, err)
			}
			oc, ok := p.(*openAICompatProvider)
			if !ok {
				t.Fatalf("NewProvider(%q) type = %T", tt.provider, p)
			}
			if oc.cfg.BaseURL != tt.wantURL {
				t.Errorf("default BaseURL = %q, want %q", oc.cfg.BaseURL, tt.wantURL)
			}
			if oc.cfg.Model != "test-model" {
				t.Errorf("model = %q, want test-model", oc.cfg.Model)
			}
		})
	}
}

func TestNewProviderErrors(t *testing.T) {
	tests := []struct {
		cfg  Config
		want string
	}{
		{Config{Provider: "doesnotexist"}, "unknown llm provider: doesnotexist"},
		{Config{Provider: ""}, "llm provider not specified"},
		{Config{Provider: "custom"}, "llm provider custom requires base_url"},
	}
	for _, tt := range tests {
		_, err := NewProvider(tt.cfg)
		if err == nil {
			t.Fatalf("NewProvider(%+v) expected error", tt.cfg)
		}
		if err.Error() != tt.want {
			t.Errorf("error = %q, want %q", err.Error(), tt.want)
		}
	}
}

// TestExplicitBaseURLPreserved verifies that a user-supplied BaseURL
// is not overwritten by the default.
func TestExplicitBaseURLPreserved(t *testing.T) {
	customURL := "http://my-server:9999"
	for _, provider := range []string{"ollama", "lmstudio", "openai", "groq", "custom"} {
		t.Run(provider, func(t *testing.T) {
			p, err := NewProvider(Config{Provider: provider, Model: "m", BaseURL: customURL})
			if err != nil {
				t.Fatalf("NewProvider(%q): %v", provider, err)
			}
			if got := p.(*openAICompatProvider).cfg.BaseURL; got != customURL {
				t.Errorf("BaseURL = %q, want %q", got, customURL)
			}
		})
	}
}

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}

		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Model != "default-model" {
			t.Errorf("model = %q, want default-model", req.Model)
		}
		if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_object" {
			t.Errorf("response_format = %+v", req.ResponseFormat)
		}
		if len(req.Messages) != 1 || req.Messages[0].Content != "привет" {
			t.Errorf("messages = %+v", req.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"model":"default-model","choices":[{"message":{"content":"{\"entities\":[]}"},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":4,"total_tokens":7}}`))
	}))
	defer srv.Close()

	p := newOpenAICompat(Config{Model: "default-model", BaseURL: srv.URL, APIKey: "sk-test"})
	resp, err := p.Chat(context.Background(), ChatRequest{
		Messages:       []Message{{Role: "user", Content: "привет"}},
		ResponseFormat: "json_object",
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != `{"entities":[]}` {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.TotalTokens != 7 || resp.FinishReason != "stop" {
		t.Errorf("response = %+v", resp)
	}
}

func TestChatRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	p := newOpenAICompat(Config{BaseURL: srv.URL})
	p.retryDelay = time.Millisecond

	resp, err := p.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "x"}}})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("content = %q", resp.Content)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestChatNonRetryableError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	p := newOpenAICompat(Config{BaseURL: srv.URL})
	p.retryDelay = time.Millisecond

	if _, err := p.Chat(context.Background(), ChatRequest{}); err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestChatNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	p := newOpenAICompat(Config{BaseURL: srv.URL})
	if _, err := p.Chat(context.Background(), ChatRequest{}); err == nil {
		t.Fatal("expected error for empty choices")
	}
}
