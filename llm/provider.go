package llm

import (
	"context"
	"fmt"
)

// Provider is the interface for chat-completion backends.
type Provider interface {
	// Chat sends a chat completion request.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest is a chat completion request.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	// Temperature is sent when set; nil leaves the server default.
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	// ResponseFormat can be set to "json_object" for JSON mode.
	ResponseFormat string `json:"response_format,omitempty"`
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is the response from a chat completion.
type ChatResponse struct {
	Content          string `json:"content"`
	Model            string `json:"model"`
	FinishReason     string `json:"finish_reason"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
}

// Config configures an LLM provider.
type Config struct {
	Provider string `json:"provider" yaml:"provider" mapstructure:"provider"` // ollama, lmstudio, openai, groq, custom
	Model    string `json:"model" yaml:"model" mapstructure:"model"`
	BaseURL  string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`
	APIKey   string `json:"api_key" yaml:"api_key" mapstructure:"api_key"`
}

// defaultBaseURLs are used when Config.BaseURL is empty. The custom
// provider has no default.
var defaultBaseURLs = map[string]string{
	"ollama":   "http://localhost:11434",
	"lmstudio": "http://localhost:1234",
	"openai":   "https://api.openai.com",
	"groq":     "https://api.groq.com/openai",
}

// NewProvider creates an LLM provider from configuration. Every supported
// backend speaks the OpenAI chat-completions protocol.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "ollama", "lmstudio", "openai", "groq":
		if cfg.BaseURL == "" {
			cfg.BaseURL = defaultBaseURLs[cfg.Provider]
		}
		return NewOpenAICompat(cfg), nil
	case "custom":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("llm provider custom requires base_url")
		}
		return NewOpenAICompat(cfg), nil
	case "":
		return nil, fmt.Errorf("llm provider not specified")
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}
