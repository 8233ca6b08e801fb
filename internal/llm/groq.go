package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultMaxTokens = 1024
	requestTimeout   = 30 * time.Second
	temperature      = 0.8
)

// Groq talks to the Groq OpenAI-compatible chat-completion endpoint.
type Groq struct {
	client *openai.Client
	model  string
	apiKey string
}

// NewGroq creates a client for the given endpoint. An empty apiKey yields a
// client whose Chat always returns ErrNotConfigured.
func NewGroq(apiKey, model, baseURL string) *Groq {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	cfg.HTTPClient = &http.Client{Timeout: requestTimeout}
	return &Groq{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		apiKey: apiKey,
	}
}

// Model returns the configured model identifier.
func (g *Groq) Model() string { return g.model }

// Configured reports whether a credential is present.
func (g *Groq) Configured() bool { return g.apiKey != "" }

// Chat sends the message list and returns the completion text. One attempt,
// fixed timeout, no retries.
func (g *Groq) Chat(ctx context.Context, messages []Message, maxTokens int) (string, error) {
	if !g.Configured() {
		return "", ErrNotConfigured
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	req := openai.ChatCompletionRequest{
		Model:       g.model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("groq chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("groq chat completion: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}
