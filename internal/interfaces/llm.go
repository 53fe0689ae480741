package interfaces

import "context"

// Message is one chat message in a completion request.
type Message struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

// CompletionRequest is a provider-agnostic chat completion request.
type CompletionRequest struct {
	Messages    []Message
	Model       string
	Temperature float32
	MaxTokens   int
}

// LLMProvider generates content for cover letters, CV enrichment and optional
// confidence judgements. Both uses are non-critical: callers must have an
// explicit fallback when the provider errors.
type LLMProvider interface {
	GenerateContent(ctx context.Context, request *CompletionRequest) (string, error)
	Name() string
	Close() error
}
