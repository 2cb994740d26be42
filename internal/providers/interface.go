package providers

import (
	"context"
)

// Provider defines the interface for text-generation backends
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete performs a single-shot completion and returns the full text
	Complete(ctx context.Context, req Request) (string, error)

	// StreamComplete performs a streaming completion. The returned channel
	// is closed after the final chunk (Done or Error set).
	StreamComplete(ctx context.Context, req Request) (<-chan StreamChunk, error)
}

// Message represents a chat message
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Request represents a generation request
type Request struct {
	System    string    `json:"system"`
	Messages  []Message `json:"messages"`
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
}

// StreamChunk represents a fragment of a streaming response. Fragment
// boundaries carry no meaning; only the concatenation of Delta values does.
type StreamChunk struct {
	Delta string `json:"delta,omitempty"`
	Done  bool   `json:"done,omitempty"`
	Error string `json:"error,omitempty"`
}
