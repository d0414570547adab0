// Package llm defines the text-generation capability consumed by the
// query pipeline. The provider is interchangeable; the core depends only
// on this interface.
package llm

import (
	"context"

	"github.com/evermem/evermem-go/core"
)

// Message is one chat message in a completion request.
type Message struct {
	Role core.Role
	Text string
}

// Request is a completion request.
type Request struct {
	System    string
	Messages  []Message
	MaxTokens int64
}

// Client produces a text completion. Implementations map provider errors
// onto the core taxonomy (ErrGeneration, ErrTimeout, ErrRateLimit).
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// UserMessage builds a single-turn request body.
func UserMessage(text string) []Message {
	return []Message{{Role: core.RoleUser, Text: text}}
}
