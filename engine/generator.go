package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/evermem/evermem-go/core"
	"github.com/evermem/evermem-go/llm"
)

// Generator produces the final response, either grounded in retrieved
// context or conversational.
type Generator struct {
	llm llm.Client
}

// NewGenerator creates a generator on the given generation capability.
func NewGenerator(client llm.Client) *Generator {
	return &Generator{llm: client}
}

// Answer selects a branch on grounded. The grounded branch with no chunks
// returns the explicit no-context answer without a model call: there is
// nothing to ground on and a deterministic warning beats a guess.
// Generation failures propagate; callers surface them rather than
// substituting a canned reply.
func (g *Generator) Answer(ctx context.Context, question string, history []core.Turn, chunks []*core.Chunk, grounded bool) (string, error) {
	if !grounded {
		return g.llm.Complete(ctx, llm.Request{
			System:    conversationalSystemPrompt,
			Messages:  conversationMessages(history, question),
			MaxTokens: 1024,
		})
	}

	if len(chunks) == 0 {
		return NoContextAnswer, nil
	}

	return g.llm.Complete(ctx, llm.Request{
		System: groundedSystemPrompt,
		Messages: llm.UserMessage(fmt.Sprintf(
			"Context:\n%s\n\nQuestion: %s", contextBlock(chunks), question)),
		MaxTokens: 1024,
	})
}

// contextBlock concatenates chunk texts, each annotated with its source.
func contextBlock(chunks []*core.Chunk) string {
	var b strings.Builder
	for i, chunk := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		ref := chunk.SourceRef
		if ref == "" {
			ref = string(chunk.SourceType)
		}
		fmt.Fprintf(&b, "[%s] %s", ref, chunk.Text)
	}
	return b.String()
}

func conversationMessages(history []core.Turn, question string) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+1)
	for _, turn := range history {
		messages = append(messages, llm.Message{Role: turn.Role, Text: turn.Text})
	}
	return append(messages, llm.Message{Role: core.RoleUser, Text: question})
}
