package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/evermem/evermem-go/core"
	"github.com/evermem/evermem-go/llm"
)

// maxRewriteTurns bounds how much history feeds the rewrite request.
const maxRewriteTurns = 6

// Rewriter turns a follow-up question into a standalone one using recent
// conversation context, resolving pronouns and ellipsis.
type Rewriter struct {
	llm llm.Client
}

// NewRewriter creates a rewriter on the given generation capability.
func NewRewriter(client llm.Client) *Rewriter {
	return &Rewriter{llm: client}
}

// Rewrite returns a standalone form of question. With no prior turns it
// returns the input unchanged; that short-circuit also protects
// conversational turns from tone-corrupting rewrites, so callers must
// only invoke it on retrieval-bound turns. Empty model output falls back
// to the original question.
func (r *Rewriter) Rewrite(ctx context.Context, question string, history []core.Turn) (string, error) {
	if len(history) == 0 {
		return question, nil
	}
	if len(history) > maxRewriteTurns {
		history = history[len(history)-maxRewriteTurns:]
	}

	var convo strings.Builder
	for _, turn := range history {
		fmt.Fprintf(&convo, "%s: %s\n", turn.Role, turn.Text)
	}

	out, err := r.llm.Complete(ctx, llm.Request{
		System: rewriteSystemPrompt,
		Messages: llm.UserMessage(fmt.Sprintf(
			"Conversation:\n%s\nFollow-up question: %s\n\nStandalone question:",
			convo.String(), question)),
		MaxTokens: 256,
	})
	if err != nil {
		return "", err
	}
	if out = strings.TrimSpace(out); out == "" {
		return question, nil
	}
	return out, nil
}
