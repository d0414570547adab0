package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/evermem/evermem-go/core"
	"github.com/evermem/evermem-go/llm"
)

// Classifier decides whether a user turn needs memory retrieval or is
// purely conversational. This is a binary gate, not a confidence score;
// ties resolve to "needs retrieval".
type Classifier interface {
	NeedsRetrieval(ctx context.Context, question string, history []core.Turn) (bool, error)
}

// HeuristicClassifier is the default rule-based gate. It never errors,
// which keeps the pipeline off the fail-open path unless an LLM
// classifier is swapped in.
type HeuristicClassifier struct{}

var interrogativePrefixes = []string{
	"who ", "what ", "when ", "where ", "why ", "how ", "which ", "whose ",
	"whom ", "is ", "are ", "was ", "were ", "do ", "does ", "did ", "can ",
	"could ", "will ", "would ", "should ", "have i ", "has ",
	"what's ", "who's ", "where's ",
}

var requestPhrases = []string{
	"tell me", "show me", "find", "search", "list", "remind me",
	"look up", "give me", "summarize", "recall",
}

var conversationalPhrases = []string{
	"hi", "hello", "hey", "howdy", "yo", "good morning", "good afternoon",
	"good evening", "good night", "thanks", "thank you", "thx", "ok", "okay",
	"cool", "great", "nice", "got it", "sounds good", "bye", "goodbye",
	"see you", "i feel", "i'm feeling", "i am feeling", "i'm so", "i love",
	"i hate", "my name is", "i live in", "i work", "i am a", "i'm a",
	"just wanted to say",
}

// NeedsRetrieval applies the heuristic: interrogative patterns and
// explicit information requests need retrieval; greetings,
// acknowledgments, emotional statements, and personal-information shares
// without a question do not. Anything ambiguous defaults to retrieval.
func (HeuristicClassifier) NeedsRetrieval(ctx context.Context, question string, history []core.Turn) (bool, error) {
	q := strings.ToLower(strings.TrimSpace(question))
	if q == "" {
		return false, nil
	}
	if strings.Contains(q, "?") {
		return true, nil
	}
	for _, prefix := range interrogativePrefixes {
		if strings.HasPrefix(q, prefix) {
			return true, nil
		}
	}
	for _, phrase := range requestPhrases {
		if strings.Contains(q, phrase) {
			return true, nil
		}
	}
	for _, phrase := range conversationalPhrases {
		if q == phrase || strings.HasPrefix(q, phrase+" ") ||
			strings.HasPrefix(q, phrase+",") || strings.HasPrefix(q, phrase+"!") ||
			strings.HasPrefix(q, phrase+".") {
			return false, nil
		}
	}
	// Ambiguous turns search rather than silently skip.
	return true, nil
}

// LLMClassifier delegates the gate to the generation capability. Failures
// surface as ErrClassification; the engine fails open on them.
type LLMClassifier struct {
	llm llm.Client
}

// NewLLMClassifier creates a model-backed classifier.
func NewLLMClassifier(client llm.Client) *LLMClassifier {
	return &LLMClassifier{llm: client}
}

// NeedsRetrieval asks the model for a RETRIEVE/CHAT verdict.
func (c *LLMClassifier) NeedsRetrieval(ctx context.Context, question string, history []core.Turn) (bool, error) {
	out, err := c.llm.Complete(ctx, llm.Request{
		System:    classifySystemPrompt,
		Messages:  llm.UserMessage(question),
		MaxTokens: 8,
	})
	if err != nil {
		return false, fmt.Errorf("%w: %v", core.ErrClassification, err)
	}

	verdict := strings.ToUpper(strings.TrimSpace(out))
	switch {
	case strings.Contains(verdict, "CHAT"):
		return false, nil
	case strings.Contains(verdict, "RETRIEVE"):
		return true, nil
	}
	// Unparseable verdict counts as a tie.
	return true, nil
}
