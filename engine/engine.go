// Package engine runs the query pipeline: classify, rewrite, retrieve,
// generate. The stages form a fixed-order chain where each depends on the
// previous stage's output, so the pipeline is a straight-line composition
// rather than a workflow graph. All collaborators are injected; the
// engine holds no global state.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/evermem/evermem-go/core"
	"github.com/evermem/evermem-go/llm"
	"github.com/evermem/evermem-go/memory"
	"github.com/evermem/evermem-go/session"
)

// DefaultSessionID is used when the caller does not supply a session.
const DefaultSessionID = "default"

// DefaultCallTimeout bounds each external call within a query.
const DefaultCallTimeout = 30 * time.Second

// Engine answers user turns from the accumulated memory corpus.
type Engine struct {
	classifier Classifier
	rewriter   *Rewriter
	retriever  *Retriever
	generator  *Generator
	sessions   *session.Store
	timeout    time.Duration
}

// Config assembles an Engine. LLM, Store, Embedder, and Sessions are
// required; the rest defaults.
type Config struct {
	LLM      llm.Client
	Store    memory.Store
	Embedder memory.Embedder
	Sessions *session.Store

	// Classifier overrides the default heuristic gate, e.g. with
	// NewLLMClassifier.
	Classifier Classifier

	// TopK bounds retrieved context (default DefaultTopK).
	TopK int

	// CallTimeout bounds each external call (default DefaultCallTimeout).
	CallTimeout time.Duration
}

// New builds an engine from the config.
func New(cfg Config) *Engine {
	classifier := cfg.Classifier
	if classifier == nil {
		classifier = HeuristicClassifier{}
	}
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Engine{
		classifier: classifier,
		rewriter:   NewRewriter(cfg.LLM),
		retriever:  NewRetriever(cfg.Store, cfg.Embedder, cfg.TopK),
		generator:  NewGenerator(cfg.LLM),
		sessions:   cfg.Sessions,
		timeout:    timeout,
	}
}

// Ask processes one user turn and returns the answer. On success exactly
// two turns (question, answer) are appended to the session, truncated to
// the session cap. A request whose context is already cancelled at commit
// time discards the answer without touching the session.
func (e *Engine) Ask(ctx context.Context, sessionID, userID, question string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: user id is required", core.ErrValidation)
	}
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("%w: empty question", core.ErrValidation)
	}
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	history := e.sessions.Get(sessionID)

	needsRetrieval, err := e.classify(ctx, question, history)
	if err != nil {
		// Fail open: refusing to search is worse than an extra search.
		log.Printf("[ENGINE] Classifier failed, assuming retrieval needed: %v", err)
		needsRetrieval = true
	}

	query := question
	if needsRetrieval && len(history) > 0 {
		rewritten, err := e.rewrite(ctx, question, history)
		if err != nil {
			log.Printf("[ENGINE] Rewrite failed, using original question: %v", err)
		} else {
			query = rewritten
		}
	}

	var chunks []*core.Chunk
	if needsRetrieval {
		chunks = e.retrieve(ctx, userID, query)
	}

	answer, err := e.generate(ctx, query, history, chunks, needsRetrieval)
	if err != nil {
		return "", err
	}

	if ctx.Err() != nil {
		// Caller is gone; do not commit a partial exchange.
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", core.ErrTimeout, ctx.Err())
		}
		return "", ctx.Err()
	}

	e.sessions.AppendExchange(sessionID, question, answer)
	return answer, nil
}

// Reset clears all session state. Process-wide; there is no per-session
// deletion.
func (e *Engine) Reset() {
	e.sessions.Reset()
}

func (e *Engine) classify(ctx context.Context, question string, history []core.Turn) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.classifier.NeedsRetrieval(ctx, question, history)
}

func (e *Engine) rewrite(ctx context.Context, question string, history []core.Turn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.rewriter.Rewrite(ctx, question, history)
}

func (e *Engine) retrieve(ctx context.Context, userID, query string) []*core.Chunk {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.retriever.Retrieve(ctx, userID, query)
}

func (e *Engine) generate(ctx context.Context, query string, history []core.Turn, chunks []*core.Chunk, grounded bool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.generator.Answer(ctx, query, history, chunks, grounded)
}
