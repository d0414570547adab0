package engine_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/evermem/evermem-go/core"
	"github.com/evermem/evermem-go/engine"
	"github.com/evermem/evermem-go/llm"
	"github.com/evermem/evermem-go/session"
)

// scriptedLLM routes each completion through a test-provided function.
type scriptedLLM func(req llm.Request) (string, error)

func (s scriptedLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	return s(req)
}

// memStore is an in-memory memory.Store that returns a user's chunks in
// insertion order and records whether Search was called.
type memStore struct {
	chunks   map[string][]*core.Chunk
	searches int
	err      error
}

func newMemStore() *memStore {
	return &memStore{chunks: make(map[string][]*core.Chunk)}
}

func (m *memStore) Upsert(ctx context.Context, chunk *core.Chunk) error {
	m.chunks[chunk.UserID] = append(m.chunks[chunk.UserID], chunk)
	return nil
}

func (m *memStore) Search(ctx context.Context, userID string, embedding []float32, topK int) ([]*core.Chunk, error) {
	m.searches++
	if m.err != nil {
		return nil, m.err
	}
	chunks := m.chunks[userID]
	if len(chunks) > topK {
		chunks = chunks[:topK]
	}
	return chunks, nil
}

func (m *memStore) Close() error { return nil }

type unitEmbedder struct{}

func (unitEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (unitEmbedder) Dimensions() int { return 3 }

// answerFromContext scripts the model: rewrites pass through marked, and
// grounded answers echo whether the parking note was in the context.
func answerFromContext(t *testing.T) scriptedLLM {
	t.Helper()
	return func(req llm.Request) (string, error) {
		switch {
		case strings.Contains(req.System, "stand alone"):
			return "Where did I park my car?", nil
		case strings.Contains(req.System, "stored\nmemories"), strings.Contains(req.System, "provided context"):
			prompt := req.Messages[len(req.Messages)-1].Text
			if strings.Contains(prompt, "level 3") {
				return "You parked on level 3.", nil
			}
			return "I don't have enough information to answer this question based on your stored memories.", nil
		default:
			return "Nice to chat with you!", nil
		}
	}
}

func newTestEngine(t *testing.T, client llm.Client, store *memStore) (*engine.Engine, *session.Store) {
	t.Helper()
	sessions := session.NewStore(10)
	eng := engine.New(engine.Config{
		LLM:      client,
		Store:    store,
		Embedder: unitEmbedder{},
		Sessions: sessions,
	})
	return eng, sessions
}

func seedChunk(store *memStore, userID, text string) {
	store.chunks[userID] = append(store.chunks[userID], &core.Chunk{
		ID:         "c" + userID,
		Text:       text,
		UserID:     userID,
		SourceType: core.SourceText,
	})
}

func TestAsk_GroundedMultiTurn(t *testing.T) {
	store := newMemStore()
	seedChunk(store, "user1", "I parked the car on level 3 of the airport garage.")
	eng, sessions := newTestEngine(t, answerFromContext(t), store)

	answer, err := eng.Ask(context.Background(), "s1", "user1", "Where did I park?")
	if err != nil {
		t.Fatalf("First ask failed: %v", err)
	}
	if !strings.Contains(answer, "level 3") {
		t.Errorf("Expected grounded answer, got %q", answer)
	}
	if store.searches != 1 {
		t.Errorf("Expected 1 search, got %d", store.searches)
	}
	if n := sessions.Len("s1"); n != 2 {
		t.Errorf("Expected 2 turns after first ask, got %d", n)
	}

	// Follow-up leans on history via the rewriter and still grounds.
	answer, err = eng.Ask(context.Background(), "s1", "user1", "Which level was that again?")
	if err != nil {
		t.Fatalf("Follow-up ask failed: %v", err)
	}
	if !strings.Contains(answer, "level 3") {
		t.Errorf("Expected grounded follow-up answer, got %q", answer)
	}
	if store.searches != 2 {
		t.Errorf("Expected 2 searches, got %d", store.searches)
	}
	if n := sessions.Len("s1"); n != 4 {
		t.Errorf("Expected 4 turns after follow-up, got %d", n)
	}
}

func TestAsk_ConversationalSkipsRetrieval(t *testing.T) {
	store := newMemStore()
	seedChunk(store, "user1", "I parked on level 3.")
	eng, sessions := newTestEngine(t, answerFromContext(t), store)

	answer, err := eng.Ask(context.Background(), "s1", "user1", "hello there")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if answer != "Nice to chat with you!" {
		t.Errorf("Expected conversational answer, got %q", answer)
	}
	if store.searches != 0 {
		t.Errorf("Conversational turn should not search, got %d searches", store.searches)
	}
	if n := sessions.Len("s1"); n != 2 {
		t.Errorf("Conversational turns still join the session, got %d turns", n)
	}
}

func TestAsk_EmptyIndexGivesNoContextAnswer(t *testing.T) {
	groundedCalls := 0
	client := scriptedLLM(func(req llm.Request) (string, error) {
		if strings.Contains(req.System, "provided context") {
			groundedCalls++
		}
		return "should not be used", nil
	})
	eng, _ := newTestEngine(t, client, newMemStore())

	answer, err := eng.Ask(context.Background(), "s1", "user1", "Where did I park?")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if answer != engine.NoContextAnswer {
		t.Errorf("Expected the no-context answer, got %q", answer)
	}
	if groundedCalls != 0 {
		t.Errorf("No-context branch must not call the model, got %d calls", groundedCalls)
	}
}

func TestAsk_IndexDownStillAnswers(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("index unreachable")
	eng, _ := newTestEngine(t, answerFromContext(t), store)

	answer, err := eng.Ask(context.Background(), "s1", "user1", "Where did I park?")
	if err != nil {
		t.Fatalf("Ask should degrade, not fail: %v", err)
	}
	if answer != engine.NoContextAnswer {
		t.Errorf("Expected the no-context answer on index failure, got %q", answer)
	}
}

type failingClassifier struct{}

func (failingClassifier) NeedsRetrieval(ctx context.Context, question string, history []core.Turn) (bool, error) {
	return false, errors.New("classifier down")
}

func TestAsk_ClassifierFailureFailsOpen(t *testing.T) {
	store := newMemStore()
	seedChunk(store, "user1", "I parked on level 3.")
	sessions := session.NewStore(10)
	eng := engine.New(engine.Config{
		LLM:        answerFromContext(t),
		Store:      store,
		Embedder:   unitEmbedder{},
		Sessions:   sessions,
		Classifier: failingClassifier{},
	})

	answer, err := eng.Ask(context.Background(), "s1", "user1", "hello there")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if store.searches != 1 {
		t.Errorf("Classifier failure must fail open to retrieval, got %d searches", store.searches)
	}
	if answer == "" {
		t.Error("Expected an answer despite classifier failure")
	}
}

func TestAsk_RewriteFailureFallsBackToOriginal(t *testing.T) {
	store := newMemStore()
	seedChunk(store, "user1", "I parked on level 3.")
	var groundedPrompt string
	client := scriptedLLM(func(req llm.Request) (string, error) {
		if strings.Contains(req.System, "stand alone") {
			return "", errors.New("rewriter down")
		}
		groundedPrompt = req.Messages[len(req.Messages)-1].Text
		return "You parked on level 3.", nil
	})
	eng, sessions := newTestEngine(t, client, store)
	sessions.AppendExchange("s1", "Where did I park?", "On level 3.")

	_, err := eng.Ask(context.Background(), "s1", "user1", "Which level was that?")
	if err != nil {
		t.Fatalf("Ask should survive rewrite failure: %v", err)
	}
	if !strings.Contains(groundedPrompt, "Which level was that?") {
		t.Errorf("Expected original question in grounded prompt, got %q", groundedPrompt)
	}
}

func TestAsk_GenerationFailureSurfaces(t *testing.T) {
	client := scriptedLLM(func(req llm.Request) (string, error) {
		return "", core.ErrGeneration
	})
	eng, sessions := newTestEngine(t, client, newMemStore())

	_, err := eng.Ask(context.Background(), "s1", "user1", "hello there")
	if !errors.Is(err, core.ErrGeneration) {
		t.Fatalf("Expected generation error to surface, got %v", err)
	}
	if n := sessions.Len("s1"); n != 0 {
		t.Errorf("Failed ask must not touch the session, got %d turns", n)
	}
}

func TestAsk_CancelledRequestSkipsSessionCommit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := scriptedLLM(func(req llm.Request) (string, error) {
		cancel() // caller disappears mid-generation
		return "Nice to chat with you!", nil
	})
	eng, sessions := newTestEngine(t, client, newMemStore())

	_, err := eng.Ask(ctx, "s1", "user1", "hello there")
	if err == nil {
		t.Fatal("Expected an error for a cancelled request")
	}
	if n := sessions.Len("s1"); n != 0 {
		t.Errorf("Cancelled ask must not commit turns, got %d", n)
	}
}

func TestAsk_Validation(t *testing.T) {
	eng, _ := newTestEngine(t, answerFromContext(t), newMemStore())

	if _, err := eng.Ask(context.Background(), "s1", "", "hello"); !errors.Is(err, core.ErrValidation) {
		t.Errorf("Expected validation error for missing user, got %v", err)
	}
	if _, err := eng.Ask(context.Background(), "s1", "user1", "   "); !errors.Is(err, core.ErrValidation) {
		t.Errorf("Expected validation error for empty question, got %v", err)
	}
}

func TestAsk_DefaultSessionID(t *testing.T) {
	eng, sessions := newTestEngine(t, answerFromContext(t), newMemStore())

	if _, err := eng.Ask(context.Background(), "", "user1", "hello there"); err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if n := sessions.Len(engine.DefaultSessionID); n != 2 {
		t.Errorf("Expected turns under the default session, got %d", n)
	}
}

func TestAsk_UserIsolation(t *testing.T) {
	store := newMemStore()
	seedChunk(store, "user1", "I parked on level 3.")
	eng, _ := newTestEngine(t, answerFromContext(t), store)

	answer, err := eng.Ask(context.Background(), "s2", "user2", "Where did I park?")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if answer != engine.NoContextAnswer {
		t.Errorf("user2 must not see user1's memories, got %q", answer)
	}
}
