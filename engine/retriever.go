package engine

import (
	"context"
	"log"

	"github.com/evermem/evermem-go/core"
	"github.com/evermem/evermem-go/memory"
)

// DefaultTopK bounds how many chunks ground an answer.
const DefaultTopK = 4

// Retriever runs a user-filtered similarity search against the vector
// index. The user filter is never optional; it is the only access-control
// boundary on retrieval.
type Retriever struct {
	store    memory.Store
	embedder memory.Embedder
	topK     int
}

// NewRetriever creates a retriever over the given store and embedder.
func NewRetriever(store memory.Store, embedder memory.Embedder, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{store: store, embedder: embedder, topK: topK}
}

// Retrieve returns up to topK of userID's chunks, most similar first.
// Index or embedder failure degrades to an empty result instead of
// failing the whole query; the generator has a no-context fallback.
func (r *Retriever) Retrieve(ctx context.Context, userID, question string) []*core.Chunk {
	embedding, err := r.embedder.Embed(ctx, question)
	if err != nil {
		log.Printf("[RETRIEVE] Embed failed, degrading to no context: %v", err)
		return nil
	}

	chunks, err := r.store.Search(ctx, userID, embedding, r.topK)
	if err != nil {
		log.Printf("[RETRIEVE] Search failed, degrading to no context: %v", err)
		return nil
	}
	log.Printf("[RETRIEVE] %d chunks for user=%s", len(chunks), userID)
	return chunks
}
