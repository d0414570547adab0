package memory

import (
	"context"

	"github.com/evermem/evermem-go/core"
)

// Store is the vector index backend. Implementations: ChromemStore
// (embedded, local), or a hosted vector database in production.
//
// Persisted chunks are owned exclusively by the Store and are immutable
// once written. The UserID filter on Search is the sole access-control
// boundary on retrieval and is mandatory: implementations must reject a
// search without it rather than fall back to a global scan.
type Store interface {
	// Upsert writes a chunk with its embedding. The chunk must have its
	// embedding set before the call.
	Upsert(ctx context.Context, chunk *core.Chunk) error

	// Search returns up to topK chunks owned by userID, most similar
	// first.
	Search(ctx context.Context, userID string, embedding []float32, topK int) ([]*core.Chunk, error)

	// Close releases resources.
	Close() error
}

// Embedder converts text to a fixed-length vector. Deterministic for
// identical input within a model version.
//
// Implementations: MockEmbedder (testing), ONNXEmbedder (local, behind
// the onnx build tag).
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}
