// Package chromem implements memory.Store on chromem-go, a pure Go
// embedded vector database.
package chromem

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/evermem/evermem-go/core"
)

// Store keeps one chromem collection per user. The collection split plus
// a user_id where-clause gives defense in depth on data isolation.
type Store struct {
	db          *chromem.DB
	collections map[string]*chromem.Collection
	mu          sync.RWMutex
}

// New creates an empty in-process store.
func New() (*Store, error) {
	return &Store{
		db:          chromem.NewDB(),
		collections: make(map[string]*chromem.Collection),
	}, nil
}

func (s *Store) collection(userID string) (*chromem.Collection, error) {
	s.mu.RLock()
	col, ok := s.collections[userID]
	s.mu.RUnlock()
	if ok {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if col, ok := s.collections[userID]; ok {
		return col, nil
	}

	col, err := s.db.CreateCollection("user_"+userID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	s.collections[userID] = col
	return col, nil
}

// Upsert writes a chunk. The chunk must carry a non-empty UserID and its
// embedding.
func (s *Store) Upsert(ctx context.Context, chunk *core.Chunk) error {
	if chunk.UserID == "" {
		return fmt.Errorf("chunk has no owner")
	}
	col, err := s.collection(chunk.UserID)
	if err != nil {
		return err
	}

	doc := chromem.Document{
		ID:        chunk.ID,
		Content:   chunk.Text,
		Embedding: chunk.Embedding,
		Metadata: map[string]string{
			"user_id":     chunk.UserID,
			"source_type": string(chunk.SourceType),
			"created_at":  chunk.CreatedAt.Format(time.RFC3339Nano),
			"chunk_index": strconv.Itoa(chunk.ChunkIndex),
			"source_ref":  chunk.SourceRef,
		},
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	return nil
}

// Search returns up to topK of userID's chunks, most similar first. The
// user filter is mandatory; a search without it is a data-isolation bug.
func (s *Store) Search(ctx context.Context, userID string, embedding []float32, topK int) ([]*core.Chunk, error) {
	if userID == "" {
		return nil, fmt.Errorf("search without user filter refused")
	}
	col, err := s.collection(userID)
	if err != nil {
		return nil, err
	}

	where := map[string]string{"user_id": userID}

	// chromem requires nResults <= collection size; step down until the
	// query fits or the collection turns out to be empty.
	var results []chromem.Result
	for limit := topK; limit >= 1; limit-- {
		results, err = col.QueryEmbedding(ctx, embedding, limit, where, nil)
		if err == nil {
			break
		}
		if isTooFewDocsError(err) {
			if limit == 1 {
				return nil, nil
			}
			continue
		}
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	chunks := make([]*core.Chunk, 0, len(results))
	for _, result := range results {
		chunk, err := chunkFromResult(result)
		if err != nil {
			log.Printf("[CHROMEM] Skipping result %s: %v", result.ID, err)
			continue
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// Close releases resources. chromem keeps everything in memory.
func (s *Store) Close() error {
	return nil
}

func chunkFromResult(result chromem.Result) (*core.Chunk, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, result.Metadata["created_at"])
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	index, err := strconv.Atoi(result.Metadata["chunk_index"])
	if err != nil {
		return nil, fmt.Errorf("parse chunk_index: %w", err)
	}
	return &core.Chunk{
		ID:         result.ID,
		Text:       result.Content,
		Embedding:  result.Embedding,
		UserID:     result.Metadata["user_id"],
		SourceType: core.SourceType(result.Metadata["source_type"]),
		CreatedAt:  createdAt,
		ChunkIndex: index,
		SourceRef:  result.Metadata["source_ref"],
	}, nil
}

func isTooFewDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
