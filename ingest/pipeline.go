// Package ingest normalizes raw memory input into tagged chunks and
// writes them to the vector index.
package ingest

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/google/uuid"

	"github.com/evermem/evermem-go/chunker"
	"github.com/evermem/evermem-go/core"
	"github.com/evermem/evermem-go/memory"
)

// DefaultCallTimeout bounds each external embed/index call.
const DefaultCallTimeout = 30 * time.Second

// Metadata carries ownership and provenance for one ingestion request.
type Metadata struct {
	UserID     string
	SourceType core.SourceType
	SourceRef  string
}

// Pipeline turns raw text into embedded, metadata-tagged chunks.
//
// Writes are at-least-once with no atomicity across chunks: a mid-batch
// failure leaves earlier chunks in place and is reported to the caller.
// Re-ingesting the same text produces the same chunk boundaries, so the
// duplicate surface is bounded.
type Pipeline struct {
	store    memory.Store
	embedder memory.Embedder
	splitter *chunker.Splitter
	cache    *ristretto.Cache
	timeout  time.Duration
	now      func() time.Time
}

// Option configures the pipeline.
type Option func(*Pipeline)

// WithChunkSize overrides the target chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Pipeline) {
		p.splitter = chunker.New(size)
	}
}

// WithCallTimeout overrides the per-external-call timeout.
func WithCallTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithClock overrides the timestamp source. Tests use this to pin
// createdAt values.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// New creates a pipeline writing through the given store and embedder.
func New(store memory.Store, embedder memory.Embedder, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:    store,
		embedder: embedder,
		splitter: chunker.New(chunker.DefaultSize),
		timeout:  DefaultCallTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	// Identical text embeds to an identical vector, so a small cache
	// saves repeat embedding calls across re-ingested documents.
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 100_000,
		MaxCost:     32 << 20,
		BufferItems: 64,
	})
	if err != nil {
		log.Printf("[INGEST] Embedding cache disabled: %v", err)
	} else {
		p.cache = cache
	}
	return p
}

// Ingest validates, chunks, tags, embeds, and stores text. Returns the
// number of chunks written; on failure that count still reflects chunks
// already persisted.
func (p *Pipeline) Ingest(ctx context.Context, text string, meta Metadata) (int, error) {
	if strings.TrimSpace(text) == "" {
		return 0, fmt.Errorf("%w: empty text", core.ErrValidation)
	}
	if meta.UserID == "" {
		return 0, fmt.Errorf("%w: user id is required", core.ErrValidation)
	}
	if meta.SourceType == "" {
		meta.SourceType = core.SourceText
	}
	if !meta.SourceType.Valid() {
		return 0, fmt.Errorf("%w: unknown source type %q", core.ErrValidation, meta.SourceType)
	}

	createdAt := p.now()
	written := 0
	index := 0
	for chunkText := range p.splitter.Chunks(text) {
		embedding, err := p.embed(ctx, chunkText)
		if err != nil {
			return written, fmt.Errorf("%w: embed chunk %d: %v", core.ErrStorage, index, err)
		}

		chunk := &core.Chunk{
			ID:         uuid.New().String(),
			Text:       chunkText,
			Embedding:  embedding,
			UserID:     meta.UserID,
			SourceType: meta.SourceType,
			CreatedAt:  createdAt,
			ChunkIndex: index,
			SourceRef:  meta.SourceRef,
		}
		if err := p.upsert(ctx, chunk); err != nil {
			return written, fmt.Errorf("%w: write chunk %d: %v", core.ErrStorage, index, err)
		}
		written++
		index++
	}

	log.Printf("[INGEST] Stored %d chunks user=%s source=%s", written, meta.UserID, meta.SourceType)
	return written, nil
}

func (p *Pipeline) embed(ctx context.Context, text string) ([]float32, error) {
	if p.cache != nil {
		if v, ok := p.cache.Get(text); ok {
			if embedding, ok := v.([]float32); ok {
				return embedding, nil
			}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	embedding, err := p.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		p.cache.Set(text, embedding, int64(4*len(embedding)))
	}
	return embedding, nil
}

func (p *Pipeline) upsert(ctx context.Context, chunk *core.Chunk) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.store.Upsert(ctx, chunk)
}
