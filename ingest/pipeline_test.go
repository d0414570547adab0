package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/evermem/evermem-go/core"
	"github.com/evermem/evermem-go/ingest"
)

type fakeStore struct {
	chunks  []*core.Chunk
	failAt  int // fail the Nth upsert (1-based), 0 means never
	upserts int
}

func (f *fakeStore) Upsert(ctx context.Context, chunk *core.Chunk) error {
	f.upserts++
	if f.failAt > 0 && f.upserts == f.failAt {
		return errors.New("index unavailable")
	}
	f.chunks = append(f.chunks, chunk)
	return nil
}

func (f *fakeStore) Search(ctx context.Context, userID string, embedding []float32, topK int) ([]*core.Chunk, error) {
	return nil, nil
}

func (f *fakeStore) Close() error { return nil }

type fakeEmbedder struct {
	calls int
	err   error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

func (f *fakeEmbedder) Dimensions() int { return 3 }

func TestIngest_StoresTaggedChunks(t *testing.T) {
	store := &fakeStore{}
	pinned := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	p := ingest.New(store, &fakeEmbedder{},
		ingest.WithChunkSize(40),
		ingest.WithClock(func() time.Time { return pinned }),
	)

	text := "I parked on level 3 today. The dentist appointment is on Friday. My wifi password is hunter2."
	written, err := p.Ingest(context.Background(), text, ingest.Metadata{
		UserID:    "user1",
		SourceRef: "notes.txt",
	})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if written != len(store.chunks) {
		t.Fatalf("Reported %d chunks, stored %d", written, len(store.chunks))
	}
	if written < 2 {
		t.Fatalf("Expected multiple chunks for size 40, got %d", written)
	}

	seen := make(map[string]bool)
	for i, chunk := range store.chunks {
		if chunk.UserID != "user1" {
			t.Errorf("Chunk %d missing owner: %+v", i, chunk)
		}
		if chunk.SourceType != core.SourceText {
			t.Errorf("Chunk %d should default to text source, got %s", i, chunk.SourceType)
		}
		if chunk.SourceRef != "notes.txt" {
			t.Errorf("Chunk %d missing source ref: %q", i, chunk.SourceRef)
		}
		if chunk.ChunkIndex != i {
			t.Errorf("Chunk %d has index %d", i, chunk.ChunkIndex)
		}
		if !chunk.CreatedAt.Equal(pinned) {
			t.Errorf("Chunk %d has timestamp %v, want %v", i, chunk.CreatedAt, pinned)
		}
		if len(chunk.Embedding) == 0 {
			t.Errorf("Chunk %d has no embedding", i)
		}
		if chunk.ID == "" || seen[chunk.ID] {
			t.Errorf("Chunk %d has missing or duplicate id %q", i, chunk.ID)
		}
		seen[chunk.ID] = true
	}
}

func TestIngest_ValidationErrors(t *testing.T) {
	p := ingest.New(&fakeStore{}, &fakeEmbedder{})

	tests := []struct {
		name string
		text string
		meta ingest.Metadata
	}{
		{"empty text", "", ingest.Metadata{UserID: "user1"}},
		{"whitespace text", "  \n ", ingest.Metadata{UserID: "user1"}},
		{"missing user", "some text", ingest.Metadata{}},
		{"unknown source type", "some text", ingest.Metadata{UserID: "user1", SourceType: "carrier-pigeon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			written, err := p.Ingest(context.Background(), tt.text, tt.meta)
			if !errors.Is(err, core.ErrValidation) {
				t.Errorf("Expected validation error, got %v", err)
			}
			if written != 0 {
				t.Errorf("Expected no chunks written, got %d", written)
			}
		})
	}
}

func TestIngest_MidBatchFailureKeepsEarlierChunks(t *testing.T) {
	store := &fakeStore{failAt: 3}
	p := ingest.New(store, &fakeEmbedder{}, ingest.WithChunkSize(30))

	var b strings.Builder
	for i := 0; i < 6; i++ {
		fmt.Fprintf(&b, "This is note number %d in my list. ", i)
	}

	written, err := p.Ingest(context.Background(), b.String(), ingest.Metadata{UserID: "user1"})
	if !errors.Is(err, core.ErrStorage) {
		t.Fatalf("Expected storage error, got %v", err)
	}
	if written != 2 {
		t.Errorf("Expected 2 chunks written before failure, got %d", written)
	}
	if len(store.chunks) != 2 {
		t.Errorf("Expected 2 chunks persisted, got %d", len(store.chunks))
	}
	// The survivors are the first chunks in input order.
	for i, chunk := range store.chunks {
		if chunk.ChunkIndex != i {
			t.Errorf("Persisted chunk %d has index %d", i, chunk.ChunkIndex)
		}
	}
}

func TestIngest_EmbedFailureIsStorageError(t *testing.T) {
	p := ingest.New(&fakeStore{}, &fakeEmbedder{err: errors.New("model offline")})

	written, err := p.Ingest(context.Background(), "remember this", ingest.Metadata{UserID: "user1"})
	if !errors.Is(err, core.ErrStorage) {
		t.Fatalf("Expected storage error, got %v", err)
	}
	if written != 0 {
		t.Errorf("Expected no chunks written, got %d", written)
	}
}

func TestIngest_CachesRepeatedEmbeddings(t *testing.T) {
	embedder := &fakeEmbedder{}
	p := ingest.New(&fakeStore{}, embedder)

	if _, err := p.Ingest(context.Background(), "the same note", ingest.Metadata{UserID: "user1"}); err != nil {
		t.Fatalf("First ingest failed: %v", err)
	}
	first := embedder.calls

	// Ristretto admits asynchronously; give the set a moment to land.
	time.Sleep(50 * time.Millisecond)

	if _, err := p.Ingest(context.Background(), "the same note", ingest.Metadata{UserID: "user1"}); err != nil {
		t.Fatalf("Second ingest failed: %v", err)
	}
	if embedder.calls > first+1 {
		t.Errorf("Expected at most one extra embed call, got %d then %d", first, embedder.calls)
	}
}
