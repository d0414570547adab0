package core

import "time"

// SourceType identifies where a memory's text came from.
type SourceType string

const (
	SourceText  SourceType = "text"
	SourcePDF   SourceType = "pdf"
	SourceImage SourceType = "image"
	SourceWeb   SourceType = "web"
)

// Valid reports whether the source type is one of the known kinds.
func (s SourceType) Valid() bool {
	switch s {
	case SourceText, SourcePDF, SourceImage, SourceWeb:
		return true
	}
	return false
}

// Chunk is the unit of vector storage and retrieval: a bounded text
// fragment with ownership and provenance metadata. Chunks are immutable
// once written; corrections are modeled as new chunks.
type Chunk struct {
	ID         string
	Text       string
	Embedding  []float32
	UserID     string
	SourceType SourceType
	CreatedAt  time.Time
	ChunkIndex int
	SourceRef  string // filename or URL, optional
}

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single conversation turn. Turns are ordered and append-only
// within a session.
type Turn struct {
	Role      Role
	Text      string
	Timestamp time.Time
}
