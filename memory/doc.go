// Package memory defines the vector storage and embedding interfaces for
// the personal memory corpus.
//
// Memories are stored as chunks namespaced by UserID; every retrieval is
// filtered to the requesting user's own chunks.
//
// Architecture:
//   - Store: vector index backend (chromem-go for the embedded version)
//   - Embedder: text-to-vector conversion (ONNX all-MiniLM-L6-v2 locally,
//     a hosted embedding API in production)
//
// The ingestion pipeline (package ingest) writes through these interfaces;
// the query pipeline (package engine) reads through them.
package memory
