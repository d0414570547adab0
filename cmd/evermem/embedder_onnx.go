//go:build onnx

package main

import (
	"github.com/evermem/evermem-go/config"
	"github.com/evermem/evermem-go/memory"
	"github.com/evermem/evermem-go/memory/embedder/mock"
	"github.com/evermem/evermem-go/memory/embedder/onnx"
)

// newEmbedder builds the configured embedding backend, preferring real
// MiniLM inference when selected.
func newEmbedder(cfg config.Config) (memory.Embedder, func(), error) {
	if cfg.Embedder != "onnx" {
		return mock.New(), func() {}, nil
	}

	embedder, err := onnx.New(onnx.Config{
		ModelPath:     cfg.ONNXModelPath,
		TokenizerPath: cfg.ONNXTokenizerPath,
		LibraryPath:   cfg.ONNXLibraryPath,
	})
	if err != nil {
		return nil, nil, err
	}
	return embedder, func() { embedder.Close() }, nil
}
