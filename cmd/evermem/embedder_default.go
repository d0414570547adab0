//go:build !onnx

package main

import (
	"fmt"

	"github.com/evermem/evermem-go/config"
	"github.com/evermem/evermem-go/memory"
	"github.com/evermem/evermem-go/memory/embedder/mock"
)

// newEmbedder builds the configured embedding backend. Without the onnx
// build tag only the mock backend is available.
func newEmbedder(cfg config.Config) (memory.Embedder, func(), error) {
	if cfg.Embedder == "onnx" {
		return nil, nil, fmt.Errorf("onnx embedder requires a binary built with the onnx tag")
	}
	return mock.New(), func() {}, nil
}
