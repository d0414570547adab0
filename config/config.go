// Package config reads runtime settings from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config contains all runtime settings for the memory service.
type Config struct {
	BindAddr         string
	MetricsNamespace string

	AnthropicAPIKey string
	Model           string

	// Embedder selects the embedding backend: "mock" or "onnx".
	Embedder          string
	ONNXModelPath     string
	ONNXTokenizerPath string
	ONNXLibraryPath   string

	ChunkSize       int
	TopK            int
	MaxSessionTurns int
	CallTimeout     time.Duration

	// UseLLMClassifier swaps the heuristic retrieval gate for the
	// model-backed one.
	UseLLMClassifier bool
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:          envOrDefault("EVERMEM_BIND_ADDR", ":8080"),
		MetricsNamespace:  envOrDefault("EVERMEM_METRICS_NAMESPACE", "evermem"),
		AnthropicAPIKey:   os.Getenv("ANTHROPIC_API_KEY"),
		Model:             os.Getenv("EVERMEM_MODEL"),
		Embedder:          envOrDefault("EVERMEM_EMBEDDER", "mock"),
		ONNXModelPath:     envOrDefault("EVERMEM_ONNX_MODEL_PATH", "models/all-MiniLM-L6-v2/model.onnx"),
		ONNXTokenizerPath: envOrDefault("EVERMEM_ONNX_TOKENIZER_PATH", "models/all-MiniLM-L6-v2/tokenizer.json"),
		ONNXLibraryPath:   os.Getenv("EVERMEM_ONNX_LIBRARY_PATH"),
	}

	var err error
	if cfg.ChunkSize, err = intEnv("EVERMEM_CHUNK_SIZE", 800); err != nil {
		return Config{}, err
	}
	if cfg.TopK, err = intEnv("EVERMEM_TOP_K", 4); err != nil {
		return Config{}, err
	}
	if cfg.MaxSessionTurns, err = intEnv("EVERMEM_MAX_SESSION_TURNS", 10); err != nil {
		return Config{}, err
	}
	if cfg.CallTimeout, err = durationEnv("EVERMEM_CALL_TIMEOUT", 30*time.Second); err != nil {
		return Config{}, err
	}
	cfg.UseLLMClassifier = os.Getenv("EVERMEM_LLM_CLASSIFIER") == "true"

	if cfg.AnthropicAPIKey == "" {
		return Config{}, fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	if cfg.Embedder != "mock" && cfg.Embedder != "onnx" {
		return Config{}, fmt.Errorf("EVERMEM_EMBEDDER must be mock or onnx, got %q", cfg.Embedder)
	}
	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
