// Command evermem runs the personal memory service: an HTTP API over the
// ingestion pipeline and the query engine.
package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/evermem/evermem-go/config"
	"github.com/evermem/evermem-go/engine"
	"github.com/evermem/evermem-go/ingest"
	"github.com/evermem/evermem-go/llm/anthropic"
	"github.com/evermem/evermem-go/memory/store/chromem"
	"github.com/evermem/evermem-go/server"
	"github.com/evermem/evermem-go/session"
	"github.com/evermem/evermem-go/source"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[MAIN] Config: %v", err)
	}

	store, err := chromem.New()
	if err != nil {
		log.Fatalf("[MAIN] Vector store: %v", err)
	}
	defer store.Close()

	embedder, closeEmbedder, err := newEmbedder(cfg)
	if err != nil {
		log.Fatalf("[MAIN] Embedder: %v", err)
	}
	defer closeEmbedder()

	llmClient := anthropic.New(cfg.AnthropicAPIKey, cfg.Model)

	var classifier engine.Classifier
	if cfg.UseLLMClassifier {
		classifier = engine.NewLLMClassifier(llmClient)
	}

	eng := engine.New(engine.Config{
		LLM:         llmClient,
		Store:       store,
		Embedder:    embedder,
		Sessions:    session.NewStore(cfg.MaxSessionTurns),
		Classifier:  classifier,
		TopK:        cfg.TopK,
		CallTimeout: cfg.CallTimeout,
	})

	pipeline := ingest.New(store, embedder,
		ingest.WithChunkSize(cfg.ChunkSize),
		ingest.WithCallTimeout(cfg.CallTimeout),
	)

	srv := server.New(server.Config{
		Asker:            eng,
		Ingestor:         pipeline,
		Web:              source.NewWebExtractor(),
		PDF:              source.ExtractPDF,
		MetricsNamespace: cfg.MetricsNamespace,
	})

	log.Printf("[MAIN] Evermem starting embedder=%s model=%s", cfg.Embedder, cfg.Model)
	if err := srv.Run(cfg.BindAddr); err != nil {
		log.Fatalf("[MAIN] Server: %v", err)
	}
}
