// Package server fronts the ingest and ask operations over HTTP and
// WebSocket. The core mandates no wire format; this is one transport.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/evermem/evermem-go/core"
	"github.com/evermem/evermem-go/ingest"
)

// Asker answers one user turn. Implemented by engine.Engine.
type Asker interface {
	Ask(ctx context.Context, sessionID, userID, question string) (string, error)
}

// Ingestor writes memory text. Implemented by ingest.Pipeline.
type Ingestor interface {
	Ingest(ctx context.Context, text string, meta ingest.Metadata) (int, error)
}

// URLExtractor turns a web page into plain text. Implemented by
// source.WebExtractor.
type URLExtractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

// PDFExtractor turns a PDF body into plain text.
type PDFExtractor func(r io.ReaderAt, size int64) (string, error)

// Config assembles a Server.
type Config struct {
	Asker    Asker
	Ingestor Ingestor
	Web      URLExtractor
	PDF      PDFExtractor

	MetricsNamespace string
}

// Server carries the router and collaborators.
type Server struct {
	router   chi.Router
	asker    Asker
	ingestor Ingestor
	web      URLExtractor
	pdf      PDFExtractor
	metrics  *Metrics
}

// New builds the server and its routes.
func New(cfg Config) *Server {
	namespace := cfg.MetricsNamespace
	if namespace == "" {
		namespace = "evermem"
	}
	s := &Server{
		asker:    cfg.Asker,
		ingestor: cfg.Ingestor,
		web:      cfg.Web,
		pdf:      cfg.PDF,
		metrics:  NewMetrics(namespace),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/ingest", s.handleIngest)
	r.Post("/ingest/url", s.handleIngestURL)
	r.Post("/ingest/pdf", s.handleIngestPDF)
	r.Post("/ask", s.handleAsk)
	r.Get("/ws", s.handleWS)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	s.router = r
	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	log.Printf("[SERVER] Listening on %s", addr)
	return http.ListenAndServe(addr, s.router)
}

type askRequest struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	Question  string `json:"question"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

type ingestRequest struct {
	Text       string `json:"text"`
	URL        string `json:"url"`
	UserID     string `json:"userId"`
	SourceType string `json:"sourceType"`
	SourceRef  string `json:"sourceRef"`
}

type ingestResponse struct {
	Message string `json:"message"`
	Chunks  int    `json:"chunks"`
}

type errorResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	start := time.Now()
	answer, err := s.asker.Ask(r.Context(), req.SessionID, req.UserID, req.Question)
	s.metrics.AskDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.AsksTotal.WithLabelValues(outcomeFor(err)).Inc()
		status, message := statusFor(err)
		writeError(w, status, message)
		return
	}

	s.metrics.AsksTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, askResponse{Answer: answer})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sourceType := core.SourceType(req.SourceType)
	if req.SourceType == "" {
		sourceType = core.SourceText
	}
	s.ingestText(w, r, req.Text, ingest.Metadata{
		UserID:     req.UserID,
		SourceType: sourceType,
		SourceRef:  req.SourceRef,
	})
}

func (s *Server) handleIngestURL(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	text, err := s.web.Extract(r.Context(), req.URL)
	if err != nil {
		status, message := statusFor(err)
		writeError(w, status, message)
		return
	}
	s.ingestText(w, r, text, ingest.Metadata{
		UserID:     req.UserID,
		SourceType: core.SourceWeb,
		SourceRef:  req.URL,
	})
}

func (s *Server) handleIngestPDF(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	text, err := s.pdf(file, header.Size)
	if err != nil {
		status, message := statusFor(err)
		writeError(w, status, message)
		return
	}
	s.ingestText(w, r, text, ingest.Metadata{
		UserID:     r.FormValue("userId"),
		SourceType: core.SourcePDF,
		SourceRef:  header.Filename,
	})
}

func (s *Server) ingestText(w http.ResponseWriter, r *http.Request, text string, meta ingest.Metadata) {
	chunks, err := s.ingestor.Ingest(r.Context(), text, meta)
	if err != nil {
		status, message := statusFor(err)
		writeError(w, status, message)
		return
	}
	s.metrics.IngestChunksTotal.Add(float64(chunks))
	writeJSON(w, http.StatusOK, ingestResponse{Message: "stored", Chunks: chunks})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// statusFor maps the core error taxonomy onto HTTP statuses and
// user-facing messages. Generation-class failures all read as "try
// again": the pipeline never substitutes a canned answer for them.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, core.ErrRateLimit):
		return http.StatusTooManyRequests, "the service is busy, please try again"
	case errors.Is(err, core.ErrTimeout):
		return http.StatusGatewayTimeout, "the service is taking too long to respond, please try again"
	case errors.Is(err, core.ErrGeneration):
		return http.StatusBadGateway, "the answer service is unavailable, please try again"
	case errors.Is(err, core.ErrStorage):
		return http.StatusBadGateway, "memory storage is unavailable, please try again"
	default:
		return http.StatusInternalServerError, "something went wrong"
	}
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, core.ErrValidation):
		return "invalid"
	case errors.Is(err, core.ErrRateLimit):
		return "rate_limited"
	case errors.Is(err, core.ErrTimeout):
		return "timeout"
	default:
		return "error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[SERVER] Write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message, Status: "error"})
}
