package server

import (
	"context"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xhad/ragflow/internal/models"
	"github.com/xhad/ragflow/internal/types"
	"github.com/xhad/ragflow/pkg/metrics"
)

type Ingester interface {
	Ingest(ctx context.Context, filename string, r io.Reader) (*models.IngestResult, error)
}

type WorkflowRunner interface {
	Execute(ctx context.Context, wf models.Workflow) models.ExecutionResult
}

type TextSource interface {
	Text(ctx context.Context, filename string) (string, error)
}

// Deps are the collaborators behind the HTTP surface.
type Deps struct {
	Ingester  Ingester
	Runner    WorkflowRunner
	Documents types.DocumentStore
	Texts     TextSource
	Generator types.Generator
}

type Config struct {
	RateLimit      float64 // model-calling requests per second
	RateBurst      int
	MaxUploadBytes int64
}

type Server struct {
	config  Config
	deps    Deps
	metrics *metrics.Metrics
	log     *zap.Logger
	limiter *rate.Limiter
	router  *mux.Router
	cors    *cors.Cors

	workflowLimiter *rate.Limiter
}

func New(config Config, deps Deps, m *metrics.Metrics, logger *zap.Logger) *Server {
	if config.RateLimit <= 0 {
		config.RateLimit = 5
	}
	if config.RateBurst <= 0 {
		config.RateBurst = 10
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = 64 << 20
	}

	s := &Server{
		config:  config,
		deps:    deps,
		metrics: m,
		log:     logger.Named("server"),
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst),
		router:  mux.NewRouter(),
		cors:    newCORS(),

		workflowLimiter: rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.instrument)

	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/upload-pdf", s.handleUpload).Methods(http.MethodPost)
	r.HandleFunc("/documents", s.handleDocuments).Methods(http.MethodGet)
	r.HandleFunc("/document-text/{filename}", s.handleDocumentText).Methods(http.MethodGet)

	r.Handle("/run-workflow", s.workflowThrottled(http.HandlerFunc(s.handleRunWorkflow))).Methods(http.MethodPost)
	r.Handle("/ask-gemini", s.rateLimited(http.HandlerFunc(s.handleAsk))).Methods(http.MethodPost)

	r.HandleFunc("/ws", s.handleWebSocket)
}

// Handler is the full HTTP handler, CORS included.
func (s *Server) Handler() http.Handler {
	return s.cors.Handler(s.router)
}
