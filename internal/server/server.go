// Package server exposes the import review session and the ledger over a local HTTP API.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/cleared-dev/tally/internal/ledger"
	"github.com/cleared-dev/tally/internal/logger"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/review"
)

// Parser turns a statement file into import candidates.
type Parser interface {
	ParseFile(ctx context.Context, path string) ([]model.ParsedTransaction, error)
}

// Config holds server dependencies.
type Config struct {
	Addr    string
	DataDir string // import log location; empty disables logging imports
	Log     zerolog.Logger
	Parser  Parser
	Ledger  *ledger.Service
	Session *review.Session
	Now     func() time.Time
}

// Server is the HTTP API.
type Server struct {
	router  *chi.Mux
	server  *http.Server
	log     zerolog.Logger
	parser  Parser
	ledger  *ledger.Service
	session *review.Session
	dataDir string
	now     func() time.Time

	mu     sync.Mutex
	source string // file behind the loaded session, for the import log
}

// New creates a Server with routes registered.
func New(cfg Config) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		log:     cfg.Log.With().Str("component", "server").Logger(),
		parser:  cfg.Parser,
		ledger:  cfg.Ledger,
		session: cfg.Session,
		dataDir: cfg.DataDir,
		now:     cfg.Now,
	}
	if s.session == nil {
		s.session = review.NewSession()
	}
	if s.now == nil {
		s.now = time.Now
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		// Imports wait on the classifier, which has its own 60s bound.
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/imports", s.handleImport)

		r.Route("/session", func(r chi.Router) {
			r.Get("/", s.handleSession)
			r.Delete("/", s.handleResetSession)
			r.Get("/candidates", s.handleCandidates)
			r.Post("/candidates/{id}/toggle", s.handleToggle)
			r.Put("/filter", s.handleSetFilter)
			r.Post("/select-all", s.handleSelectAll)
			r.Post("/deselect-all", s.handleDeselectAll)
			r.Post("/commit", s.handleCommit)
		})

		r.Get("/transactions", s.handleTransactions)
		r.Delete("/transactions/{id}", s.handleDeleteTransaction)
		r.Get("/ledger/summary", s.handleLedgerSummary)
	})
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		reqLog := s.log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
		r = r.WithContext(logger.WithContext(r.Context(), reqLog))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		reqLog.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}
