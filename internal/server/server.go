// Package server exposes the review backend over HTTP under /api.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/thywilljoshua/slidecheck/internal/blob"
	"github.com/thywilljoshua/slidecheck/internal/finding"
	"github.com/thywilljoshua/slidecheck/internal/review"
	"github.com/thywilljoshua/slidecheck/internal/store"
)

// DefaultUserID owns every record; there is no authentication.
const DefaultUserID = "localuser"

const shutdownTimeout = 10 * time.Second

// Analyzer runs the review pipeline.
type Analyzer interface {
	Analyze(ctx context.Context, xml string, opts review.Options) (*review.Result, error)
	Enrich(ctx context.Context, findings []finding.Finding) ([]finding.Finding, error)
}

type Options struct {
	UserID         string
	MaxUploadBytes int64
	CORSOrigins    []string
}

type Server struct {
	store    *store.Store
	blobs    *blob.Store
	analyzer Analyzer
	log      *zap.Logger
	opts     Options
}

func New(st *store.Store, blobs *blob.Store, analyzer Analyzer, log *zap.Logger, opts Options) *Server {
	if opts.UserID == "" {
		opts.UserID = DefaultUserID
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 50 << 20
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{store: st, blobs: blobs, analyzer: analyzer, log: log, opts: opts}
}

// Handler returns the routed handler wrapped in middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("POST /api/files", s.handleUploadFile)
	mux.HandleFunc("GET /api/files", s.handleListFiles)
	mux.HandleFunc("DELETE /api/files/{id}", s.handleDeleteFile)
	mux.HandleFunc("POST /api/pptx/xml", s.handleConvertXML)

	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/files/{id}/analyses", s.handleListAnalyses)
	mux.HandleFunc("GET /api/files/{id}/analyses/latest", s.handleLatestAnalysis)
	mux.HandleFunc("POST /api/files/{id}/analyses/latest/items", s.handleAddItem)
	mux.HandleFunc("GET /api/analyses/{id}", s.handleGetAnalysis)
	mux.HandleFunc("POST /api/analyses/{id}/enrich", s.handleEnrichAnalysis)
	mux.HandleFunc("GET /api/analyses/{id}/export", s.handleExportAnalysis)

	mux.HandleFunc("PATCH /api/analysis-items/{id}", s.handleUpdateItem)
	mux.HandleFunc("DELETE /api/analysis-items/{id}", s.handleDeleteItem)

	mux.HandleFunc("GET /api/messages", s.handleListMessages)
	mux.HandleFunc("POST /api/messages", s.handleCreateMessage)
	mux.HandleFunc("DELETE /api/messages/{id}", s.handleDeleteMessage)

	var h http.Handler = mux
	h = s.recoverer(h)
	h = s.cors(h)
	h = s.accessLog(h)
	h = requestID(h)
	return h
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("http server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.log.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.fail(w, r, http.StatusServiceUnavailable, "database unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
