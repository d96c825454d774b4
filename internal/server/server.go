package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/pdf2jpk/internal/common"
	"github.com/joseph-ayodele/pdf2jpk/internal/core"
	"github.com/joseph-ayodele/pdf2jpk/internal/repository"
	"github.com/joseph-ayodele/pdf2jpk/internal/worker"
)

// Sweeper runs one pass over pending jobs.
type Sweeper interface {
	Sweep(ctx context.Context) (worker.Stats, error)
}

// Kicker asks a background scheduler for a sweep without waiting for it.
type Kicker interface {
	Kick()
}

// Server exposes the job store, the worker and synchronous conversion over HTTP.
type Server struct {
	store     repository.JobStore
	sweeper   Sweeper
	proc      *core.Processor
	kicker    Kicker
	filer     common.FilerConfig
	maxUpload int64
	logger    *slog.Logger
}

type Option func(*Server)

// WithKicker makes job creation request a background sweep.
func WithKicker(k Kicker) Option {
	return func(s *Server) { s.kicker = k }
}

// WithFilerDefaults fills blank submission metadata.
func WithFilerDefaults(f common.FilerConfig) Option {
	return func(s *Server) { s.filer = f }
}

func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

func New(store repository.JobStore, sweeper Sweeper, proc *core.Processor, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:     store,
		sweeper:   sweeper,
		proc:      proc,
		maxUpload: 64 << 20,
		logger:    logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", s.createJob)
		r.Get("/", s.listJobs)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getJob)
			r.Delete("/", s.deleteJob)
			r.Get("/result", s.jobArtifact(artifactResult))
			r.Get("/report", s.jobArtifact(artifactReport))
		})
	})
	r.Post("/sweep", s.sweep)
	r.Post("/convert", s.convert)
	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	s.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"request_id", chimiddleware.GetReqID(r.Context()),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
