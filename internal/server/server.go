package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/ivlev/png2gif/internal/config"
	"github.com/ivlev/png2gif/internal/ctxlog"
	"github.com/ivlev/png2gif/internal/engine"
)

const shutdownTimeout = 5 * time.Second

// Server is the HTTP front for the assembler. It only translates requests
// into assembly calls and errors into responses.
type Server struct {
	cfg       config.Config
	assembler *engine.Assembler
	logger    *slog.Logger
	slots     *semaphore.Weighted
}

func New(cfg config.Config, assembler *engine.Assembler, logger *slog.Logger) *Server {
	limit := cfg.Server.MaxConcurrent
	if limit <= 0 {
		limit = 1
	}
	return &Server{
		cfg:       cfg,
		assembler: assembler,
		logger:    logger,
		slots:     semaphore.NewWeighted(limit),
	}
}

// Handler returns the routed handler with CORS and request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/create-gif", s.handleCreateGIF)
	mux.HandleFunc("/api/create-gif/file", s.handleCreateGIFFile)
	mux.HandleFunc("GET /api/share/qr", s.handleShareQR)
	mux.HandleFunc("GET /health", s.handleHealth)
	if root := s.cfg.Output.PublicRoot; root != "" {
		mux.Handle("GET /public/", http.StripPrefix("/public/", http.FileServer(http.Dir(root))))
	}
	return s.withLogger(s.withCORS(mux))
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("🎞 server starting", "address", s.cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", s.cfg.Server.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) withLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := s.logger.With("method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)
		ctx := ctxlog.WithLogger(r.Context(), logger)
		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))
		logger.Debug("request served", "elapsed", time.Since(start))
	})
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		origin := s.cfg.Server.AllowedOrigin
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		// Браузеры отвергают credentials вместе с "*".
		if origin != "*" {
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
