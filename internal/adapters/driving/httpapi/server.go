package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mail2shivb/fileupload/internal/core/ports/driving"
	"github.com/mail2shivb/fileupload/internal/logger"
)

// ErrMissingAskService is returned when the server has no pipeline to run.
var ErrMissingAskService = errors.New("ask service is required")

const shutdownTimeout = 10 * time.Second

// Config configures the HTTP server.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string
	// Ask runs the pipeline.
	Ask driving.AskService
	// MaxUploadBytes caps the request body.
	MaxUploadBytes int64
	// RequestTimeout bounds one pipeline run.
	RequestTimeout time.Duration
}

// Server is the HTTP API server.
type Server struct {
	addr   string
	engine *gin.Engine
	log    *slog.Logger
}

// NewServer builds the gin engine with middleware and routes.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Ask == nil {
		return nil, ErrMissingAskService
	}

	log := logger.For("http")

	engine := gin.New()
	engine.Use(
		RequestIDMiddleware(),
		AccessLogMiddleware(log),
		RecoveryMiddleware(log),
	)

	NewHandler(cfg.Ask, cfg.MaxUploadBytes, cfg.RequestTimeout, log).Register(engine)

	return &Server{
		addr:   cfg.Addr,
		engine: engine,
		log:    log,
	}, nil
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on the configured address until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled. It returns only
// after in-flight requests have finished or the shutdown timeout elapsed.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopped := make(chan struct{})
	shutdownDone := make(chan error, 1)
	go func() {
		select {
		case <-ctx.Done():
		case <-stopped:
			return
		}
		s.log.Info("shutting down", slog.String("addr", ln.Addr().String()))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		shutdownDone <- httpServer.Shutdown(shutdownCtx)
	}()

	s.log.Info("listening", slog.String("addr", ln.Addr().String()))
	err := httpServer.Serve(ln)
	if !errors.Is(err, http.ErrServerClosed) {
		close(stopped)
		return err
	}
	if err := <-shutdownDone; err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
