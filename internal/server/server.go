package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	"github.com/crimson-sun/quill/internal/model"
)

// Processor is the correction pipeline the server exposes.
type Processor interface {
	Process(ctx context.Context, req model.CorrectionRequest) (model.CorrectionResult, error)
	Labels() []model.ErrorType
	CorrectorName() string
}

// Options tunes request handling. Zero values fall back to defaults.
type Options struct {
	RequestTimeout    time.Duration // default deadline per correction
	MaxRequestTimeout time.Duration // cap for X-Request-Timeout
	ShutdownTimeout   time.Duration
	MaxConcurrent     int   // corrections in flight; excess gets 503
	MaxBodyBytes      int64 // larger bodies get 413
	ExposeErrors      bool  // return raw engine errors in 500 bodies
	Logger            *slog.Logger
}

func (o *Options) applyDefaults() {
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 60 * time.Second
	}
	if o.MaxRequestTimeout < o.RequestTimeout {
		o.MaxRequestTimeout = o.RequestTimeout
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = 10 * time.Second
	}
	if o.MaxConcurrent < 1 {
		o.MaxConcurrent = 1
	}
	if o.MaxBodyBytes < 1 {
		o.MaxBodyBytes = 64 << 10
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Server serves the correction API over HTTP.
type Server struct {
	proc   Processor
	opts   Options
	log    *slog.Logger
	slots  *semaphore.Weighted
	router *gin.Engine
}

// New builds the router. The processor must be fully initialized: the server
// never loads or mutates it.
func New(proc Processor, opts Options) *Server {
	opts.applyDefaults()
	s := &Server{
		proc:  proc,
		opts:  opts,
		log:   opts.Logger,
		slots: semaphore.NewWeighted(int64(opts.MaxConcurrent)),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(
		s.requestID(),
		s.accessLog(),
		gin.CustomRecoveryWithWriter(nil, s.recover),
		cors(),
	)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorBody("not found"))
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, errorBody("method not allowed"))
	})

	r.GET("/", s.home)
	r.GET("/healthz", s.healthz)
	r.GET("/labels", s.labels)
	r.POST("/correct", s.correct)
	return r
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then drains in-flight
// requests for up to ShutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe over an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", ln.Addr().String(), "engine", s.proc.CorrectorName())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	s.log.Info("shutting down", "timeout", s.opts.ShutdownTimeout)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	<-errCh
	return nil
}
