// Package server exposes the service's HTTP surface.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/kenyafarmiot/farmdb/internal/bootstrap"
	"github.com/kenyafarmiot/farmdb/internal/database"
)

const (
	serviceName       = "Kenya Farm IoT"
	region            = "Kenya"
	defaultPing       = 2 * time.Second
	shutdownTimeout   = 30 * time.Second
	readHeaderTimeout = 10 * time.Second
)

var releaseMode sync.Once

// Server serves the health endpoint for a migrated database.
type Server struct {
	addr        string
	log         logrus.FieldLogger
	pinger      database.Pinger
	report      bootstrap.Report
	pingTimeout time.Duration
	now         func() time.Time
	router      *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithPingTimeout bounds the database ping made by each health check.
func WithPingTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.pingTimeout = d
		}
	}
}

// New builds a Server for the state left by bootstrap.Run.
func New(addr string, log logrus.FieldLogger, state *bootstrap.State, opts ...Option) *Server {
	releaseMode.Do(func() { gin.SetMode(gin.ReleaseMode) })

	s := &Server{
		addr:        addr,
		log:         log,
		pinger:      state.Pinger(),
		report:      state.Report(),
		pingTimeout: defaultPing,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.router = gin.New()
	s.router.Use(gin.Recovery(), requestLogger(log))
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	api.GET("", s.handleIndex)
	api.GET("/health", s.handleHealth)
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		s.log.WithField("addr", s.addr).Info("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("serving on %s: %w", s.addr, err)
	case <-ctx.Done():
	}

	s.log.Info("initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	return nil
}
