package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/verilex/policyaudit/internal/config"
	"github.com/verilex/policyaudit/internal/infrastructure/monitoring/logging"
)

// Server owns the net/http server around the gin route tree.
type Server struct {
	srv    *http.Server
	cfg    config.ServerConfig
	logger logging.Logger
}

// NewServer builds the server from the route configuration.
func NewServer(cfg config.ServerConfig, rc RouterConfig, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	rc.Mode = routerMode(cfg)
	if rc.Logger == nil {
		rc.Logger = logger
	}
	router := NewRouter(rc)

	handler := http.Handler(router)
	if cfg.MaxBodySize > 0 {
		handler = limitBody(handler, cfg.MaxBodySize)
	}

	return &Server{
		cfg:    cfg,
		logger: logger.Named("server"),
		srv: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
}

// Start serves until the listener closes.  A clean Shutdown is not an error.
func (s *Server) Start() error {
	s.logger.Info("http server listening", logging.Int("port", s.cfg.Port))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests within the configured shutdown timeout.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	if s.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
	}
	return s.srv.Shutdown(ctx)
}

// Handler exposes the route tree for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func limitBody(next http.Handler, maxBytes int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		}
		next.ServeHTTP(w, r)
	})
}
