// Package observability provides the metrics and health HTTP server that
// runs alongside the Run API, on its own listen address.
package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/book-expert/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves Prometheus metrics and liveness/readiness probes.
type Server struct {
	server *http.Server
	addr   string
	log    *logger.Logger
}

// NewServer builds the observability HTTP server. It does not start
// listening until Start is called.
func NewServer(addr string, log *logger.Logger) *Server {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	return &Server{
		addr: addr,
		log:  log,
		server: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start runs the server in a background goroutine.
func (s *Server) Start() {
	go func() {
		s.log.Info("observability server listening on %s", s.addr)

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("observability server error: %v", err)
		}
	}()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down observability server")

	return s.server.Shutdown(ctx)
}
