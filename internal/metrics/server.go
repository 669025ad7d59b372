package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	yerrors "github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// Server serves /metrics and /health.
type Server struct {
	registry   *prometheus.Registry
	httpServer *http.Server
}

// NewServer builds a server on addr exporting collector plus the Go runtime metrics.
func NewServer(addr string, collector *Collector) (*Server, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(collector); err != nil {
		return nil, yerrors.Wrap(err, "register socket collector")
	}
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, yerrors.Wrap(err, "register go collector")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		registry: registry,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
		},
	}, nil
}

// Serve accepts scrapes on ln until Stop is called.
func (s *Server) Serve(ln net.Listener) error {
	logs.Infof("metrics: serving on %s", ln.Addr())
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return yerrors.Wrap(err, "metrics server")
	}
	return nil
}

// ListenAndServe listens on the configured address and serves until Stop is called.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return yerrors.Wrapf(err, "listen %s", s.httpServer.Addr)
	}
	return s.Serve(ln)
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
