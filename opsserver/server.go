// Package opsserver exposes operational endpoints (metrics, liveness,
// readiness) next to the chaincode process.
package opsserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperledger/fabric/common/flogging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/atomic"
)

var logger = flogging.MustGetLogger("badgeregistry.opsserver")

// Config for the operations listener.
type Config struct {
	ListenAddr               string
	Gatherer                 prometheus.Gatherer
	ReadTimeout              time.Duration
	WriteTimeout             time.Duration
	GracefulShutdownDuration time.Duration
}

// Server serves /metrics, /livez and /readyz.
type Server struct {
	cfg     Config
	isReady atomic.Bool
	srv     *http.Server
}

// New builds a Server. Readiness starts false until MarkReady is called.
func New(cfg Config) *Server {
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 5 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.GracefulShutdownDuration == 0 {
		cfg.GracefulShutdownDuration = 5 * time.Second
	}
	s := &Server{cfg: cfg}
	s.srv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)

	gatherer := s.cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.Get("/livez", s.handleLivenessCheck)
	mux.Get("/readyz", s.handleReadinessCheck)
	return mux
}

// MarkReady flips the readiness probe.
func (s *Server) MarkReady(ready bool) {
	s.isReady.Store(ready)
}

// RunInBackground starts listening; errors other than a clean close are logged.
func (s *Server) RunInBackground() {
	go func() {
		logger.Infof("Starting operations server on %s", s.cfg.ListenAddr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Operations server failed: %v", err)
		}
	}()
}

// Shutdown stops the listener, waiting up to the graceful shutdown duration.
func (s *Server) Shutdown() error {
	s.MarkReady(false)
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.GracefulShutdownDuration)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		return err
	}
	logger.Info("Operations server stopped")
	return nil
}

func (s *Server) handleLivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if !s.isReady.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}
