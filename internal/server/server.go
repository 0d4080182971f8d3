// Package server exposes the analysis engine over HTTP and WebSocket.
package server

import (
	"context"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zeusync/drgpu/internal/core/observability/log"
	"github.com/zeusync/drgpu/internal/core/observability/metrics"
)

// Server serves analyses of uploaded profiler reports.
type Server struct {
	config   Config
	logger   log.Log
	analyzer *Analyzer
	metrics  metrics.Collector
	gatherer prometheus.Gatherer
	router   *mux.Router

	mu       sync.Mutex
	http     *http.Server
	listener net.Listener

	// Server state
	running int32 // atomic bool
	closed  int32 // atomic bool
}

// Config holds server configuration
type Config struct {
	ListenAddr string

	// MaxReportSize bounds request bodies and websocket messages, in bytes.
	MaxReportSize int64

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns default server configuration
func DefaultConfig() Config {
	return Config{
		ListenAddr:      "127.0.0.1:8080",
		MaxReportSize:   32 << 20, // 32MB
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    2 * time.Minute,
		ShutdownTimeout: 10 * time.Second,
	}
}

func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.Wrap(ErrInvalidConfig, "empty listen address")
	}
	if c.MaxReportSize <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "max report size %d", c.MaxReportSize)
	}
	return nil
}

// NewServer wires the routes. A nil gatherer serves the default Prometheus registry.
func NewServer(config Config, analyzer *Analyzer, m metrics.Collector, gatherer prometheus.Gatherer, logger log.Log) *Server {
	if logger == nil {
		logger = log.NewNop()
	}
	if m == nil {
		m = metrics.Nop{}
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		config:   config,
		logger:   logger.With(log.String("component", "server")),
		analyzer: analyzer,
		metrics:  m,
		gatherer: gatherer,
	}
	s.router = s.routes()

	s.logger.Info("Server created",
		log.String("listen_addr", config.ListenAddr),
		log.Int("max_report_size", int(config.MaxReportSize)))

	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.instrument)

	r.HandleFunc("/api/v1/analyze", s.handleAnalyze).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/configs", s.handleConfigs).Methods(http.MethodGet)

	r.HandleFunc("/ws", s.handleWebSocket)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	return r
}

// Handler is the root handler, usable without Start (httptest).
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(_ context.Context) error {
	if atomic.LoadInt32(&s.closed) == 1 {
		return ErrServerClosed
	}
	if err := s.config.Validate(); err != nil {
		return err
	}
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return ErrServerAlreadyRunning
	}

	s.logger.Info("Starting server")

	listener, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		atomic.StoreInt32(&s.running, 0)
		s.logger.Error("Failed to create listener", log.Error(err))
		return errors.Wrap(ErrListenerFailed, err.Error())
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: s.config.ReadTimeout,
		ReadTimeout:       s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
	}
	s.mu.Lock()
	s.http, s.listener = srv, listener
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server stopped unexpectedly", log.Error(err))
		}
	}()

	s.logger.Info("Server listening", log.String("addr", listener.Addr().String()))
	return nil
}

// Addr is the bound address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down gracefully, waiting at most ShutdownTimeout.
func (s *Server) Stop(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.running, 1, 0) {
		return ErrServerNotRunning
	}

	s.logger.Info("Stopping server")

	if s.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}

	s.mu.Lock()
	srv := s.http
	s.mu.Unlock()
	if err := srv.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "shutdown")
	}

	s.logger.Info("Server stopped")
	return nil
}

// Close stops the server for good.
func (s *Server) Close() error {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return ErrServerClosed
	}
	if atomic.LoadInt32(&s.running) == 1 {
		return s.Stop(context.Background())
	}
	return nil
}
