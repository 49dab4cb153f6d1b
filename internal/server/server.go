// Package server exposes the anomaly detector over HTTP: health,
// predict, retrain and model-info endpoints, a prometheus metrics
// endpoint and a live telemetry WebSocket stream.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/solarsentinel/sentinel-ai/internal/config"
	"github.com/solarsentinel/sentinel-ai/internal/middleware"
	"github.com/solarsentinel/sentinel-ai/internal/model"
	"github.com/solarsentinel/sentinel-ai/internal/store"
)

// Server is the sentinel-ai HTTP server. One detector instance is
// shared across all requests; its own RWMutex serializes retraining
// against in-flight predictions.
type Server struct {
	cfg      *config.Config
	log      *zap.Logger
	detector *model.Detector
	store    *store.Store // nil when persistence is disabled

	httpServer  *http.Server
	rateLimiter *middleware.RateLimiter

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
}

// New creates a server. store may be nil.
func New(cfg *config.Config, log *zap.Logger, detector *model.Detector, st *store.Store) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if detector == nil {
		return nil, fmt.Errorf("detector cannot be nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:      cfg,
		log:      log,
		detector: detector,
		store:    st,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start begins serving. It returns once the listener goroutine is
// running.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.running = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:      s.buildHandler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.log.Info("http server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("http server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("server is not running")
	}
	s.running = false
	s.mu.Unlock()

	if s.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.Error("shutdown error", zap.Error(err))
		}
	}

	s.cancel()
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	s.wg.Wait()

	s.log.Info("server stopped")
	return nil
}

// buildHandler wires routes and the middleware stack: request
// logging/metrics outermost, then CORS, then optional rate limiting.
func (s *Server) buildHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/predict", s.handlePredict)
	mux.HandleFunc("/retrain", s.handleRetrain)
	mux.HandleFunc("/model/info", s.handleModelInfo)
	mux.HandleFunc("/ws/telemetry", s.handleTelemetryStream)
	mux.Handle("/metrics", promhttp.Handler())

	var handler http.Handler = mux

	if s.cfg.Server.RateLimitPerMinute > 0 {
		s.rateLimiter = middleware.NewRateLimiter(s.cfg.Server.RateLimitPerMinute)
		handler = s.rateLimiter.Middleware(handler)
	}

	handler = cors.New(cors.Options{
		AllowedOrigins: s.cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(handler)

	return middleware.RequestLog(s.log, handler)
}
