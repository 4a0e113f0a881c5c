// Package httpapi serves the dashboard data layer to a browser front-end.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

// Server is the dashboard HTTP API
type Server struct {
	handler    *Handler
	logger     *zap.Logger
	listenAddr string
	gatherer   prometheus.Gatherer
	router     *mux.Router

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// NewServer creates the HTTP API. A nil gatherer serves the default registry.
func NewServer(handler *Handler, listenAddr string, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		handler:    handler,
		logger:     logger,
		listenAddr: listenAddr,
		gatherer:   gatherer,
	}
	s.router = s.routes()
	return s
}

// Router returns the configured request router
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/api/dashboard/metrics", s.handler.DashboardMetrics).Methods(http.MethodGet)
	router.HandleFunc("/api/dashboard/feature-importance", s.handler.FeatureImportance).Methods(http.MethodGet)
	router.HandleFunc("/api/scans", s.handler.CreateScan).Methods(http.MethodPost)
	router.HandleFunc("/api/scans/last", s.handler.LastScan).Methods(http.MethodGet)
	router.HandleFunc("/api/history", s.handler.ListHistory).Methods(http.MethodGet)
	router.HandleFunc("/api/history", s.handler.ClearHistory).Methods(http.MethodDelete)
	router.HandleFunc("/api/history/export", s.handler.ExportHistory).Methods(http.MethodGet)
	router.HandleFunc("/api/preferences", s.handler.GetPreferences).Methods(http.MethodGet)
	router.HandleFunc("/api/preferences", s.handler.UpdatePreferences).Methods(http.MethodPut)

	router.HandleFunc("/healthz", s.handler.Health).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "NotFound", "Not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "Method not allowed")
	})

	router.Use(recoveryMiddleware(s.logger))
	router.Use(loggingMiddleware(s.logger))

	return router
}

// Start binds the listen address and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.mu.Lock()
	s.server = srv
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("Dashboard API listening", zap.String("address", ln.Addr().String()))

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Dashboard API server error", zap.Error(err))
		}
	}()

	return nil
}

// Addr returns the bound address once started
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.listenAddr
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts the server down
func (s *Server) Stop() error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
