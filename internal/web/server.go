package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"speed-monitor/internal/metrics"
	"speed-monitor/internal/models"
)

// RecentSource provides the most recent persisted records
type RecentSource interface {
	GetRecent(limit int) ([]models.MeasurementRecord, error)
}

// Server exposes metrics and status over HTTP
type Server struct {
	addr    string
	metrics *metrics.Collector
	recent  RecentSource
	runID   string
	started time.Time
	logger  *zap.Logger
}

// New creates a new web server. recent may be nil, which disables /api/recent.
func New(addr string, collector *metrics.Collector, recent RecentSource, runID string, logger *zap.Logger) *Server {
	return &Server{
		addr:    addr,
		metrics: collector,
		recent:  recent,
		runID:   runID,
		started: time.Now(),
		logger:  logger,
	}
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", s.handleHealth)
	if s.recent != nil {
		mux.HandleFunc("/api/recent", s.handleRecent)
	}

	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web server starting", zap.String("addr", s.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
