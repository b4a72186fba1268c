package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"speed-monitor/internal/config"
	"speed-monitor/internal/models"
)

// Monitor drives measurement cycles and persists their records
type Monitor struct {
	config   config.Config
	retrier  *Retrier
	stores   []models.RecordStore
	observer models.Observer
	progress io.Writer
	logger   *zap.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Monitor
type Option func(*Monitor)

// WithObserver reports attempts and cycles to o
func WithObserver(o models.Observer) Option {
	return func(m *Monitor) {
		m.observer = o
	}
}

// WithProgress writes progress lines to w instead of stdout
func WithProgress(w io.Writer) Option {
	return func(m *Monitor) {
		m.progress = w
	}
}

// New creates a new Monitor. Records are appended to stores in order; the
// first store is the primary log.
func New(cfg config.Config, measurer models.Measurer, stores []models.RecordStore, logger *zap.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		config:   cfg,
		stores:   stores,
		observer: models.NopObserver{},
		progress: os.Stdout,
		logger:   logger,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.retrier = NewRetrier(measurer, cfg.MaxAttempts, cfg.RetryDelay, m.observer, logger)
	return m
}

// Run initializes the stores and runs cycles until ctx is cancelled.
// It returns nil on cancellation and an error if a store fails.
func (m *Monitor) Run(ctx context.Context) (err error) {
	defer func() {
		if closeErr := m.closeStores(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for _, store := range m.stores {
		if err := store.Init(); err != nil {
			return fmt.Errorf("initialize record store: %w", err)
		}
	}

	m.logger.Info("monitor started",
		zap.String("log", m.config.LogPath),
		zap.Duration("interval", m.config.Interval),
		zap.Int("max_attempts", m.config.MaxAttempts),
		zap.Duration("retry_delay", m.config.RetryDelay))

	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := m.performCycle(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				m.logger.Info("cycle interrupted, nothing persisted")
				return nil
			}
			return err
		}

		if m.config.Interval > 0 {
			if err := m.sleep(ctx, m.config.Interval); err != nil {
				return nil
			}
		}
	}
}

func (m *Monitor) closeStores() error {
	var errs []error
	for _, store := range m.stores {
		if err := store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
