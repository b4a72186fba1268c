package monitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"speed-monitor/internal/models"
)

// Retrier runs one measurement cycle with a bounded number of attempts.
// Every failure is turned into a record; Run only returns an error when ctx
// is cancelled, in which case the cycle produced nothing, even if the
// measurer still returned a result.
type Retrier struct {
	measurer    models.Measurer
	maxAttempts int
	delay       time.Duration
	observer    models.Observer
	logger      *zap.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetrier creates a Retrier making at most maxAttempts attempts, delay apart
func NewRetrier(measurer models.Measurer, maxAttempts int, delay time.Duration, observer models.Observer, logger *zap.Logger) *Retrier {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if observer == nil {
		observer = models.NopObserver{}
	}
	return &Retrier{
		measurer:    measurer,
		maxAttempts: maxAttempts,
		delay:       delay,
		observer:    observer,
		logger:      logger,
		now:         time.Now,
		sleep:       sleepContext,
	}
}

// Run executes attempts until one completes or the budget is exhausted
func (r *Retrier) Run(ctx context.Context) (models.MeasurementRecord, error) {
	for attempt := 1; ; attempt++ {
		utc, local := models.Timestamps(r.now())

		res, err := r.measurer.Measure(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.MeasurementRecord{}, ctxErr
		}
		if err == nil {
			r.observer.ObserveAttempt(nil)
			return models.NewRecord(utc, local, res), nil
		}
		r.observer.ObserveAttempt(err)

		if attempt >= r.maxAttempts {
			r.logger.Error("measurement failed, giving up",
				zap.Int("attempts", attempt),
				zap.Error(err))
			return models.NewFatalRecord(utc, local, err.Error()), nil
		}

		r.logger.Warn("measurement attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.maxAttempts),
			zap.Duration("retry_in", r.delay),
			zap.Error(err))

		if err := r.sleep(ctx, r.delay); err != nil {
			return models.MeasurementRecord{}, err
		}
	}
}
