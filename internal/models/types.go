package models

import "context"

// Measurer runs one network speed measurement.
// A returned error means no result was produced at all; a Result is returned
// whenever the server was reached, even if Result.Error is set.
type Measurer interface {
	Measure(ctx context.Context) (Result, error)
}

// RecordStore defines operations for durable record persistence
type RecordStore interface {
	Init() error
	Append(record MeasurementRecord) error
	Close() error
}

// Observer receives cycle and attempt outcomes for observability
type Observer interface {
	ObserveAttempt(err error)
	ObserveCycle(record MeasurementRecord)
}

// NopObserver discards all observations
type NopObserver struct{}

func (NopObserver) ObserveAttempt(error) {}
func (NopObserver) ObserveCycle(MeasurementRecord) {}
