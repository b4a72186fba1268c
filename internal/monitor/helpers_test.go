package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"speed-monitor/internal/models"
)

// scriptedMeasurer replays a fixed sequence of outcomes, repeating the last one
type scriptedMeasurer struct {
	steps []func(ctx context.Context) (models.Result, error)
	calls int
}

func (s *scriptedMeasurer) Measure(ctx context.Context) (models.Result, error) {
	i := s.calls
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	s.calls++
	return s.steps[i](ctx)
}

func fail(msg string) func(context.Context) (models.Result, error) {
	return func(context.Context) (models.Result, error) {
		return models.Result{}, errors.New(msg)
	}
}

func succeed(res models.Result) func(context.Context) (models.Result, error) {
	return func(context.Context) (models.Result, error) {
		return res, nil
	}
}

// fakeSleeper records requested delays without waiting
type fakeSleeper struct {
	delays []time.Duration
	hook   func(call int) error
}

func (f *fakeSleeper) sleep(ctx context.Context, d time.Duration) error {
	f.delays = append(f.delays, d)
	if f.hook != nil {
		return f.hook(len(f.delays))
	}
	return ctx.Err()
}

// stepClock returns a new instant, one minute apart, on every call
type stepClock struct {
	next  time.Time
	times []time.Time
}

func newStepClock() *stepClock {
	return &stepClock{next: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)}
}

func (c *stepClock) now() time.Time {
	t := c.next
	c.times = append(c.times, t)
	c.next = c.next.Add(time.Minute)
	return t
}

type memStore struct {
	mu        sync.Mutex
	records   []models.MeasurementRecord
	initErr   error
	appendErr error
	inits     int
	closed    bool
}

func (s *memStore) Init() error {
	s.inits++
	return s.initErr
}

func (s *memStore) Append(r models.MeasurementRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	s.records = append(s.records, r)
	return nil
}

func (s *memStore) Close() error {
	s.closed = true
	return nil
}

type countingObserver struct {
	attempts, failures int
	cycles             []models.Outcome
}

func (o *countingObserver) ObserveAttempt(err error) {
	o.attempts++
	if err != nil {
		o.failures++
	}
}

func (o *countingObserver) ObserveCycle(r models.MeasurementRecord) {
	o.cycles = append(o.cycles, r.Outcome())
}

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64 { return &v }

func fullResult(name string) models.Result {
	return models.Result{
		ServerID:      "100",
		ServerName:    name,
		ServerCountry: "Finland",
		ServerSponsor: "Example ISP",
		PingMs:        f64(8.5),
		DownloadMbps:  f64(95.12345),
		UploadMbps:    f64(20.5),
		BytesReceived: i64(11890431),
		BytesSent:     i64(2562500),
	}
}
