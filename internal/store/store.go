// Package store holds the per-session dashboard stores. Each store wraps a
// gateway, keeps a local cache of the rows it has seen, and exposes the
// loading/error state of its last action.
package store

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"dumptrack-api/internal/cache"
	"dumptrack-api/internal/model"
	"dumptrack-api/pkg/metrics"
)

// ErrNotFound is returned when a mutation matched no row.
var ErrNotFound = errors.New("record not found")

// ErrInvalidDate is returned for a delivery date in none of the accepted
// layouts.
var ErrInvalidDate = errors.New("invalid date")

// options are shared by every store constructor.
type options struct {
	logger            *zap.Logger
	metrics           *metrics.Metrics
	now               func() time.Time
	adminTrigger      string
	sideCache         cache.Cache
	sideCacheKey      string
	sideCacheTTL      time.Duration
	compensateBatches bool
}

// Option configures a store.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records every action in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithAdminTrigger sets the email substring that marks administrators.
func WithAdminTrigger(trigger string) Option {
	return func(o *options) { o.adminTrigger = trigger }
}

// WithSideCache mirrors the tracking dump list into c under key.
func WithSideCache(c cache.Cache, key string, ttl time.Duration) Option {
	return func(o *options) {
		o.sideCache = c
		o.sideCacheKey = key
		o.sideCacheTTL = ttl
	}
}

// WithBatchCompensation deletes the batch created by AddDump when its
// delivery cannot be inserted.
func WithBatchCompensation() Option {
	return func(o *options) { o.compensateBatches = true }
}

func newOptions(component string, opts []Option) options {
	o := options{
		logger:       zap.NewNop(),
		now:          time.Now,
		adminTrigger: DefaultAdminTrigger,
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.With(zap.String("component", component))
	return o
}

// state tracks in-flight actions and the last error of a store.
type state struct {
	name    string
	metrics *metrics.Metrics

	mu       sync.RWMutex
	inflight int
	lastErr  string
}

// begin marks an action as started and clears the last error. The returned
// func ends the action; pass it the action's error.
func (s *state) begin(action string) func(error) {
	start := time.Now()

	s.mu.Lock()
	s.inflight++
	s.lastErr = ""
	s.mu.Unlock()

	return func(err error) {
		s.mu.Lock()
		s.inflight--
		if err != nil {
			s.lastErr = err.Error()
		}
		s.mu.Unlock()
		s.metrics.ObserveAction(s.name, action, start, err)
	}
}

// fail records err without an action in flight.
func (s *state) fail(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.lastErr = err.Error()
	s.mu.Unlock()
}

// Loading reports whether an action is in flight.
func (s *state) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inflight > 0
}

// Err returns the message of the last failed action, or "".
func (s *state) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// ClearError resets the last error.
func (s *state) ClearError() {
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()
}

const timeLayout = model.TimestampLayout

func nowString(now func() time.Time) string {
	return now().UTC().Format(timeLayout)
}
