package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper removes state that has been idle for longer than threshold.
type Sweeper interface {
	Sweep(ctx context.Context, threshold time.Duration) (int, error)
}

// CleanupConfig holds configuration for the cleanup scheduler.
type CleanupConfig struct {
	// InactiveThreshold is the idle time after which state is swept.
	InactiveThreshold time.Duration

	// CleanupInterval is how often the sweep runs.
	CleanupInterval time.Duration
}

// DefaultCleanupConfig returns default cleanup configuration.
func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{
		InactiveThreshold: 1 * time.Hour,
		CleanupInterval:   10 * time.Minute,
	}
}

// CleanupScheduler periodically runs a Sweeper.
type CleanupScheduler struct {
	sweeper   Sweeper
	config    CleanupConfig
	logger    *zap.Logger
	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
}

// NewCleanupScheduler creates a new cleanup scheduler.
func NewCleanupScheduler(sweeper Sweeper, config CleanupConfig, logger *zap.Logger) *CleanupScheduler {
	defaults := DefaultCleanupConfig()
	if config.InactiveThreshold <= 0 {
		config.InactiveThreshold = defaults.InactiveThreshold
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = defaults.CleanupInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CleanupScheduler{
		sweeper: sweeper,
		config:  config,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
}

// Start begins the cleanup scheduler.
func (s *CleanupScheduler) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.config.CleanupInterval)
	s.mu.Unlock()

	s.logger.Info("cleanup scheduler started",
		zap.Duration("interval", s.config.CleanupInterval),
		zap.Duration("threshold", s.config.InactiveThreshold))

	go s.run()
}

func (s *CleanupScheduler) run() {
	for {
		select {
		case <-s.ticker.C:
			s.runCleanup()
		case <-s.stopCh:
			s.logger.Info("cleanup scheduler stopped")
			return
		}
	}
}

func (s *CleanupScheduler) runCleanup() {
	removed, err := s.RunNow()
	if err != nil {
		s.logger.Error("cleanup failed", zap.Error(err))
		return
	}
	if removed > 0 {
		s.logger.Info("cleanup removed idle state", zap.Int("removed", removed))
	}
}

// Stop stops the cleanup scheduler.
func (s *CleanupScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.isRunning = false
	})
}

// RunNow triggers an immediate sweep.
func (s *CleanupScheduler) RunNow() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	return s.sweeper.Sweep(ctx, s.config.InactiveThreshold)
}
