package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agrolink/backend/internal/application/ordering"
	"go.uber.org/zap"
)

// Scheduler errors
var (
	ErrSchedulerNotRunning = errors.New("deadline scheduler: not running")
	ErrSweepInProgress     = errors.New("deadline scheduler: sweep already running")
	ErrInvalidConfig       = errors.New("deadline scheduler: invalid config")
)

// DeadlineSweeper runs one deadline enforcement pass
type DeadlineSweeper interface {
	Sweep(ctx context.Context) (ordering.SweepResult, error)
}

// SweeperFactory resolves the sweeper for one tick. The returned release func is
// called when the sweep ends, whatever its outcome.
type SweeperFactory func(ctx context.Context) (DeadlineSweeper, func(), error)

// StaticSweeper returns a factory that hands out the same sweeper on every tick
func StaticSweeper(sweeper DeadlineSweeper) SweeperFactory {
	return func(context.Context) (DeadlineSweeper, func(), error) {
		return sweeper, func() {}, nil
	}
}

// DeadlineSchedulerConfig holds configuration for the deadline scheduler
type DeadlineSchedulerConfig struct {
	// Enabled determines if the scheduler is active
	Enabled bool

	// CheckInterval is the time between two sweeps
	CheckInterval time.Duration

	// TickTimeout is the maximum time for one sweep
	TickTimeout time.Duration

	// RunOnStart runs a sweep immediately instead of waiting for the first tick
	RunOnStart bool
}

// DefaultDeadlineSchedulerConfig returns default configuration
func DefaultDeadlineSchedulerConfig() DeadlineSchedulerConfig {
	return DeadlineSchedulerConfig{
		Enabled:       true,
		CheckInterval: time.Hour,
		TickTimeout:   30 * time.Second,
		RunOnStart:    true,
	}
}

// Validate checks the configuration
func (c DeadlineSchedulerConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("%w: check interval must be positive", ErrInvalidConfig)
	}
	if c.TickTimeout <= 0 {
		return fmt.Errorf("%w: tick timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// DeadlineScheduler periodically cancels expired negotiations and warns about approaching deadlines
type DeadlineScheduler struct {
	factory   SweeperFactory
	logger    *zap.Logger
	config    DeadlineSchedulerConfig
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	sweeping  atomic.Bool
	lastRun   atomic.Pointer[time.Time]
}

// NewDeadlineScheduler creates a new deadline scheduler
func NewDeadlineScheduler(
	factory SweeperFactory,
	logger *zap.Logger,
	config DeadlineSchedulerConfig,
) *DeadlineScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeadlineScheduler{
		factory: factory,
		logger:  logger,
		config:  config,
	}
}

// Start starts the sweep loop
func (s *DeadlineScheduler) Start(ctx context.Context) error {
	if err := s.config.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Deadline scheduler is disabled")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("Deadline scheduler started",
		zap.Duration("check_interval", s.config.CheckInterval),
		zap.Duration("tick_timeout", s.config.TickTimeout),
	)

	return nil
}

// Stop gracefully stops the scheduler, waiting for a running sweep to finish
func (s *DeadlineScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Deadline scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Deadline scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *DeadlineScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	if s.config.RunOnStart {
		s.executeSweep(ctx)
	}

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Deadline sweep loop stopping")
			return
		case <-ticker.C:
			s.executeSweep(ctx)
		}
	}
}

// executeSweep runs one sweep under the tick timeout. Overlapping sweeps are skipped
// and a panic is logged so the loop keeps ticking.
func (s *DeadlineScheduler) executeSweep(ctx context.Context) {
	if !s.sweeping.CompareAndSwap(false, true) {
		s.logger.Warn("Skipping deadline sweep, previous sweep still running")
		return
	}
	defer s.sweeping.Store(false)

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Deadline sweep panicked", zap.Any("panic", r))
		}
	}()

	sweepCtx, cancel := context.WithTimeout(ctx, s.config.TickTimeout)
	defer cancel()

	sweeper, release, err := s.factory(sweepCtx)
	if err != nil {
		s.logger.Error("Failed to resolve deadline sweeper", zap.Error(err))
		return
	}
	defer release()

	startTime := time.Now()
	result, err := sweeper.Sweep(sweepCtx)
	duration := time.Since(startTime)
	s.lastRun.Store(&startTime)

	if err != nil {
		s.logger.Error("Deadline sweep failed",
			zap.Duration("duration", duration),
			zap.Int("cancelled", result.Cancelled),
			zap.Int("warned", result.Warned),
			zap.Error(err),
		)
		return
	}

	if result.Cancelled > 0 || result.Warned > 0 || result.Failed > 0 {
		s.logger.Info("Deadline sweep completed",
			zap.Duration("duration", duration),
			zap.Int("cancelled", result.Cancelled),
			zap.Int("conflicts", result.Conflicts),
			zap.Int("failed", result.Failed),
			zap.Int("warned", result.Warned),
		)
	}
}

// TriggerSweep runs an immediate sweep in the background
func (s *DeadlineScheduler) TriggerSweep(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	if s.sweeping.Load() {
		s.mu.Unlock()
		return ErrSweepInProgress
	}
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Info("Triggering immediate deadline sweep")

	go func() {
		defer s.wg.Done()
		s.executeSweep(ctx)
	}()

	return nil
}

// IsRunning returns whether the scheduler is running
func (s *DeadlineScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// LastRun returns the start time of the most recent sweep, or zero if none ran yet
func (s *DeadlineScheduler) LastRun() time.Time {
	if t := s.lastRun.Load(); t != nil {
		return *t
	}
	return time.Time{}
}
