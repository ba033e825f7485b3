package scheduler

import (
	"context"
	"sync"
	"time"

	appmetering "github.com/bizledger/backend/internal/application/metering"
	"go.uber.org/zap"
)

// ReconcileRunner runs a full reconciliation pass over all subscribers
type ReconcileRunner interface {
	ReconcileAll(ctx context.Context) (*appmetering.ReconcileReport, error)
}

// ReconciliationScheduler runs the ledger reconciliation pass once a day
// at a configured hour, off the request path
type ReconciliationScheduler struct {
	runner    ReconcileRunner
	logger    *zap.Logger
	config    ReconciliationSchedulerConfig
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// ReconciliationSchedulerConfig holds configuration for the scheduler
type ReconciliationSchedulerConfig struct {
	// Enabled determines if the scheduler is active
	Enabled bool

	// RunAtHour is the hour (0-23) for the daily pass
	RunAtHour int

	// RunTimeout bounds a single reconciliation pass
	RunTimeout time.Duration

	// InitialDelay postpones the first immediate run after startup
	InitialDelay time.Duration

	// RunImmediately runs a pass on startup. Useful after incidents
	// where the ledger is suspected to have drifted.
	RunImmediately bool
}

// DefaultReconciliationSchedulerConfig returns default configuration
func DefaultReconciliationSchedulerConfig() ReconciliationSchedulerConfig {
	return ReconciliationSchedulerConfig{
		Enabled:    true,
		RunAtHour:  2,
		RunTimeout: 30 * time.Minute,
	}
}

// NewReconciliationScheduler creates a new reconciliation scheduler
func NewReconciliationScheduler(
	runner ReconcileRunner,
	logger *zap.Logger,
	config ReconciliationSchedulerConfig,
) *ReconciliationScheduler {
	return &ReconciliationScheduler{
		runner: runner,
		logger: logger,
		config: config,
	}
}

// Start starts the daily reconciliation loop
func (s *ReconciliationScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("reconciliation scheduler is disabled")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runDaily(ctx)

	s.logger.Info("reconciliation scheduler started",
		zap.Int("run_at_hour", s.config.RunAtHour),
		zap.Bool("run_immediately", s.config.RunImmediately),
	)

	return nil
}

// Stop gracefully stops the scheduler, waiting for an in-flight pass
// until ctx expires
func (s *ReconciliationScheduler) Stop(ctx context.Context) error {
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
		s.logger.Info("reconciliation scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("reconciliation scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *ReconciliationScheduler) runDaily(ctx context.Context) {
	defer s.wg.Done()

	if s.config.RunImmediately {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.config.InitialDelay):
			s.executePass(ctx)
		}
	}

	for {
		now := time.Now()
		nextRun := time.Date(now.Year(), now.Month(), now.Day(), s.config.RunAtHour, 0, 0, 0, now.Location())
		if now.After(nextRun) {
			nextRun = nextRun.Add(24 * time.Hour)
		}
		delay := time.Until(nextRun)

		s.logger.Info("daily reconciliation scheduled",
			zap.Time("next_run", nextRun),
			zap.Duration("delay", delay),
		)

		select {
		case <-ctx.Done():
			s.logger.Debug("reconciliation loop stopping")
			return
		case <-time.After(delay):
			s.executePass(ctx)
		}
	}
}

func (s *ReconciliationScheduler) executePass(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	startTime := time.Now()
	report, err := s.runner.ReconcileAll(runCtx)
	duration := time.Since(startTime)

	if err != nil {
		s.logger.Error("reconciliation pass failed",
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("reconciliation pass completed",
		zap.Duration("duration", duration),
		zap.Int("subscribers_checked", report.SubscribersChecked),
		zap.Int("records_checked", report.RecordsChecked),
		zap.Int("corrections", len(report.Corrections)),
		zap.Int("failures", report.Failures),
	)
}

// TriggerImmediate runs a reconciliation pass right away without waiting
// for the daily schedule
func (s *ReconciliationScheduler) TriggerImmediate(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Info("triggering immediate reconciliation pass")

	go func() {
		defer s.wg.Done()
		s.executePass(ctx)
	}()

	return nil
}

// IsRunning reports whether the scheduler is active
func (s *ReconciliationScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}
