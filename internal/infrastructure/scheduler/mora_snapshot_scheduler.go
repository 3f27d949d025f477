package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	appbilling "github.com/agualoti/backend/internal/application/billing"
	"github.com/agualoti/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// SnapshotRunner performs one mora snapshot pass for the current day
type SnapshotRunner interface {
	SnapshotToday(ctx context.Context) (*appbilling.SnapshotRunResult, error)
}

// MoraSnapshotScheduler periodically stores the mora owed by overdue pending invoices.
// Runs never overlap; a tick that arrives during a run is skipped.
type MoraSnapshotScheduler struct {
	runner SnapshotRunner
	config config.SchedulerConfig
	logger *zap.Logger

	running   atomic.Bool
	lastRun   atomic.Pointer[RunReport]
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isStarted bool
}

// RunReport describes the most recent run
type RunReport struct {
	StartedAt time.Time
	Duration  time.Duration
	Result    *appbilling.SnapshotRunResult
	Err       error
}

// NewMoraSnapshotScheduler creates a scheduler. The interval and job timeout must be positive.
func NewMoraSnapshotScheduler(runner SnapshotRunner, cfg config.SchedulerConfig, logger *zap.Logger) (*MoraSnapshotScheduler, error) {
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}
	if cfg.JobTimeout <= 0 {
		return nil, fmt.Errorf("%w: job timeout must be positive", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MoraSnapshotScheduler{
		runner: runner,
		config: cfg,
		logger: logger,
	}, nil
}

// Start launches the background loop. It is a no-op when disabled or already started.
func (s *MoraSnapshotScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isStarted {
		return nil
	}
	if !s.config.Enabled {
		s.logger.Info("Mora snapshot scheduler is disabled")
		return nil
	}
	s.isStarted = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("Mora snapshot scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Bool("run_on_start", s.config.RunOnStart))
	return nil
}

// Stop cancels the loop and waits for an in-flight run, bounded by ctx
func (s *MoraSnapshotScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isStarted {
		s.mu.Unlock()
		return nil
	}
	s.isStarted = false
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
		s.logger.Info("Mora snapshot scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Mora snapshot scheduler stop timed out")
		return ctx.Err()
	}
}

// RunNow performs a run synchronously, for the admin trigger
func (s *MoraSnapshotScheduler) RunNow(ctx context.Context) (*appbilling.SnapshotRunResult, error) {
	report, err := s.execute(ctx)
	if err != nil {
		return nil, err
	}
	return report.Result, report.Err
}

// LastRun returns the report of the most recent run, or nil
func (s *MoraSnapshotScheduler) LastRun() *RunReport {
	return s.lastRun.Load()
}

func (s *MoraSnapshotScheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	if s.config.RunOnStart {
		s.tick(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Mora snapshot loop stopping")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *MoraSnapshotScheduler) tick(ctx context.Context) {
	if _, err := s.execute(ctx); err != nil {
		s.logger.Warn("Skipping mora snapshot tick", zap.Error(err))
	}
}

func (s *MoraSnapshotScheduler) execute(ctx context.Context) (*RunReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)

	runCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	report := &RunReport{StartedAt: time.Now()}
	report.Result, report.Err = s.runner.SnapshotToday(runCtx)
	report.Duration = time.Since(report.StartedAt)
	s.lastRun.Store(report)

	if report.Err != nil {
		s.logger.Error("Mora snapshot run failed",
			zap.Duration("duration", report.Duration),
			zap.Error(report.Err))
		return report, nil
	}
	s.logger.Info("Mora snapshot run completed",
		zap.Duration("duration", report.Duration),
		zap.Int("invoices", report.Result.Invoices),
		zap.Int("failed", report.Result.Failed))
	return report, nil
}
