package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	appbilling "github.com/agualoti/backend/internal/application/billing"
	"github.com/agualoti/backend/internal/infrastructure/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRunner struct {
	calls atomic.Int32
	block chan struct{}
	err   error
}

func (r *fakeRunner) SnapshotToday(ctx context.Context) (*appbilling.SnapshotRunResult, error) {
	r.calls.Add(1)
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return &appbilling.SnapshotRunResult{EvaluatedOn: "2025-03-01", Invoices: 2, TotalMora: decimal.NewFromInt(14)}, nil
}

func testConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		Enabled:    true,
		Interval:   10 * time.Millisecond,
		JobTimeout: time.Second,
	}
}

func TestNewMoraSnapshotScheduler_RejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Interval = 0
	_, err := NewMoraSnapshotScheduler(&fakeRunner{}, cfg, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg = testConfig()
	cfg.JobTimeout = -time.Second
	_, err = NewMoraSnapshotScheduler(&fakeRunner{}, cfg, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestMoraSnapshotScheduler_RunsPeriodically(t *testing.T) {
	runner := &fakeRunner{}
	s, err := NewMoraSnapshotScheduler(runner, testConfig(), zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool { return runner.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	after := runner.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, runner.calls.Load(), "no runs after stop")

	last := s.LastRun()
	require.NotNil(t, last)
	assert.Equal(t, 2, last.Result.Invoices)
}

func TestMoraSnapshotScheduler_RunOnStart(t *testing.T) {
	runner := &fakeRunner{}
	cfg := testConfig()
	cfg.Interval = time.Hour
	cfg.RunOnStart = true
	s, err := NewMoraSnapshotScheduler(runner, cfg, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	assert.Eventually(t, func() bool { return runner.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestMoraSnapshotScheduler_Disabled(t *testing.T) {
	runner := &fakeRunner{}
	cfg := testConfig()
	cfg.Enabled = false
	cfg.RunOnStart = true
	s, err := NewMoraSnapshotScheduler(runner, cfg, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), runner.calls.Load())
	assert.NoError(t, s.Stop(context.Background()))
}

func TestMoraSnapshotScheduler_RunNow(t *testing.T) {
	t.Run("returns the result", func(t *testing.T) {
		s, err := NewMoraSnapshotScheduler(&fakeRunner{}, testConfig(), zap.NewNop())
		require.NoError(t, err)

		result, err := s.RunNow(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "14", result.TotalMora.String())
	})

	t.Run("returns the runner error", func(t *testing.T) {
		boom := errors.New("database unavailable")
		s, err := NewMoraSnapshotScheduler(&fakeRunner{err: boom}, testConfig(), zap.NewNop())
		require.NoError(t, err)

		_, err = s.RunNow(context.Background())
		assert.ErrorIs(t, err, boom)
		assert.ErrorIs(t, s.LastRun().Err, boom)
	})

	t.Run("refuses overlapping runs", func(t *testing.T) {
		runner := &fakeRunner{block: make(chan struct{})}
		s, err := NewMoraSnapshotScheduler(runner, testConfig(), zap.NewNop())
		require.NoError(t, err)

		done := make(chan error, 1)
		go func() {
			_, err := s.RunNow(context.Background())
			done <- err
		}()
		assert.Eventually(t, func() bool { return runner.calls.Load() == 1 }, time.Second, time.Millisecond)

		_, err = s.RunNow(context.Background())
		assert.ErrorIs(t, err, ErrRunInProgress)

		close(runner.block)
		assert.NoError(t, <-done)
	})
}
