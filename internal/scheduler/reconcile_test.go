package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("30 3 * * *"))
	assert.NoError(t, ValidateSchedule("*/5 * * * *"))
	assert.Error(t, ValidateSchedule("not a schedule"))
	assert.Error(t, ValidateSchedule("0 30 3 * * *"), "seconds field is not accepted")
}

func TestReconcileScheduler_StartStop(t *testing.T) {
	s := NewReconcileScheduler("30 3 * * *", func(ctx context.Context) error { return nil })

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())

	next := s.NextRun()
	require.NotNil(t, next)
	assert.Equal(t, 3, next.Hour())
	assert.Equal(t, 30, next.Minute())

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.NextRun())
}

func TestReconcileScheduler_InvalidSchedule(t *testing.T) {
	s := NewReconcileScheduler("bogus", func(ctx context.Context) error { return nil })

	assert.Error(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}

func TestReconcileScheduler_StopsWithContext(t *testing.T) {
	s := NewReconcileScheduler("30 3 * * *", func(ctx context.Context) error { return nil })
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, s.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool { return !s.IsRunning() }, time.Second, 10*time.Millisecond)
}

func TestReconcileScheduler_RunNow(t *testing.T) {
	var calls atomic.Int32
	s := NewReconcileScheduler("30 3 * * *", func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("logged, not returned")
	})

	s.RunNow()

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 10*time.Millisecond)
}

func TestReconcileScheduler_SkipsOverlappingRuns(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	s := NewReconcileScheduler("30 3 * * *", func(ctx context.Context) error {
		calls.Add(1)
		<-release
		return nil
	})

	s.RunNow()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 10*time.Millisecond)

	s.runOnce()
	close(release)

	assert.Equal(t, int32(1), calls.Load())
}
