package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startScheduler(t *testing.T, s *Scheduler) (stop func()) {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()
	return func() {
		s.Stop()
		require.NoError(t, <-done)
	}
}

func TestScheduler_RunsTasksRepeatedly(t *testing.T) {
	s := NewScheduler(5 * time.Millisecond)
	var runs atomic.Int32
	s.Add(ScheduledTask{
		Name:     "rescan",
		Interval: 10 * time.Millisecond,
		Run: func(context.Context) (int, error) {
			runs.Add(1)
			return 3, nil
		},
	}, true)

	stop := startScheduler(t, s)
	require.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	stop()

	result, ok := s.LastResult("rescan")
	require.True(t, ok)
	assert.Equal(t, 3, result.ItemsProcessed)
	assert.NoError(t, result.Err)
	assert.False(t, result.EndedAt.Before(result.StartedAt))
}

func TestScheduler_WaitsForFirstInterval(t *testing.T) {
	s := NewScheduler(5 * time.Millisecond)
	var runs atomic.Int32
	s.Add(ScheduledTask{
		Name:     "later",
		Interval: time.Hour,
		Run: func(context.Context) (int, error) {
			runs.Add(1)
			return 0, nil
		},
	}, false)

	stop := startScheduler(t, s)
	time.Sleep(30 * time.Millisecond)
	stop()

	assert.Zero(t, runs.Load())
	_, ok := s.LastResult("later")
	assert.False(t, ok)
}

func TestScheduler_NoOverlap(t *testing.T) {
	s := NewScheduler(2 * time.Millisecond)
	var active, maxActive, runs atomic.Int32
	s.Add(ScheduledTask{
		Name:     "slow",
		Interval: time.Millisecond,
		Run: func(context.Context) (int, error) {
			n := active.Add(1)
			if n > maxActive.Load() {
				maxActive.Store(n)
			}
			time.Sleep(15 * time.Millisecond)
			active.Add(-1)
			runs.Add(1)
			return 0, nil
		},
	}, true)

	stop := startScheduler(t, s)
	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	stop()

	assert.Equal(t, int32(1), maxActive.Load())
}

func TestScheduler_OneShotAndErrors(t *testing.T) {
	s := NewScheduler(5 * time.Millisecond)
	var runs atomic.Int32
	boom := errors.New("boom")
	s.Add(ScheduledTask{
		Name: "once",
		Run: func(context.Context) (int, error) {
			runs.Add(1)
			return 0, boom
		},
	}, true)

	stop := startScheduler(t, s)
	require.Eventually(t, func() bool {
		_, ok := s.LastResult("once")
		return ok
	}, 2*time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	stop()

	assert.Equal(t, int32(1), runs.Load())
	result, _ := s.LastResult("once")
	assert.ErrorIs(t, result.Err, boom)
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	s := NewScheduler(0)
	assert.Equal(t, DefaultSchedulerTick, s.tick)
	s.Stop()
}

func TestScheduler_ContextCancel(t *testing.T) {
	s := NewScheduler(5 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
