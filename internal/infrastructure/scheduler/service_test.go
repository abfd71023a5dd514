package scheduler_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/ArkLabsHQ/lnwatch/internal/core/ports"
	scheduler "github.com/ArkLabsHQ/lnwatch/internal/infrastructure/scheduler/gocron"
	"github.com/stretchr/testify/require"
)

const interval = 100 * time.Millisecond

var schedulerTypes = map[string]func() ports.SchedulerService{
	"gocron": func() ports.SchedulerService {
		return scheduler.NewScheduler()
	},
}

func TestSchedulerService(t *testing.T) {
	for schedulerType, factory := range schedulerTypes {
		t.Run(schedulerType, func(t *testing.T) {
			testScheduler(t, factory)
		})
	}
}

func testScheduler(t *testing.T, newScheduler func() ports.SchedulerService) {
	t.Run("schedule every", func(t *testing.T) {
		svc := newScheduler()
		svc.Start()
		defer svc.Stop()

		done := make(chan struct{}, 10)
		err := svc.ScheduleEvery(interval, func() {
			done <- struct{}{}
		})
		require.NoError(t, err)
		require.True(t, svc.IsScheduled())

		for i := 0; i < 2; i++ {
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				require.Fail(t, "job did not execute within expected time")
			}
		}
	})

	t.Run("waits for schedule", func(t *testing.T) {
		svc := newScheduler()
		svc.Start()
		defer svc.Stop()

		var count atomic.Int32
		err := svc.ScheduleEvery(time.Second, func() {
			count.Add(1)
		})
		require.NoError(t, err)

		time.Sleep(200 * time.Millisecond)
		require.Zero(t, count.Load())
	})

	t.Run("invalid", func(t *testing.T) {
		svc := newScheduler()
		svc.Start()
		defer svc.Stop()

		err := svc.ScheduleEvery(0, func() {})
		require.Error(t, err)

		err = svc.ScheduleEvery(interval, nil)
		require.Error(t, err)

		require.False(t, svc.IsScheduled())
	})

	t.Run("unschedule", func(t *testing.T) {
		svc := newScheduler()
		svc.Start()
		defer svc.Stop()

		var count atomic.Int32
		err := svc.ScheduleEvery(interval, func() {
			count.Add(1)
		})
		require.NoError(t, err)

		svc.Unschedule()
		require.False(t, svc.IsScheduled())

		time.Sleep(3 * interval)
		require.Zero(t, count.Load())

		// Unscheduling twice is a no-op
		svc.Unschedule()
	})

	t.Run("stop", func(t *testing.T) {
		// Stopping a scheduler that never started is a no-op
		newScheduler().Stop()

		svc := newScheduler()
		svc.Start()

		var count atomic.Int32
		err := svc.ScheduleEvery(interval, func() {
			count.Add(1)
		})
		require.NoError(t, err)

		svc.Stop()
		require.False(t, svc.IsScheduled())

		time.Sleep(3 * interval)
		require.Zero(t, count.Load())

		// Stopping twice is a no-op
		svc.Stop()
	})

	t.Run("replace job", func(t *testing.T) {
		svc := newScheduler()
		svc.Start()
		defer svc.Stop()

		var first, second atomic.Int32
		err := svc.ScheduleEvery(interval, func() {
			first.Add(1)
		})
		require.NoError(t, err)

		err = svc.ScheduleEvery(interval, func() {
			second.Add(1)
		})
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			return second.Load() >= 2
		}, 2*time.Second, 10*time.Millisecond)
		require.Zero(t, first.Load())
	})

	t.Run("singleton", func(t *testing.T) {
		svc := newScheduler()
		svc.Start()
		defer svc.Stop()

		var running, maxRunning atomic.Int32
		err := svc.ScheduleEvery(20*time.Millisecond, func() {
			n := running.Add(1)
			defer running.Add(-1)
			if n > maxRunning.Load() {
				maxRunning.Store(n)
			}
			time.Sleep(100 * time.Millisecond)
		})
		require.NoError(t, err)

		time.Sleep(400 * time.Millisecond)
		svc.Unschedule()
		require.LessOrEqual(t, maxRunning.Load(), int32(1))
	})
}
