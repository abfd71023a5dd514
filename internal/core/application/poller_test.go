package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPollScheduler(t *testing.T) {
	t.Run("start and stop", func(t *testing.T) {
		sched := &manualScheduler{}
		ticks := 0
		poller := NewPollScheduler(sched, time.Second, func() { ticks++ })

		require.Equal(t, time.Second, poller.Interval())
		require.False(t, poller.IsRunning())

		require.NoError(t, poller.Start())
		require.True(t, poller.IsRunning())
		require.True(t, sched.fire())
		require.Equal(t, 1, ticks)

		// Starting twice is a no-op
		require.NoError(t, poller.Start())

		poller.Stop()
		require.False(t, poller.IsRunning())
		require.False(t, sched.fire())
		require.Equal(t, 1, ticks)

		poller.Stop()
	})

	t.Run("job dropped by the scheduler", func(t *testing.T) {
		sched := &manualScheduler{}
		ticks := 0
		poller := NewPollScheduler(sched, time.Second, func() { ticks++ })

		require.NoError(t, poller.Start())
		sched.Stop()
		require.False(t, poller.IsRunning())
		require.False(t, sched.fire())

		require.NoError(t, poller.Start())
		require.True(t, poller.IsRunning())
		require.True(t, sched.fire())
		require.Equal(t, 1, ticks)
	})

	t.Run("host driven", func(t *testing.T) {
		poller := NewPollScheduler(nil, time.Second, func() {})
		require.NoError(t, poller.Start())
		require.True(t, poller.IsRunning())
		poller.Stop()
		require.False(t, poller.IsRunning())
	})
}
