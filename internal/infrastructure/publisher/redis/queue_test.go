package redispub

import (
	"testing"
	"time"

	"github.com/ArkLabsHQ/lnwatch/internal/core/domain"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

func unreachableClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestPublishQueue(t *testing.T) {
	t.Run("full queue drops events", func(t *testing.T) {
		// The worker is not started so nothing drains the queue
		pub := newPublisher(unreachableClient(), 1)

		require.NoError(t, pub.Publish(domain.NewPaymentReceivedEvent(500, "")))

		err := pub.Publish(domain.NewBalanceChangedEvent(1000, 1500))
		require.ErrorIs(t, err, ErrQueueFull)

		pub.start()
		require.NoError(t, pub.Close())
	})

	t.Run("unreachable redis does not block", func(t *testing.T) {
		pub := newPublisher(unreachableClient(), DefaultQueueSize)
		pub.start()

		start := time.Now()
		for i := 0; i < 10; i++ {
			require.NoError(t, pub.Publish(domain.NewBalanceChangedEvent(1000, 1500)))
		}
		require.Less(t, time.Since(start), 50*time.Millisecond)

		closed := make(chan error, 1)
		go func() { closed <- pub.Close() }()
		select {
		case err := <-closed:
			require.NoError(t, err)
		case <-time.After(closeTimeout + time.Second):
			require.Fail(t, "close did not return")
		}
	})

	t.Run("publish after close", func(t *testing.T) {
		pub := newPublisher(unreachableClient(), 1)
		pub.start()
		require.NoError(t, pub.Close())

		err := pub.Publish(domain.NewPaymentReceivedEvent(500, ""))
		require.ErrorIs(t, err, ErrClosed)
	})
}
