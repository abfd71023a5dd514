package application

import (
	"context"
	"errors"
	"testing"

	"github.com/ArkLabsHQ/lnwatch/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func TestJournal(t *testing.T) {
	ctx := context.Background()

	t.Run("records events and payments", func(t *testing.T) {
		repoManager := newMemRepoManager()
		bus := NewEventBus()
		journal := NewJournal(repoManager)
		journal.Attach(bus)
		journal.Attach(bus)
		require.Equal(t, 1, bus.ListenerCount())

		bus.Publish(domain.NewConnectedEvent())
		received := bus.Publish(domain.NewPaymentReceivedEvent(500, ""))
		bus.Publish(domain.NewBalanceChangedEvent(1000, 1500))
		bus.Publish(domain.NewPaymentSentEvent("lnbc1", domain.PaymentResult{
			Success: true, PaymentId: "hash", Amount: 200, Fee: 2,
		}))

		events, err := journal.LatestEvents(ctx, 0)
		require.NoError(t, err)
		require.Len(t, events, 4)
		require.Equal(t, domain.EventPaymentSent, events[0].Type)
		require.Equal(t, domain.EventConnected, events[3].Type)

		events, err = journal.LatestEvents(ctx, 2)
		require.NoError(t, err)
		require.Len(t, events, 2)

		events, err = journal.EventsByType(ctx, domain.EventBalanceChanged)
		require.NoError(t, err)
		require.Len(t, events, 1)

		_, err = journal.EventsByType(ctx, "unknown")
		require.Error(t, err)

		payments, err := journal.Payments(ctx)
		require.NoError(t, err)
		require.Len(t, payments, 2)

		sent, err := repoManager.Payments().Get(ctx, "hash")
		require.NoError(t, err)
		require.Equal(t, domain.Pay, sent.Type)
		require.Equal(t, domain.PaymentSuccess, sent.Status)
		require.Equal(t, int64(200), sent.Amount)
		require.Equal(t, int64(2), sent.Fee)
		require.Equal(t, "lnbc1", sent.Invoice)

		recv, err := repoManager.Payments().Get(ctx, received.Id)
		require.NoError(t, err)
		require.Equal(t, domain.Receive, recv.Type)
		require.Equal(t, int64(500), recv.Amount)
	})

	t.Run("payment without id", func(t *testing.T) {
		repoManager := newMemRepoManager()
		bus := NewEventBus()
		NewJournal(repoManager).Attach(bus)

		event := bus.Publish(domain.NewPaymentSentEvent("lnbc1", domain.PaymentResult{
			Success: true, Amount: 10,
		}))

		payment, err := repoManager.Payments().Get(ctx, event.Id)
		require.NoError(t, err)
		require.Equal(t, int64(10), payment.Amount)
	})

	t.Run("storage failure", func(t *testing.T) {
		repoManager := newMemRepoManager()
		repoManager.events.err = errors.New("disk full")
		bus := NewEventBus()
		NewJournal(repoManager).Attach(bus)

		bus.Publish(domain.NewPaymentReceivedEvent(1, ""))
		require.Equal(t, uint64(1), bus.Failures())

		payments, err := repoManager.Payments().GetAll(ctx)
		require.NoError(t, err)
		require.Empty(t, payments)
	})

	t.Run("detach", func(t *testing.T) {
		repoManager := newMemRepoManager()
		bus := NewEventBus()
		journal := NewJournal(repoManager)
		journal.Attach(bus)
		journal.Detach()
		journal.Detach()

		bus.Publish(domain.NewReadyEvent())
		events, err := journal.LatestEvents(ctx, 0)
		require.NoError(t, err)
		require.Empty(t, events)
	})
}
