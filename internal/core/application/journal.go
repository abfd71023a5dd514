package application

import (
	"context"
	"fmt"

	"github.com/ArkLabsHQ/lnwatch/internal/core/domain"
	"github.com/ArkLabsHQ/lnwatch/internal/core/ports"
)

// Journal persists every event published on the bus and keeps a payment
// history derived from PaymentSent and PaymentReceived events.
type Journal struct {
	repoManager ports.RepoManager
	bus         *EventBus
	subId       string
}

func NewJournal(repoManager ports.RepoManager) *Journal {
	return &Journal{repoManager: repoManager}
}

// Attach subscribes the journal to bus. Attaching twice is a no-op.
func (j *Journal) Attach(bus *EventBus) {
	if j.subId != "" {
		return
	}
	j.bus = bus
	j.subId = bus.SubscribeAll(j.record)
}

func (j *Journal) Detach() {
	if j.subId == "" {
		return
	}
	j.bus.Unsubscribe(j.subId)
	j.subId = ""
}

func (j *Journal) record(event domain.Event) error {
	ctx := context.Background()

	if err := j.repoManager.Events().Add(ctx, event); err != nil {
		return fmt.Errorf("failed to store event %s: %w", event.Id, err)
	}

	payment, ok := paymentFromEvent(event)
	if !ok {
		return nil
	}
	if err := j.repoManager.Payments().Add(ctx, payment); err != nil {
		return fmt.Errorf("failed to store payment %s: %w", payment.Id, err)
	}
	return nil
}

func (j *Journal) LatestEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	return j.repoManager.Events().GetLatest(ctx, limit)
}

func (j *Journal) EventsByType(
	ctx context.Context, eventType domain.EventType,
) ([]domain.Event, error) {
	if !eventType.IsValid() {
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}
	return j.repoManager.Events().GetByType(ctx, eventType)
}

func (j *Journal) Payments(ctx context.Context) ([]domain.Payment, error) {
	return j.repoManager.Payments().GetAll(ctx)
}

func paymentFromEvent(event domain.Event) (domain.Payment, bool) {
	switch event.Type {
	case domain.EventPaymentSent:
		if event.PaymentSent == nil {
			return domain.Payment{}, false
		}
		result := event.PaymentSent.Result
		id := result.PaymentId
		if id == "" {
			id = event.Id
		}
		return domain.Payment{
			Id:        id,
			Amount:    result.Amount,
			Fee:       result.Fee,
			Timestamp: event.Timestamp.Unix(),
			Status:    domain.PaymentSuccess,
			Type:      domain.Pay,
			Invoice:   event.PaymentSent.Invoice,
		}, true
	case domain.EventPaymentReceived:
		if event.PaymentReceived == nil {
			return domain.Payment{}, false
		}
		return domain.Payment{
			Id:          event.Id,
			Amount:      event.PaymentReceived.Amount,
			Timestamp:   event.Timestamp.Unix(),
			Status:      domain.PaymentSuccess,
			Type:        domain.Receive,
			Description: event.PaymentReceived.Description,
		}, true
	default:
		return domain.Payment{}, false
	}
}
