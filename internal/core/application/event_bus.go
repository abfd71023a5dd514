package application

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ArkLabsHQ/lnwatch/internal/core/domain"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Listener handles a published event. Returned errors and panics are logged
// and never reach the publisher.
type Listener func(event domain.Event) error

type subscription struct {
	id        string
	eventType domain.EventType
	listener  Listener
}

// EventBus dispatches events synchronously to its listeners, in registration
// order.
type EventBus struct {
	mu            sync.RWMutex
	subscriptions []subscription
	seq           atomic.Uint64
	failures      atomic.Uint64
}

func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe registers l for events of the given type and returns the id to
// use with Unsubscribe.
func (b *EventBus) Subscribe(eventType domain.EventType, l Listener) string {
	return b.subscribe(eventType, l)
}

// SubscribeAll registers l for every event type.
func (b *EventBus) SubscribeAll(l Listener) string {
	return b.subscribe("", l)
}

func (b *EventBus) subscribe(eventType domain.EventType, l Listener) string {
	id := uuid.New().String()

	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscriptions = append(b.subscriptions, subscription{id, eventType, l})
	return id
}

func (b *EventBus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subscriptions {
		if sub.id == id {
			b.subscriptions = append(b.subscriptions[:i:i], b.subscriptions[i+1:]...)
			return
		}
	}
}

func (b *EventBus) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscriptions)
}

// Failures returns how many listener invocations failed so far.
func (b *EventBus) Failures() uint64 {
	return b.failures.Load()
}

// Publish stamps the event with id, sequence number and timestamp, delivers
// it and returns the stamped copy.
func (b *EventBus) Publish(event domain.Event) domain.Event {
	if event.Id == "" {
		event.Id = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Seq = b.seq.Add(1)

	b.mu.RLock()
	subs := make([]subscription, len(b.subscriptions))
	copy(subs, b.subscriptions)
	b.mu.RUnlock()

	for _, sub := range subs {
		if sub.eventType != "" && sub.eventType != event.Type {
			continue
		}
		if err := notify(sub.listener, event); err != nil {
			b.failures.Add(1)
			logrus.WithError(err).WithFields(logrus.Fields{
				"event":    event.Type,
				"seq":      event.Seq,
				"listener": sub.id,
			}).Warn("event listener failed")
		}
	}

	return event
}

func notify(l Listener, event domain.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Debugf("listener panic stack: %s", debug.Stack())
			err = fmt.Errorf("listener panicked: %v", r)
		}
	}()
	return l(event)
}
