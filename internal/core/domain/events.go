package domain

import (
	"context"
	"time"
)

type EventType string

const (
	EventConnected        EventType = "connected"
	EventConnectionFailed EventType = "connection_failed"
	EventInvoiceCreated   EventType = "invoice_created"
	EventPaymentSent      EventType = "payment_sent"
	EventPaymentReceived  EventType = "payment_received"
	EventBalanceChanged   EventType = "balance_changed"
	EventReady            EventType = "ready"
)

var EventTypes = []EventType{
	EventConnected,
	EventConnectionFailed,
	EventInvoiceCreated,
	EventPaymentSent,
	EventPaymentReceived,
	EventBalanceChanged,
	EventReady,
}

func (t EventType) IsValid() bool {
	for _, et := range EventTypes {
		if et == t {
			return true
		}
	}
	return false
}

// Event is a tagged variant: Type selects which payload, if any, is set.
// Connected and Ready carry no payload.
type Event struct {
	Id        string    `json:"id"`
	Seq       uint64    `json:"seq"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	ConnectionFailed *ConnectionFailedData `json:"connection_failed,omitempty"`
	InvoiceCreated   *InvoiceCreatedData   `json:"invoice_created,omitempty"`
	PaymentSent      *PaymentSentData      `json:"payment_sent,omitempty"`
	PaymentReceived  *PaymentReceivedData  `json:"payment_received,omitempty"`
	BalanceChanged   *BalanceChangedData   `json:"balance_changed,omitempty"`
}

type ConnectionFailedData struct {
	Error string `json:"error"`
}

type InvoiceCreatedData struct {
	Invoice string `json:"invoice"`
	Amount  int64  `json:"amount"`
}

type PaymentSentData struct {
	Invoice string        `json:"invoice"`
	Result  PaymentResult `json:"result"`
}

type PaymentReceivedData struct {
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

type BalanceChangedData struct {
	OldBalance int64 `json:"old_balance"`
	NewBalance int64 `json:"new_balance"`
}

func NewConnectedEvent() Event {
	return Event{Type: EventConnected}
}

func NewReadyEvent() Event {
	return Event{Type: EventReady}
}

func NewConnectionFailedEvent(reason string) Event {
	return Event{
		Type:             EventConnectionFailed,
		ConnectionFailed: &ConnectionFailedData{Error: reason},
	}
}

func NewInvoiceCreatedEvent(invoice string, amount int64) Event {
	return Event{
		Type:           EventInvoiceCreated,
		InvoiceCreated: &InvoiceCreatedData{Invoice: invoice, Amount: amount},
	}
}

func NewPaymentSentEvent(invoice string, result PaymentResult) Event {
	return Event{
		Type:        EventPaymentSent,
		PaymentSent: &PaymentSentData{Invoice: invoice, Result: result},
	}
}

func NewPaymentReceivedEvent(amount int64, description string) Event {
	return Event{
		Type:            EventPaymentReceived,
		PaymentReceived: &PaymentReceivedData{Amount: amount, Description: description},
	}
}

func NewBalanceChangedEvent(oldBalance, newBalance int64) Event {
	return Event{
		Type:           EventBalanceChanged,
		BalanceChanged: &BalanceChangedData{OldBalance: oldBalance, NewBalance: newBalance},
	}
}

// EventRepository is the append-only journal of emitted events.
type EventRepository interface {
	Add(ctx context.Context, event Event) error
	// GetLatest returns up to limit events, newest first. limit <= 0 returns all.
	GetLatest(ctx context.Context, limit int) ([]Event, error)
	GetByType(ctx context.Context, eventType EventType) ([]Event, error)
	Close()
}
