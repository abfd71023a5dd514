package application

import (
	"context"
	"fmt"

	"github.com/ArkLabsHQ/lnwatch/internal/core/domain"
	"github.com/ArkLabsHQ/lnwatch/internal/core/ports"
)

// BalanceOracle reads the current ledger balance, uncached.
type BalanceOracle struct {
	ledger ports.LedgerClient
}

func NewBalanceOracle(ledger ports.LedgerClient) BalanceOracle {
	return BalanceOracle{ledger}
}

func (o BalanceOracle) Read(ctx context.Context) (int64, error) {
	balance, err := o.ledger.Balance(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrOracleRead, err)
	}
	if balance < 0 {
		return 0, fmt.Errorf("%w: negative balance %d", ErrOracleRead, balance)
	}
	return balance, nil
}

// balanceTracker owns the last known balance the detector compares against.
type balanceTracker interface {
	LastKnownBalance() int64
	setLastKnownBalance(balance int64)
}

type ChangeDetector struct {
	oracle BalanceOracle
	bus    *EventBus
}

func NewChangeDetector(oracle BalanceOracle, bus *EventBus) *ChangeDetector {
	return &ChangeDetector{oracle, bus}
}

// Check runs one detection pass. On a failed read nothing is emitted and the
// tracked balance is left untouched, so the next pass retries from the same
// baseline.
func (d *ChangeDetector) Check(ctx context.Context, tracker balanceTracker) error {
	oldBalance := tracker.LastKnownBalance()

	newBalance, err := d.oracle.Read(ctx)
	if err != nil {
		return err
	}

	events := ClassifyBalanceChange(oldBalance, newBalance)
	if len(events) == 0 {
		return nil
	}

	for _, event := range events {
		d.bus.Publish(event)
	}
	tracker.setLastKnownBalance(newBalance)
	return nil
}

// ClassifyBalanceChange maps a balance transition to the events it produces:
// none when unchanged, PaymentReceived followed by BalanceChanged on an
// increase, BalanceChanged alone on a decrease.
func ClassifyBalanceChange(oldBalance, newBalance int64) []domain.Event {
	if newBalance == oldBalance {
		return nil
	}

	events := make([]domain.Event, 0, 2)
	if newBalance > oldBalance {
		// the ledger exposes no metadata for externally received funds
		events = append(events, domain.NewPaymentReceivedEvent(newBalance-oldBalance, ""))
	}
	events = append(events, domain.NewBalanceChangedEvent(oldBalance, newBalance))
	return events
}
