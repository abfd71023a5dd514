package ports

import (
	"context"
	"time"

	"github.com/ArkLabsHQ/lnwatch/internal/core/domain"
)

// LedgerClient is the external payment backend the session drives. Empty
// strings returned with a nil error mean the result is unavailable.
type LedgerClient interface {
	Connect(ctx context.Context, config domain.ConnectionConfig) error
	IsConnected() bool
	Balance(ctx context.Context) (int64, error)
	CreateInvoice(ctx context.Context, amount int64, description string) (string, error)
	// Pay passes timeout through to the backend, zero means the backend default.
	Pay(ctx context.Context, invoice string, timeout time.Duration) (*domain.PaymentResult, error)
	Address(ctx context.Context) (string, error)
	SparkAddress(ctx context.Context) (string, error)
	Disconnect()
}

// Optional capabilities, detected with a type assertion on the LedgerClient.

type WalletSyncer interface {
	Sync(ctx context.Context) error
}

type PaymentLister interface {
	ListPayments(ctx context.Context, offset, limit int) ([]domain.Payment, error)
}

type DepositClaimer interface {
	ListUnclaimedDeposits(ctx context.Context) ([]domain.Deposit, error)
	ClaimDeposit(ctx context.Context, txid string, vout uint32, maxFee int64) (string, error)
}
