package domain

import (
	"context"
)

type PaymentStatus int

const (
	PaymentPending PaymentStatus = iota
	PaymentFailed
	PaymentSuccess
)

func (s PaymentStatus) String() string {
	switch s {
	case PaymentPending:
		return "pending"
	case PaymentFailed:
		return "failed"
	case PaymentSuccess:
		return "succeeded"
	default:
		return "unknown"
	}
}

type PaymentType int

const (
	Receive PaymentType = iota
	Pay
)

func (t PaymentType) String() string {
	if t == Pay {
		return "send"
	}
	return "receive"
}

type Payment struct {
	Id          string
	Amount      int64
	Fee         int64
	Timestamp   int64
	Status      PaymentStatus
	Type        PaymentType
	Invoice     string
	Description string
}

// PaymentResult is the outcome of a pay request as reported by the ledger.
type PaymentResult struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	PaymentId string `json:"payment_id,omitempty"`
	Amount    int64  `json:"amount,omitempty"`
	Fee       int64  `json:"fee,omitempty"`
	Preimage  string `json:"preimage,omitempty"`
}

// Deposit is an on-chain deposit waiting to be claimed into the wallet.
type Deposit struct {
	Txid       string `json:"txid"`
	Vout       uint32 `json:"vout"`
	AmountSats int64  `json:"amount_sats"`
}

// PaymentRepository stores the payments observed by the session.
type PaymentRepository interface {
	GetAll(ctx context.Context) ([]Payment, error)
	Get(ctx context.Context, paymentId string) (*Payment, error)
	Add(ctx context.Context, payment Payment) error
	Close()
}
