package utils

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	decodepay "github.com/nbd-wtf/ln-decodepay"
)

type Invoice struct {
	AmountSats  int64
	PaymentHash []byte
	Description string
	Payee       string
	ExpiresAt   time.Time
}

func (i Invoice) IsExpired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}

func DecodeInvoice(invoice string) (*Invoice, error) {
	bolt11, err := decodepay.Decodepay(strings.TrimSpace(invoice))
	if err != nil {
		return nil, err
	}

	paymentHash, err := hex.DecodeString(bolt11.PaymentHash)
	if err != nil {
		return nil, fmt.Errorf("invalid payment hash: %w", err)
	}

	var expiresAt time.Time
	if bolt11.Expiry > 0 {
		expiresAt = time.Unix(int64(bolt11.CreatedAt+bolt11.Expiry), 0)
	}

	return &Invoice{
		AmountSats:  bolt11.MSatoshi / 1000,
		PaymentHash: paymentHash,
		Description: bolt11.Description,
		Payee:       bolt11.Payee,
		ExpiresAt:   expiresAt,
	}, nil
}

func SatsFromInvoice(invoice string) int64 {
	decoded, err := DecodeInvoice(invoice)
	if err != nil {
		return 0
	}
	return decoded.AmountSats
}

func IsValidInvoice(invoice string) bool {
	return SatsFromInvoice(invoice) > 0
}
