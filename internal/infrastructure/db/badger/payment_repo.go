package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ArkLabsHQ/lnwatch/internal/core/domain"
	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

const (
	paymentDir = "payment"
)

type paymentRepository struct {
	store *badgerhold.Store
}

func NewPaymentRepository(baseDir string, logger badger.Logger) (domain.PaymentRepository, error) {
	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, paymentDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open payment store: %s", err)
	}
	return &paymentRepository{store}, nil
}

// GetAll returns the stored payments, newest first.
func (r *paymentRepository) GetAll(ctx context.Context) ([]domain.Payment, error) {
	var list []paymentData
	query := (&badgerhold.Query{}).SortBy("Timestamp", "Id").Reverse()
	if err := r.store.Find(&list, query); err != nil {
		return nil, fmt.Errorf("failed to get all payments: %w", err)
	}

	payments := make([]domain.Payment, 0, len(list))
	for _, p := range list {
		payments = append(payments, p.toPayment())
	}
	return payments, nil
}

func (r *paymentRepository) Get(ctx context.Context, paymentId string) (*domain.Payment, error) {
	var data paymentData
	err := r.store.Get(paymentId, &data)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, fmt.Errorf("payment %s not found", paymentId)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	payment := data.toPayment()
	return &payment, nil
}

func (r *paymentRepository) Add(ctx context.Context, payment domain.Payment) error {
	if err := r.store.Insert(payment.Id, toPaymentData(payment)); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return fmt.Errorf("payment %s already exists", payment.Id)
		}
		return err
	}
	return nil
}

func (r *paymentRepository) Close() {
	// nolint:all
	r.store.Close()
}

type paymentData struct {
	Id          string
	Amount      int64
	Fee         int64
	Timestamp   int64
	Status      int
	Type        int
	Invoice     string
	Description string
}

func toPaymentData(p domain.Payment) paymentData {
	return paymentData{
		Id:          p.Id,
		Amount:      p.Amount,
		Fee:         p.Fee,
		Timestamp:   p.Timestamp,
		Status:      int(p.Status),
		Type:        int(p.Type),
		Invoice:     p.Invoice,
		Description: p.Description,
	}
}

func (d paymentData) toPayment() domain.Payment {
	return domain.Payment{
		Id:          d.Id,
		Amount:      d.Amount,
		Fee:         d.Fee,
		Timestamp:   d.Timestamp,
		Status:      domain.PaymentStatus(d.Status),
		Type:        domain.PaymentType(d.Type),
		Invoice:     d.Invoice,
		Description: d.Description,
	}
}
