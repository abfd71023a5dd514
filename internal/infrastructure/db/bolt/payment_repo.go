package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ArkLabsHQ/lnwatch/internal/core/domain"
	bolt "go.etcd.io/bbolt"
)

type paymentRepository struct {
	db *bolt.DB
}

// NewPaymentRepository stores payments in db. The caller owns db and closes it.
func NewPaymentRepository(db *bolt.DB) (domain.PaymentRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("cannot open payment repository: db is nil")
	}
	return &paymentRepository{db}, nil
}

// GetAll returns the stored payments, newest first.
func (r *paymentRepository) GetAll(ctx context.Context) ([]domain.Payment, error) {
	payments := make([]domain.Payment, 0)

	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPayments).ForEach(func(k, v []byte) error {
			var payment domain.Payment
			if err := json.Unmarshal(v, &payment); err != nil {
				return fmt.Errorf("failed to unmarshal payment %s: %w", k, err)
			}
			payments = append(payments, payment)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get all payments: %w", err)
	}

	sort.SliceStable(payments, func(i, j int) bool {
		if payments[i].Timestamp != payments[j].Timestamp {
			return payments[i].Timestamp > payments[j].Timestamp
		}
		return payments[i].Id > payments[j].Id
	})
	return payments, nil
}

func (r *paymentRepository) Get(ctx context.Context, paymentId string) (*domain.Payment, error) {
	var payment *domain.Payment

	err := r.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketPayments).Get([]byte(paymentId))
		if data == nil {
			return fmt.Errorf("payment %s not found", paymentId)
		}
		payment = &domain.Payment{}
		return json.Unmarshal(data, payment)
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *paymentRepository) Add(ctx context.Context, payment domain.Payment) error {
	data, err := json.Marshal(payment)
	if err != nil {
		return fmt.Errorf("failed to marshal payment: %w", err)
	}

	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPayments)
		if b.Get([]byte(payment.Id)) != nil {
			return fmt.Errorf("payment %s already exists", payment.Id)
		}
		if err := b.Put([]byte(payment.Id), data); err != nil {
			return fmt.Errorf("failed to store payment: %w", err)
		}
		return nil
	})
}

func (r *paymentRepository) Close() {}
