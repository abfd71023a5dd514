package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ArkLabsHQ/lnwatch/internal/core/domain"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	insertPayment = `INSERT INTO payment (id, amount, fee, timestamp, status, payment_type, invoice, description)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	selectPayment = `SELECT id, amount, fee, timestamp, status, payment_type, invoice, description FROM payment`
)

type paymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) (domain.PaymentRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("cannot open payment repository: db is nil")
	}
	return &paymentRepository{db}, nil
}

func (r *paymentRepository) Add(ctx context.Context, payment domain.Payment) error {
	return execTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(
			ctx, insertPayment,
			payment.Id, payment.Amount, payment.Fee, payment.Timestamp,
			int64(payment.Status), int64(payment.Type), payment.Invoice, payment.Description,
		); err != nil {
			if sqlErr, ok := err.(*sqlite.Error); ok {
				if sqlErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
					return fmt.Errorf("payment %s already exists", payment.Id)
				}
			}
			return fmt.Errorf("failed to insert payment: %s", err)
		}
		return nil
	})
}

func (r *paymentRepository) Get(ctx context.Context, paymentId string) (*domain.Payment, error) {
	row := r.db.QueryRowContext(ctx, selectPayment+` WHERE id = ?`, paymentId)
	payment, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payment %s not found", paymentId)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &payment, nil
}

// GetAll returns the stored payments, newest first.
func (r *paymentRepository) GetAll(ctx context.Context) ([]domain.Payment, error) {
	rows, err := r.db.QueryContext(ctx, selectPayment+` ORDER BY timestamp DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all payments: %w", err)
	}
	// nolint:errcheck
	defer rows.Close()

	payments := make([]domain.Payment, 0)
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get all payments: %w", err)
	}
	return payments, nil
}

func (r *paymentRepository) Close() {
	// nolint:all
	r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPayment(row scanner) (domain.Payment, error) {
	var (
		p                   domain.Payment
		status, paymentType int64
	)
	if err := row.Scan(
		&p.Id, &p.Amount, &p.Fee, &p.Timestamp, &status, &paymentType, &p.Invoice, &p.Description,
	); err != nil {
		return domain.Payment{}, err
	}
	p.Status = domain.PaymentStatus(status)
	p.Type = domain.PaymentType(paymentType)
	return p, nil
}
